package errors

import (
	stderrors "errors"
	"fmt"
)

// Process exit codes returned by the scan command.
const (
	ExitClean        = 0
	ExitFindings     = 1
	ExitRuntimeError = 2
)

// Kind classifies pipeline failures so callers can branch without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnmappedRule
	KindMalformedRecord
	KindHashMismatch
	KindBackendUnavailable
	KindScoringFailure
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindUnmappedRule:
		return "unmapped-rule"
	case KindMalformedRecord:
		return "malformed-record"
	case KindHashMismatch:
		return "hash-mismatch"
	case KindBackendUnavailable:
		return "backend-unavailable"
	case KindScoringFailure:
		return "scoring-failure"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// UnmappedRuleError is returned when a raw analyzer code has no entry in the rule table.
type UnmappedRuleError struct {
	Code string
	Path string
	Line int
}

func (e *UnmappedRuleError) Error() string {
	return fmt.Sprintf("unmapped rule %q reported for %s:%d", e.Code, e.Path, e.Line)
}

// MalformedRecordError is returned when a raw analyzer record misses required fields.
type MalformedRecordError struct {
	Index  int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed raw record #%d: %s", e.Index, e.Reason)
}

// HashMismatchError reports model content that does not match the registry digest.
type HashMismatchError struct {
	Model    string
	Path     string
	Expected string
	Actual   string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("sha256 mismatch for model %q at %q: expected %s, got %s", e.Model, e.Path, e.Expected, e.Actual)
}

// BackendUnavailableError reports that the full scoring backend cannot run in this environment.
type BackendUnavailableError struct {
	Backend string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("scoring backend %q unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// ScoringFailureError wraps a backend failure that happened while scoring a batch.
type ScoringFailureError struct {
	Model   string
	Batch   int
	Finding string
	Err     error
}

func (e *ScoringFailureError) Error() string {
	if e.Finding != "" {
		return fmt.Sprintf("model %q failed on batch %d (finding %s): %v", e.Model, e.Batch, e.Finding, e.Err)
	}
	return fmt.Sprintf("model %q failed on batch %d: %v", e.Model, e.Batch, e.Err)
}

func (e *ScoringFailureError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports invalid user input such as an unknown model or a bad threshold.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError builds a ConfigurationError from a formatted message.
func NewConfigurationError(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first typed error found in err's chain.
func KindOf(err error) Kind {
	var (
		unmapped    *UnmappedRuleError
		malformed   *MalformedRecordError
		mismatch    *HashMismatchError
		unavailable *BackendUnavailableError
		scoring     *ScoringFailureError
		cfg         *ConfigurationError
	)

	switch {
	case err == nil:
		return KindUnknown
	case stderrors.As(err, &unmapped):
		return KindUnmappedRule
	case stderrors.As(err, &malformed):
		return KindMalformedRecord
	case stderrors.As(err, &mismatch):
		return KindHashMismatch
	case stderrors.As(err, &scoring):
		return KindScoringFailure
	case stderrors.As(err, &unavailable):
		return KindBackendUnavailable
	case stderrors.As(err, &cfg):
		return KindConfiguration
	}
	return KindUnknown
}

// CommandError carries the process exit code chosen by a command.
type CommandError struct {
	ExitCode    int
	CommonError string
	Err         error
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError wraps err with the exit code the process should terminate with.
func NewCommandError(err error, code int) *CommandError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &CommandError{
		ExitCode:    code,
		CommonError: msg,
		Err:         err,
	}
}

// ExitCodeOf returns the exit code attached to err, defaulting to ExitRuntimeError.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitClean
	}
	var cmdErr *CommandError
	if stderrors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return ExitRuntimeError
}
