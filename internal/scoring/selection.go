package scoring

import (
	stderrors "errors"

	"github.com/scan-io-git/iacsec/internal/registry"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

// Decision is the outcome of backend selection for one run.
type Decision struct {
	Backend  BackendKind
	Fallback bool
}

// DecideBackend picks the scoring strategy. loadErr is the error returned while preparing the
// full backend, or nil when it loaded (or was not attempted). Only a BackendUnavailableError
// degrades to the stand-in; any other load error is returned as fatal.
func DecideBackend(framework string, forceStandIn bool, loadErr error) (Decision, error) {
	if forceStandIn || framework == registry.FrameworkStub {
		return Decision{Backend: BackendStandIn}, nil
	}
	if loadErr == nil {
		return Decision{Backend: BackendEncoder}, nil
	}

	var unavailable *errors.BackendUnavailableError
	if stderrors.As(loadErr, &unavailable) {
		return Decision{Backend: BackendStandIn, Fallback: true}, nil
	}
	return Decision{}, loadErr
}
