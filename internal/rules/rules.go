// Package rules maps raw GLITCH smell codes onto normalized rule metadata.
//
// The table is plain data. Adding a rule means adding an entry, never a branch.
package rules

import (
	"sort"

	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

// Version identifies the table revision and is stamped into exported reports.
const Version = "2024.2"

// Disposition decides whether a rule is trusted outright or adjudicated by a model.
type Disposition int

const (
	AutoAccept Disposition = iota
	RequiresScoring
)

func (d Disposition) String() string {
	if d == RequiresScoring {
		return "requires-scoring"
	}
	return "auto-accept"
}

// Rule is the normalized metadata behind one raw analyzer code.
type Rule struct {
	Code        string
	RuleID      string
	Category    schema.Category
	Severity    schema.Severity
	Message     string
	Disposition Disposition
}

var table = map[string]Rule{
	"sec_https": {
		RuleID:      "HTTP_NO_TLS",
		Category:    schema.CategoryHTTP,
		Severity:    schema.SeverityMedium,
		Message:     "Use of HTTP without TLS",
		Disposition: RequiresScoring,
	},
	"sec_http_no_ssl": {
		RuleID:      "HTTP_NO_TLS",
		Category:    schema.CategoryHTTP,
		Severity:    schema.SeverityMedium,
		Message:     "Use of HTTP without TLS",
		Disposition: RequiresScoring,
	},
	"sec_weak_crypt": {
		RuleID:      "WEAK_CRYPTO",
		Category:    schema.CategoryWeakCrypto,
		Severity:    schema.SeverityMedium,
		Message:     "Use of weak cryptography algorithm",
		Disposition: RequiresScoring,
	},
	"sec_hard_secr": {
		RuleID:      "HARDCODED_SECRET",
		Category:    schema.CategoryHardcodedSecret,
		Severity:    schema.SeverityHigh,
		Message:     "Hard-coded secret",
		Disposition: RequiresScoring,
	},
	"sec_hard_pass": {
		RuleID:      "HARDCODED_PASSWORD",
		Category:    schema.CategoryHardcodedSecret,
		Severity:    schema.SeverityHigh,
		Message:     "Hard-coded password",
		Disposition: RequiresScoring,
	},
	"sec_hard_user": {
		RuleID:      "HARDCODED_USERNAME",
		Category:    schema.CategoryHardcodedSecret,
		Severity:    schema.SeverityMedium,
		Message:     "Hard-coded username",
		Disposition: RequiresScoring,
	},
	"sec_susp_comm": {
		RuleID:      "SUSPICIOUS_COMMENT",
		Category:    schema.CategorySuspiciousComment,
		Severity:    schema.SeverityLow,
		Message:     "Suspicious comment (TODO, FIXME, HACK or similar)",
		Disposition: RequiresScoring,
	},
	"sec_def_admin": {
		RuleID:      "ADMIN_BY_DEFAULT",
		Category:    schema.CategoryAdminByDefault,
		Severity:    schema.SeverityHigh,
		Message:     "Admin by default",
		Disposition: AutoAccept,
	},
	"sec_empty_pass": {
		RuleID:      "EMPTY_PASSWORD",
		Category:    schema.CategoryEmptyPassword,
		Severity:    schema.SeverityHigh,
		Message:     "Empty password",
		Disposition: AutoAccept,
	},
	"sec_invalid_bind": {
		RuleID:      "INVALID_IP_BINDING",
		Category:    schema.CategoryInvalidBind,
		Severity:    schema.SeverityMedium,
		Message:     "Unrestricted IP address binding (0.0.0.0)",
		Disposition: AutoAccept,
	},
	"sec_no_int_check": {
		RuleID:      "MISSING_INTEGRITY_CHECK",
		Category:    schema.CategoryMissingIntegrityCheck,
		Severity:    schema.SeverityMedium,
		Message:     "Download without integrity check",
		Disposition: AutoAccept,
	},
	"sec_no_default_switch": {
		RuleID:      "MISSING_DEFAULT_SWITCH",
		Category:    schema.CategoryMissingDefaultSwitch,
		Severity:    schema.SeverityLow,
		Message:     "Missing default case in conditional",
		Disposition: AutoAccept,
	},
}

// Lookup returns the rule registered for a raw analyzer code.
func Lookup(code string) (Rule, error) {
	rule, ok := table[code]
	if !ok {
		return Rule{}, &errors.UnmappedRuleError{Code: code}
	}
	rule.Code = code
	return rule, nil
}

// Codes lists every known raw code in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// All returns the full table sorted by raw code.
func All() []Rule {
	codes := Codes()
	all := make([]Rule, 0, len(codes))
	for _, code := range codes {
		rule := table[code]
		rule.Code = code
		all = append(all, rule)
	}
	return all
}
