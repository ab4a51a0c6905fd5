package schema

import "fmt"

// Category is the closed set of security smells a finding can belong to.
type Category string

const (
	CategoryHTTP                  Category = "http"
	CategoryWeakCrypto            Category = "weak-crypto"
	CategoryHardcodedSecret       Category = "hardcoded-secret"
	CategorySuspiciousComment     Category = "suspicious-comment"
	CategoryAdminByDefault        Category = "admin-by-default"
	CategoryEmptyPassword         Category = "empty-password"
	CategoryInvalidBind           Category = "invalid-bind"
	CategoryMissingIntegrityCheck Category = "missing-integrity-check"
	CategoryMissingDefaultSwitch  Category = "missing-default-switch"
)

var categories = map[Category]struct{}{
	CategoryHTTP:                  {},
	CategoryWeakCrypto:            {},
	CategoryHardcodedSecret:       {},
	CategorySuspiciousComment:     {},
	CategoryAdminByDefault:        {},
	CategoryEmptyPassword:         {},
	CategoryInvalidBind:           {},
	CategoryMissingIntegrityCheck: {},
	CategoryMissingDefaultSwitch:  {},
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Technology is the IaC language a finding was reported for.
type Technology string

const (
	TechAnsible Technology = "ansible"
	TechChef    Technology = "chef"
	TechPuppet  Technology = "puppet"
)

// Technologies lists every supported technology in a stable order.
var Technologies = []Technology{TechAnsible, TechChef, TechPuppet}

func (t Technology) Valid() bool {
	switch t {
	case TechAnsible, TechChef, TechPuppet:
		return true
	}
	return false
}

// ParseTechnology converts user input into a Technology.
func ParseTechnology(s string) (Technology, error) {
	t := Technology(s)
	if !t.Valid() {
		return "", fmt.Errorf("unsupported technology %q", s)
	}
	return t, nil
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Rank orders severities, higher is worse. Unknown severities rank zero.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// Label is the final true/false positive judgment.
type Label string

const (
	LabelTruePositive  Label = "TP"
	LabelFalsePositive Label = "FP"
)

func (l Label) Valid() bool {
	return l == LabelTruePositive || l == LabelFalsePositive
}
