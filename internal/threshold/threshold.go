package threshold

import (
	"fmt"

	"github.com/scan-io-git/iacsec/internal/registry"
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

// Resolve returns the effective decision threshold for model: the override when given,
// otherwise the registry default.
func Resolve(reg *registry.Registry, model string, override *float64) (float64, error) {
	if override != nil {
		if err := schema.ValidateScore(*override); err != nil {
			return 0, &errors.ConfigurationError{Field: "threshold", Err: err}
		}
		return *override, nil
	}

	entry, err := reg.Lookup(model)
	if err != nil {
		return 0, err
	}
	return entry.DefaultThreshold, nil
}

// Apply labels a score against t. The boundary is inclusive: score == t is a true positive.
func Apply(score, t float64) (schema.Verdict, error) {
	if err := schema.ValidateScore(t); err != nil {
		return schema.Verdict{}, fmt.Errorf("threshold: %w", err)
	}
	if score >= t {
		return schema.NewVerdict(schema.LabelTruePositive, score, schema.RationaleAboveThreshold)
	}
	return schema.NewVerdict(schema.LabelFalsePositive, score, schema.RationaleBelowThreshold)
}
