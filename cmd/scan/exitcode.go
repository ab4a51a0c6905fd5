package scan

import (
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

// Blocking returns the records that make the scan fail: every true positive, or only the
// high-severity ones when failOnHigh is set.
func Blocking(records []schema.JoinedRecord, failOnHigh bool) []schema.JoinedRecord {
	var blocking []schema.JoinedRecord
	for _, rec := range records {
		if !rec.Prediction.TruePositive() {
			continue
		}
		if failOnHigh && rec.Detection.Severity() != schema.SeverityHigh {
			continue
		}
		blocking = append(blocking, rec)
	}
	return blocking
}

// ExitCode maps a finished scan to the process exit code.
func ExitCode(records []schema.JoinedRecord, failOnHigh bool) int {
	if len(Blocking(records, failOnHigh)) > 0 {
		return errors.ExitFindings
	}
	return errors.ExitClean
}
