package sarif

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/scan-io-git/iacsec/internal/schema"
)

// runNamespace scopes run GUIDs so equal content from another tool never collides.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/scan-io-git/iacsec/sarif-run"))

// levelForSeverity maps finding severity to a SARIF result level.
func levelForSeverity(s schema.Severity) string {
	switch s {
	case schema.SeverityHigh:
		return "error"
	case schema.SeverityMedium:
		return "warning"
	case schema.SeverityLow:
		return "note"
	default:
		return "none"
	}
}

// SeverityLabel is the display label of a finding severity.
func SeverityLabel(s schema.Severity) string {
	return DisplaySeverity(levelForSeverity(s))
}

// DisplaySeverity normalizes SARIF severity levels to more descriptive labels.
func DisplaySeverity(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "error":
		return "High"
	case "warning":
		return "Medium"
	case "note":
		return "Low"
	case "none":
		return "Info"
	default:
		if normalized == "" {
			return ""
		}
		return cases.Title(language.Und).String(normalized)
	}
}

// runGUID is a UUIDv5 of the tool identity and every record, so identical runs share a GUID.
func runGUID(tool ToolMetadata, records []schema.JoinedRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s\n", tool.Name, tool.Version, tool.RulesVersion)
	for _, rec := range records {
		f := rec.Detection
		fmt.Fprintf(&b, "%s|%d|%s|%s|%g|%g|%s\n",
			f.File(), f.Line(), f.RuleID(), rec.Prediction.Label(), rec.Prediction.Score(), rec.Threshold, rec.Model)
	}
	return uuid.NewSHA1(runNamespace, []byte(b.String())).String()
}
