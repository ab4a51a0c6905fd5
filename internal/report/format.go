package report

import (
	"fmt"
	"strings"
)

// Format names an output format accepted by --format.
type Format string

const (
	FormatSARIF Format = "sarif"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

var extensions = map[Format]string{
	FormatSARIF: ".sarif",
	FormatJSON:  ".jsonl",
	FormatCSV:   ".csv",
	FormatTable: ".txt",
}

// Extension is the file extension used when the format is written next to --out.
func (f Format) Extension() string { return extensions[f] }

// ParseFormats splits a comma-separated list, dropping duplicates and keeping first-seen order.
func ParseFormats(value string) ([]Format, error) {
	var formats []Format
	seen := make(map[Format]struct{})
	for _, part := range strings.Split(value, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		if _, ok := extensions[f]; !ok {
			return nil, fmt.Errorf("unsupported format %q (expected sarif, json, csv or table)", part)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("at least one output format is required")
	}
	return formats, nil
}
