package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EvidenceRequiresScoring is the evidence key flagging findings routed through the scoring engine.
const EvidenceRequiresScoring = "requires-scoring"

// Finding is a normalized security detection. It is immutable once built by NewFinding.
type Finding struct {
	ruleID   string
	category Category
	tech     Technology
	file     string
	line     int
	snippet  string
	message  string
	severity Severity
	evidence map[string]interface{}
}

// FindingParams carries the fields of a Finding before validation.
type FindingParams struct {
	RuleID          string
	Category        Category
	Tech            Technology
	File            string
	Line            int
	Snippet         string
	Message         string
	Severity        Severity
	RequiresScoring bool
	Evidence        map[string]interface{}
}

// Key identifies a finding for deduplication.
type Key struct {
	File   string
	Line   int
	RuleID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d[%s]", k.File, k.Line, k.RuleID)
}

// NewFinding validates p and returns an immutable Finding.
// Line 0 denotes a file-level finding.
func NewFinding(p FindingParams) (Finding, error) {
	if strings.TrimSpace(p.RuleID) == "" {
		return Finding{}, fmt.Errorf("finding: rule_id is required")
	}
	if !p.Category.Valid() {
		return Finding{}, fmt.Errorf("finding %s: unknown category %q", p.RuleID, p.Category)
	}
	if !p.Tech.Valid() {
		return Finding{}, fmt.Errorf("finding %s: unknown technology %q", p.RuleID, p.Tech)
	}
	if err := validateRelativePath(p.File); err != nil {
		return Finding{}, fmt.Errorf("finding %s: %w", p.RuleID, err)
	}
	if p.Line < 0 {
		return Finding{}, fmt.Errorf("finding %s at %s: line must not be negative, got %d", p.RuleID, p.File, p.Line)
	}
	if !p.Severity.Valid() {
		return Finding{}, fmt.Errorf("finding %s: unknown severity %q", p.RuleID, p.Severity)
	}

	evidence := copyEvidence(p.Evidence)
	evidence[EvidenceRequiresScoring] = p.RequiresScoring

	return Finding{
		ruleID:   p.RuleID,
		category: p.Category,
		tech:     p.Tech,
		file:     p.File,
		line:     p.Line,
		snippet:  p.Snippet,
		message:  p.Message,
		severity: p.Severity,
		evidence: evidence,
	}, nil
}

func validateRelativePath(file string) error {
	switch {
	case file == "":
		return fmt.Errorf("file is required")
	case strings.Contains(file, `\`):
		return fmt.Errorf("file %q must use forward slashes", file)
	case strings.HasPrefix(file, "/"):
		return fmt.Errorf("file %q must be relative to the scan root", file)
	}
	for _, part := range strings.Split(file, "/") {
		if part == ".." {
			return fmt.Errorf("file %q escapes the scan root", file)
		}
	}
	return nil
}

func (f Finding) RuleID() string { return f.ruleID }
func (f Finding) Category() Category { return f.category }
func (f Finding) Tech() Technology { return f.tech }
func (f Finding) File() string { return f.file }
func (f Finding) Line() int { return f.line }
func (f Finding) Snippet() string { return f.snippet }
func (f Finding) Message() string { return f.message }
func (f Finding) Severity() Severity { return f.severity }
func (f Finding) Key() Key { return Key{File: f.file, Line: f.line, RuleID: f.ruleID} }
func (f Finding) IsZero() bool { return f.ruleID == "" }
func (f Finding) Location() string { return fmt.Sprintf("%s:%d", f.file, f.line) }
func (f Finding) RequiresScoring() bool {
	v, _ := f.evidence[EvidenceRequiresScoring].(bool)
	return v
}

// Evidence returns a copy of the analyzer metadata.
func (f Finding) Evidence() map[string]interface{} {
	return copyEvidence(f.evidence)
}

// EvidenceValue returns a single evidence entry.
func (f Finding) EvidenceValue(key string) (interface{}, bool) {
	v, ok := f.evidence[key]
	return v, ok
}

type findingWire struct {
	RuleID   string                 `json:"rule_id"`
	Smell    Category               `json:"smell"`
	Tech     Technology             `json:"tech"`
	File     string                 `json:"file"`
	Line     *int                   `json:"line"`
	Snippet  string                 `json:"snippet"`
	Message  string                 `json:"message"`
	Severity Severity               `json:"severity"`
	Evidence map[string]interface{} `json:"evidence"`
}

func (f Finding) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return nil, fmt.Errorf("finding: cannot marshal an unconstructed finding")
	}
	line := f.line
	return marshalUnescaped(findingWire{
		RuleID:   f.ruleID,
		Smell:    f.category,
		Tech:     f.tech,
		File:     f.file,
		Line:     &line,
		Snippet:  f.snippet,
		Message:  f.message,
		Severity: f.severity,
		Evidence: f.evidence,
	})
}

// UnmarshalJSON decodes strictly: unknown fields are rejected and the result is validated.
// Decoding into an already constructed Finding fails.
func (f *Finding) UnmarshalJSON(data []byte) error {
	if !f.IsZero() {
		return fmt.Errorf("finding %s: already constructed, refusing to overwrite", f.Key())
	}

	var wire findingWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return fmt.Errorf("finding: %w", err)
	}
	if wire.Line == nil {
		return fmt.Errorf("finding %s: line is required", wire.RuleID)
	}

	flag, ok := wire.Evidence[EvidenceRequiresScoring].(bool)
	if !ok {
		return fmt.Errorf("finding %s: evidence %q must be a boolean", wire.RuleID, EvidenceRequiresScoring)
	}

	built, err := NewFinding(FindingParams{
		RuleID:          wire.RuleID,
		Category:        wire.Smell,
		Tech:            wire.Tech,
		File:            wire.File,
		Line:            *wire.Line,
		Snippet:         wire.Snippet,
		Message:         wire.Message,
		Severity:        wire.Severity,
		RequiresScoring: flag,
		Evidence:        wire.Evidence,
	})
	if err != nil {
		return err
	}
	*f = built
	return nil
}

func copyEvidence(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+1)
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return copyEvidence(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return v
	}
}
