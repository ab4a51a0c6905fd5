package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Rationales attached by the pipeline.
const (
	RationaleAutoAccepted   = "auto-accepted"
	RationaleAboveThreshold = "score>=threshold"
	RationaleBelowThreshold = "score<threshold"
)

// Verdict is the scoring outcome for one Finding.
type Verdict struct {
	label     Label
	score     float64
	rationale string
}

// NewVerdict validates the label and keeps score within [0, 1].
func NewVerdict(label Label, score float64, rationale string) (Verdict, error) {
	if !label.Valid() {
		return Verdict{}, fmt.Errorf("verdict: unknown label %q", label)
	}
	if err := ValidateScore(score); err != nil {
		return Verdict{}, fmt.Errorf("verdict: %w", err)
	}
	return Verdict{label: label, score: score, rationale: rationale}, nil
}

// AutoAccepted is the synthetic verdict for findings trusted without scoring.
func AutoAccepted() Verdict {
	return Verdict{label: LabelTruePositive, score: 1.0, rationale: RationaleAutoAccepted}
}

// ValidateScore rejects NaN and values outside the closed unit interval.
func ValidateScore(score float64) error {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return fmt.Errorf("score %v outside [0, 1]", score)
	}
	return nil
}

func (v Verdict) Label() Label { return v.label }
func (v Verdict) Score() float64 { return v.score }
func (v Verdict) Rationale() string { return v.rationale }
func (v Verdict) IsZero() bool { return v.label == "" }
func (v Verdict) TruePositive() bool { return v.label == LabelTruePositive }

type verdictWire struct {
	Label     Label    `json:"label"`
	Score     *float64 `json:"score"`
	Rationale *string  `json:"rationale"`
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return nil, fmt.Errorf("verdict: cannot marshal an unconstructed verdict")
	}
	score := v.score
	wire := verdictWire{Label: v.label, Score: &score}
	if v.rationale != "" {
		r := v.rationale
		wire.Rationale = &r
	}
	return marshalUnescaped(wire)
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	if !v.IsZero() {
		return fmt.Errorf("verdict: already constructed, refusing to overwrite")
	}

	var wire verdictWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return fmt.Errorf("verdict: %w", err)
	}
	if wire.Score == nil {
		return fmt.Errorf("verdict: score is required")
	}

	rationale := ""
	if wire.Rationale != nil {
		rationale = *wire.Rationale
	}
	built, err := NewVerdict(wire.Label, *wire.Score, rationale)
	if err != nil {
		return err
	}
	*v = built
	return nil
}

// marshalUnescaped is json.Marshal without HTML escaping, so snippets such as "a && b" stay readable.
func marshalUnescaped(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
