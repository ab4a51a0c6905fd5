package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JoinedRecord is one exported line: a finding, its final verdict, the effective threshold and
// the provenance of the model that produced it.
type JoinedRecord struct {
	Detection  Finding `json:"detection"`
	Prediction Verdict `json:"prediction"`
	Threshold  float64 `json:"threshold"`
	Model      string  `json:"model"`
}

// NewJoinedRecord checks that both halves are constructed and the threshold is in range.
func NewJoinedRecord(f Finding, v Verdict, threshold float64, model string) (JoinedRecord, error) {
	if f.IsZero() {
		return JoinedRecord{}, fmt.Errorf("joined record: finding is empty")
	}
	if v.IsZero() {
		return JoinedRecord{}, fmt.Errorf("joined record %s: verdict is empty", f.Key())
	}
	if err := ValidateScore(threshold); err != nil {
		return JoinedRecord{}, fmt.Errorf("joined record %s: threshold: %w", f.Key(), err)
	}
	if model == "" {
		return JoinedRecord{}, fmt.Errorf("joined record %s: model identity is empty", f.Key())
	}
	return JoinedRecord{Detection: f, Prediction: v, Threshold: threshold, Model: model}, nil
}

type joinedRecordAlias JoinedRecord

func (r *JoinedRecord) UnmarshalJSON(data []byte) error {
	var alias joinedRecordAlias
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&alias); err != nil {
		return fmt.Errorf("joined record: %w", err)
	}

	built, err := NewJoinedRecord(alias.Detection, alias.Prediction, alias.Threshold, alias.Model)
	if err != nil {
		return err
	}
	*r = built
	return nil
}
