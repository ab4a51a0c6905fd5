package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// StandIn scores a finding by hashing its stable identity. It reads no weights and no files,
// so the same finding always gets the same score on every machine.
type StandIn struct {
	model   string
	version string
}

func NewStandIn(model, version string) *StandIn {
	return &StandIn{model: model, version: version}
}

type standInPayload struct {
	Model   string `json:"model"`
	Version string `json:"version"`
	RuleID  string `json:"rule_id"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

func (s *StandIn) Kind() BackendKind { return BackendStandIn }

func (s *StandIn) Close() error { return nil }

func (s *StandIn) Score(_ context.Context, batch []Input) ([]float64, error) {
	scores := make([]float64, len(batch))
	for i, in := range batch {
		score, err := s.score(in)
		if err != nil {
			return nil, err
		}
		scores[i] = score
	}
	return scores, nil
}

func (s *StandIn) score(in Input) (float64, error) {
	f := in.Finding
	payload, err := json.Marshal(standInPayload{
		Model:   s.model,
		Version: s.version,
		RuleID:  f.RuleID(),
		File:    f.File(),
		Line:    f.Line(),
		Snippet: f.Snippet(),
	})
	if err != nil {
		return 0, fmt.Errorf("stand-in payload for %s: %w", f.Location(), err)
	}
	sum := sha256.Sum256(payload)
	return float64(binary.BigEndian.Uint64(sum[:8])) / math.Exp2(64), nil
}
