package scoring

import (
	"context"
	"fmt"

	"github.com/scan-io-git/iacsec/internal/schema"
)

// BackendKind names a scoring strategy.
type BackendKind string

const (
	BackendEncoder BackendKind = "encoder"
	BackendStandIn BackendKind = "standin"
)

// Input is one finding to score together with the source lines around it.
type Input struct {
	Finding schema.Finding
	Context string
}

// Backend turns a batch of inputs into raw confidence scores, one per input and in input order.
type Backend interface {
	Kind() BackendKind
	Score(ctx context.Context, batch []Input) ([]float64, error)
	Close() error
}

// Provenance identifies the model and strategy that produced a run's scores.
type Provenance struct {
	Name    string
	Version string
	StandIn bool
}

// String renders "name@version", tagged "+standin" when the stand-in produced the scores.
func (p Provenance) String() string {
	id := fmt.Sprintf("%s@%s", p.Name, p.Version)
	if p.StandIn {
		return id + "+" + string(BackendStandIn)
	}
	return id
}

// EventKind classifies engine events surfaced to callers.
type EventKind string

const (
	EventBackendFallback EventKind = "backend-fallback"
)

// Event is a structured notice about how the engine was prepared.
type Event struct {
	Kind    EventKind `json:"kind"`
	Model   string    `json:"model"`
	Backend string    `json:"backend"`
	Reason  string    `json:"reason"`
}
