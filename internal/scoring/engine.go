package scoring

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/scan-io-git/iacsec/internal/registry"
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

const DefaultBatchSize = 16

// ArtifactStore hands out local, digest-verified copies of registry artifacts.
type ArtifactStore interface {
	Ensure(ctx context.Context, model, fileName string, artifact registry.Artifact) (string, error)
}

type Options struct {
	BatchSize      int
	Workers        int
	ForceStandIn   bool
	RuntimeLibrary string
	Store          ArtifactStore
	LoadEncoder    EncoderLoader
	// OnEvent receives engine events as they happen, in addition to Engine.Events.
	OnEvent func(Event)
	Logger  hclog.Logger
}

// Engine scores requires-scoring findings with the backend chosen once at construction.
type Engine struct {
	entry      registry.Entry
	backend    Backend
	provenance Provenance
	events     []Event
	batchSize  int
	workers    int
	logger     hclog.Logger
}

// NewEngine resolves name in reg and prepares its backend. Weights are verified before the
// runtime is touched, so a digest mismatch fails even on hosts without onnxruntime.
func NewEngine(ctx context.Context, reg *registry.Registry, name string, opts Options) (*Engine, error) {
	entry, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		entry:     entry,
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
		logger:    opts.Logger,
	}
	if e.batchSize < 1 {
		e.batchSize = DefaultBatchSize
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if e.logger == nil {
		e.logger = hclog.NewNullLogger()
	}

	decision, _ := DecideBackend(entry.Framework, opts.ForceStandIn, nil)
	if decision.Backend == BackendStandIn {
		e.useStandIn()
		e.logger.Info("scoring with stand-in backend", "model", entry.Identity(), "requested", opts.ForceStandIn)
		return e, nil
	}

	paths, err := ensureArtifacts(ctx, opts, entry)
	if err != nil {
		return nil, err
	}

	loader := opts.LoadEncoder
	if loader == nil {
		loader = LoadEncoder
	}
	backend, loadErr := loader(paths, entry)

	decision, err = DecideBackend(entry.Framework, false, loadErr)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", entry.Identity(), err)
	}
	if decision.Fallback {
		e.useStandIn()
		e.emit(opts.OnEvent, Event{
			Kind:    EventBackendFallback,
			Model:   entry.Identity(),
			Backend: string(BackendStandIn),
			Reason:  loadErr.Error(),
		})
		return e, nil
	}

	e.backend = backend
	e.provenance = Provenance{Name: entry.Name, Version: entry.Version}
	e.logger.Info("scoring with encoder backend", "model", entry.Identity())
	return e, nil
}

func ensureArtifacts(ctx context.Context, opts Options, entry registry.Entry) (EncoderPaths, error) {
	if opts.Store == nil {
		return EncoderPaths{}, errors.NewConfigurationError("model store", "no artifact store configured for %s", entry.Identity())
	}
	weights, err := opts.Store.Ensure(ctx, entry.Name, entry.WeightsFileName(), entry.Weights())
	if err != nil {
		return EncoderPaths{}, err
	}
	vocab, err := opts.Store.Ensure(ctx, entry.Name, entry.TokenizerFileName(), entry.Tokenizer)
	if err != nil {
		return EncoderPaths{}, err
	}
	return EncoderPaths{Weights: weights, Vocabulary: vocab, RuntimeLibrary: opts.RuntimeLibrary}, nil
}

func (e *Engine) useStandIn() {
	e.backend = NewStandIn(e.entry.Name, e.entry.Version)
	e.provenance = Provenance{Name: e.entry.Name, Version: e.entry.Version, StandIn: true}
}

func (e *Engine) emit(sink func(Event), ev Event) {
	e.events = append(e.events, ev)
	e.logger.Warn("full scoring backend unavailable, results come from the stand-in", "model", ev.Model, "reason", ev.Reason)
	if sink != nil {
		sink(ev)
	}
}

// Provenance reports which model and strategy produce the scores.
func (e *Engine) Provenance() Provenance { return e.provenance }

// Backend reports the active strategy.
func (e *Engine) Backend() BackendKind { return e.backend.Kind() }

// Events returns the structured events raised while preparing the engine.
func (e *Engine) Events() []Event {
	return append([]Event(nil), e.events...)
}

// Score returns one score per input, in input order. Batches may run concurrently but each
// writes only its own slice of the result, so neither batch size nor worker count affect output.
// Any backend failure fails the whole call.
func (e *Engine) Score(ctx context.Context, inputs []Input) ([]float64, error) {
	results := make([]float64, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for batch, start := 0, 0; start < len(inputs); batch, start = batch+1, start+e.batchSize {
		batch, start := batch, start
		end := min(start+e.batchSize, len(inputs))
		g.Go(func() error {
			return e.scoreBatch(gctx, batch, inputs[start:end], results[start:end])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Debug("findings scored", "model", e.provenance.String(), "count", len(inputs), "batch_size", e.batchSize)
	return results, nil
}

func (e *Engine) scoreBatch(ctx context.Context, batch int, in []Input, out []float64) error {
	failure := func(f schema.Finding, err error) error {
		return &errors.ScoringFailureError{Model: e.provenance.String(), Batch: batch, Finding: f.Location(), Err: err}
	}

	if err := ctx.Err(); err != nil {
		return failure(in[0].Finding, err)
	}
	scores, err := e.backend.Score(ctx, in)
	if err != nil {
		return failure(in[0].Finding, err)
	}
	if len(scores) != len(in) {
		return failure(in[0].Finding, fmt.Errorf("backend returned %d scores for %d findings", len(scores), len(in)))
	}
	for i, s := range scores {
		if err := schema.ValidateScore(s); err != nil {
			return failure(in[i].Finding, err)
		}
		out[i] = s
	}
	return nil
}

// Close releases backend resources.
func (e *Engine) Close() error {
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}
