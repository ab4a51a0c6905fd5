package pipeline

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/iacsec/internal/adapter"
	"github.com/scan-io-git/iacsec/internal/registry"
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/internal/scoring"
	"github.com/scan-io-git/iacsec/internal/sourcectx"
	"github.com/scan-io-git/iacsec/internal/threshold"
	"github.com/scan-io-git/iacsec/pkg/shared"
)

// Scorer is the part of scoring.Engine the pipeline depends on.
type Scorer interface {
	Score(ctx context.Context, inputs []scoring.Input) ([]float64, error)
	Provenance() scoring.Provenance
	Events() []scoring.Event
	Close() error
}

// ContextReader supplies the source lines handed to the scorer next to each finding.
type ContextReader interface {
	Window(relPath string, line int) string
}

// Config is everything Prepare needs to build a run.
type Config struct {
	Registry     *registry.Registry
	Model        string
	Threshold    *float64
	Root         string
	DefaultTech  schema.Technology
	ContextLines int
	Engine       scoring.Options
	Logger       hclog.Logger
}

// Pipeline merges auto-accepted and scored findings into joined records.
type Pipeline struct {
	scorer    Scorer
	threshold float64
	context   ContextReader
	adapter   *adapter.Adapter
	logger    hclog.Logger
}

// Result is the ordered output of one run.
type Result struct {
	Records   []schema.JoinedRecord
	Threshold float64
	Model     string
	Events    []scoring.Event
	Scored    int
}

// TruePositives counts records labelled TP.
func (r *Result) TruePositives() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Prediction.TruePositive() {
			n++
		}
	}
	return n
}

// Prepare resolves the threshold and builds the scoring engine. Model artifacts are verified
// here, before any analyzer output is read, so a bad digest aborts the run up front.
func Prepare(ctx context.Context, cfg Config) (*Pipeline, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	t, err := threshold.Resolve(cfg.Registry, cfg.Model, cfg.Threshold)
	if err != nil {
		return nil, err
	}

	engineOpts := cfg.Engine
	if engineOpts.Logger == nil {
		engineOpts.Logger = logger.Named("scoring")
	}
	engine, err := scoring.NewEngine(ctx, cfg.Registry, cfg.Model, engineOpts)
	if err != nil {
		return nil, err
	}

	logger.Info("pipeline ready", "model", engine.Provenance().String(), "threshold", t)
	return &Pipeline{
		scorer:    engine,
		threshold: t,
		context:   sourcectx.NewReader(cfg.Root, cfg.ContextLines),
		adapter:   adapter.New(cfg.Root, cfg.DefaultTech, logger.Named("adapter")),
		logger:    logger,
	}, nil
}

// New assembles a Pipeline from already prepared parts.
func New(scorer Scorer, t float64, reader ContextReader, ad *adapter.Adapter, logger hclog.Logger) *Pipeline {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Pipeline{scorer: scorer, threshold: t, context: reader, adapter: ad, logger: logger}
}

// Threshold is the effective threshold of the run.
func (p *Pipeline) Threshold() float64 { return p.threshold }

// Provenance reports which model and strategy produce the scores.
func (p *Pipeline) Provenance() scoring.Provenance { return p.scorer.Provenance() }

// Process adapts raw analyzer records and runs them through Run.
func (p *Pipeline) Process(ctx context.Context, records []shared.RawRecord) (*Result, error) {
	if p.adapter == nil {
		return nil, fmt.Errorf("pipeline has no adapter configured")
	}
	pairs, err := p.adapter.Adapt(records)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, pairs)
}

// Run scores pending pairs, labels them against the threshold and joins every pair with its
// verdict. Output order is the order of pairs.
func (p *Pipeline) Run(ctx context.Context, pairs []adapter.Pair) (*Result, error) {
	var (
		inputs  []scoring.Input
		indexes []int
	)
	for i, pair := range pairs {
		if !pair.Pending() {
			continue
		}
		var window string
		if p.context != nil {
			window = p.context.Window(pair.Finding.File(), pair.Finding.Line())
		}
		inputs = append(inputs, scoring.Input{Finding: pair.Finding, Context: window})
		indexes = append(indexes, i)
	}

	verdicts := make([]schema.Verdict, len(pairs))
	for i, pair := range pairs {
		if !pair.Pending() {
			verdicts[i] = *pair.Verdict
		}
	}

	if len(inputs) > 0 {
		scores, err := p.scorer.Score(ctx, inputs)
		if err != nil {
			return nil, err
		}
		for j, score := range scores {
			v, err := threshold.Apply(score, p.threshold)
			if err != nil {
				return nil, fmt.Errorf("failed to label %s: %w", inputs[j].Finding.Location(), err)
			}
			verdicts[indexes[j]] = v
		}
	}

	model := p.scorer.Provenance().String()
	records := make([]schema.JoinedRecord, len(pairs))
	for i, pair := range pairs {
		rec, err := schema.NewJoinedRecord(pair.Finding, verdicts[i], p.threshold, model)
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}

	result := &Result{
		Records:   records,
		Threshold: p.threshold,
		Model:     model,
		Events:    p.scorer.Events(),
		Scored:    len(inputs),
	}
	p.logger.Info("findings processed",
		"findings", len(records),
		"scored", len(inputs),
		"auto_accepted", len(records)-len(inputs),
		"true_positives", result.TruePositives(),
	)
	return result, nil
}

// Close releases the scorer.
func (p *Pipeline) Close() error {
	return p.scorer.Close()
}
