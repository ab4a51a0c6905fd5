package adapter

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/iacsec/internal/rules"
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
	"github.com/scan-io-git/iacsec/pkg/shared/files"
)

// Evidence keys recorded next to the requires-scoring flag.
const (
	EvidenceAnalyzerCode   = "analyzer_code"
	EvidenceAnalyzerDetail = "analyzer_detail"
)

// Pair is an adapted finding with its verdict. Verdict is nil until the finding is scored.
type Pair struct {
	Finding schema.Finding
	Verdict *schema.Verdict
}

// Pending reports whether the finding still waits for a scoring verdict.
func (p Pair) Pending() bool {
	return p.Verdict == nil
}

// Adapter turns raw analyzer records into normalized findings.
type Adapter struct {
	root        string
	defaultTech schema.Technology
	logger      hclog.Logger
}

// New returns an Adapter resolving paths against root. defaultTech applies to records
// that do not carry their own technology.
func New(root string, defaultTech schema.Technology, logger hclog.Logger) *Adapter {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Adapter{root: root, defaultTech: defaultTech, logger: logger}
}

type normalized struct {
	index  int
	record shared.RawRecord
	path   string
	line   int
	tech   schema.Technology
}

// Adapt validates every record before mapping any of them, so one malformed record fails the
// whole call. Output keeps the order of first occurrence.
func (a *Adapter) Adapt(records []shared.RawRecord) ([]Pair, error) {
	prepared := make([]normalized, 0, len(records))
	for i, rec := range records {
		n, err := a.normalize(i, rec)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, n)
	}

	pairs := make([]Pair, 0, len(prepared))
	seen := make(map[schema.Key]struct{}, len(prepared))
	duplicates := 0

	for _, n := range prepared {
		rule, err := rules.Lookup(n.record.Code)
		if err != nil {
			return nil, &errors.UnmappedRuleError{Code: n.record.Code, Path: n.path, Line: n.line}
		}

		key := schema.Key{File: n.path, Line: n.line, RuleID: rule.RuleID}
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}

		pair, err := buildPair(n, rule)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	a.logger.Debug("raw records adapted", "records", len(records), "findings", len(pairs), "duplicates", duplicates)
	return pairs, nil
}

func (a *Adapter) normalize(index int, rec shared.RawRecord) (normalized, error) {
	if rec.Code == "" {
		return normalized{}, &errors.MalformedRecordError{Index: index, Reason: "rule code is missing"}
	}
	if rec.Path == "" {
		return normalized{}, &errors.MalformedRecordError{Index: index, Reason: "file path is missing"}
	}
	if rec.Line == nil {
		return normalized{}, &errors.MalformedRecordError{Index: index, Reason: fmt.Sprintf("line is missing for %s", rec.Path)}
	}
	if *rec.Line < 0 {
		return normalized{}, &errors.MalformedRecordError{Index: index, Reason: fmt.Sprintf("negative line %d for %s", *rec.Line, rec.Path)}
	}

	tech := a.defaultTech
	if rec.Technology != "" {
		tech = schema.Technology(rec.Technology)
	}
	if !tech.Valid() {
		return normalized{}, &errors.MalformedRecordError{Index: index, Reason: fmt.Sprintf("unsupported technology %q for %s", tech, rec.Path)}
	}

	path, err := files.RelativeToRoot(a.root, rec.Path)
	if err != nil {
		return normalized{}, &errors.MalformedRecordError{Index: index, Reason: err.Error()}
	}

	return normalized{index: index, record: rec, path: path, line: *rec.Line, tech: tech}, nil
}

func buildPair(n normalized, rule rules.Rule) (Pair, error) {
	requiresScoring := rule.Disposition == rules.RequiresScoring

	evidence := map[string]interface{}{EvidenceAnalyzerCode: n.record.Code}
	if n.record.Detail != "" {
		evidence[EvidenceAnalyzerDetail] = n.record.Detail
	}

	finding, err := schema.NewFinding(schema.FindingParams{
		RuleID:          rule.RuleID,
		Category:        rule.Category,
		Tech:            n.tech,
		File:            n.path,
		Line:            n.line,
		Snippet:         n.record.Detail,
		Message:         rule.Message,
		Severity:        rule.Severity,
		RequiresScoring: requiresScoring,
		Evidence:        evidence,
	})
	if err != nil {
		return Pair{}, &errors.MalformedRecordError{Index: n.index, Reason: err.Error()}
	}

	if requiresScoring {
		return Pair{Finding: finding}, nil
	}
	verdict := schema.AutoAccepted()
	return Pair{Finding: finding, Verdict: &verdict}, nil
}
