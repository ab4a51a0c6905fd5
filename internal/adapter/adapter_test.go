package adapter

import (
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/iacsec/internal/rules"
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

func line(n int) *int { return &n }

func TestAdaptRoutesByDisposition(t *testing.T) {
	root := t.TempDir()
	a := New(root, schema.TechAnsible, nil)

	pairs, err := a.Adapt([]shared.RawRecord{
		{Code: "sec_http_no_ssl", Path: filepath.Join(root, "a", "b.yml"), Line: line(42), Detail: "url: http://x"},
		{Code: "sec_empty_pass", Path: "a/c.yml", Line: line(3), Detail: "password: ''"},
	})
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	scored := pairs[0]
	assert.True(t, scored.Pending())
	assert.Equal(t, "HTTP_NO_TLS", scored.Finding.RuleID())
	assert.Equal(t, "a/b.yml", scored.Finding.File())
	assert.Equal(t, 42, scored.Finding.Line())
	assert.Equal(t, "url: http://x", scored.Finding.Snippet())
	assert.Equal(t, schema.SeverityMedium, scored.Finding.Severity())
	assert.True(t, scored.Finding.RequiresScoring())
	code, _ := scored.Finding.EvidenceValue(EvidenceAnalyzerCode)
	assert.Equal(t, "sec_http_no_ssl", code)

	accepted := pairs[1]
	require.False(t, accepted.Pending())
	assert.False(t, accepted.Finding.RequiresScoring())
	assert.Equal(t, schema.LabelTruePositive, accepted.Verdict.Label())
	assert.Equal(t, 1.0, accepted.Verdict.Score())
	assert.Equal(t, schema.RationaleAutoAccepted, accepted.Verdict.Rationale())
}

func TestAdaptAutoAcceptAlwaysSynthetic(t *testing.T) {
	codes := []string{"sec_def_admin", "sec_empty_pass", "sec_invalid_bind", "sec_no_int_check", "sec_no_default_switch"}
	a := New(t.TempDir(), schema.TechPuppet, nil)

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			pairs, err := a.Adapt([]shared.RawRecord{{Code: code, Path: "site.pp", Line: line(1)}})
			require.NoError(t, err)
			require.Len(t, pairs, 1)
			require.NotNil(t, pairs[0].Verdict)
			assert.Equal(t, schema.AutoAccepted(), *pairs[0].Verdict)
		})
	}
}

func TestAdaptDeduplicates(t *testing.T) {
	root := t.TempDir()
	a := New(root, schema.TechAnsible, nil)
	rec := shared.RawRecord{Code: "sec_https", Path: "x.yml", Line: line(7), Detail: "first"}

	pairs, err := a.Adapt([]shared.RawRecord{rec, rec})
	require.NoError(t, err)
	assert.Len(t, pairs, 1)

	// sec_https and sec_http_no_ssl share a rule id, and absolute/relative spellings share a path.
	pairs, err = a.Adapt([]shared.RawRecord{
		{Code: "sec_susp_comm", Path: "z.yml", Line: line(1)},
		rec,
		{Code: "sec_http_no_ssl", Path: filepath.Join(root, "x.yml"), Line: line(7), Detail: "second"},
		{Code: "sec_https", Path: "x.yml", Line: line(8)},
	})
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, "z.yml", pairs[0].Finding.File())
	assert.Equal(t, "first", pairs[1].Finding.Snippet(), "first occurrence wins")
	assert.Equal(t, 8, pairs[2].Finding.Line())
}

func TestAdaptBackslashPathsShareFinding(t *testing.T) {
	a := New(t.TempDir(), schema.TechAnsible, nil)

	pairs, err := a.Adapt([]shared.RawRecord{
		{Code: "sec_http_no_ssl", Path: `a\b.yml`, Line: line(42)},
		{Code: "sec_http_no_ssl", Path: "a/b.yml", Line: line(42)},
	})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "a/b.yml", pairs[0].Finding.File())
}

func TestBuildPairFailureIsMalformed(t *testing.T) {
	rule, err := rules.Lookup("sec_https")
	require.NoError(t, err)

	_, err = buildPair(normalized{
		index:  3,
		record: shared.RawRecord{Code: "sec_https"},
		path:   "/etc/site.yml",
		line:   1,
		tech:   schema.TechAnsible,
	}, rule)

	var malformed *errors.MalformedRecordError
	require.True(t, stderrors.As(err, &malformed), "got %v", err)
	assert.Equal(t, 3, malformed.Index)
	assert.Equal(t, errors.KindMalformedRecord, errors.KindOf(err))
}

func TestAdaptZeroLineIsFileLevel(t *testing.T) {
	a := New(t.TempDir(), schema.TechChef, nil)
	pairs, err := a.Adapt([]shared.RawRecord{{Code: "sec_no_int_check", Path: "recipes/default.rb", Line: line(0)}})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].Finding.Line())
}

func TestAdaptRecordTechnologyOverridesDefault(t *testing.T) {
	a := New(t.TempDir(), schema.TechAnsible, nil)
	pairs, err := a.Adapt([]shared.RawRecord{{Code: "sec_hard_secr", Path: "manifests/init.pp", Line: line(2), Technology: "puppet"}})
	require.NoError(t, err)
	assert.Equal(t, schema.TechPuppet, pairs[0].Finding.Tech())
}

func TestAdaptMalformedFailsWholeCall(t *testing.T) {
	tests := []struct {
		name   string
		record shared.RawRecord
	}{
		{name: "missing code", record: shared.RawRecord{Path: "a.yml", Line: line(1)}},
		{name: "missing path", record: shared.RawRecord{Code: "sec_https", Line: line(1)}},
		{name: "missing line", record: shared.RawRecord{Code: "sec_https", Path: "a.yml"}},
		{name: "negative line", record: shared.RawRecord{Code: "sec_https", Path: "a.yml", Line: line(-4)}},
		{name: "escaping path", record: shared.RawRecord{Code: "sec_https", Path: "../a.yml", Line: line(1)}},
		{name: "bad technology", record: shared.RawRecord{Code: "sec_https", Path: "a.yml", Line: line(1), Technology: "salt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(t.TempDir(), schema.TechAnsible, nil)
			good := shared.RawRecord{Code: "sec_empty_pass", Path: "ok.yml", Line: line(1)}

			pairs, err := a.Adapt([]shared.RawRecord{good, tt.record})
			assert.Nil(t, pairs)

			var malformed *errors.MalformedRecordError
			require.True(t, stderrors.As(err, &malformed), "got %v", err)
			assert.Equal(t, 1, malformed.Index)
		})
	}
}

func TestAdaptUnmappedRule(t *testing.T) {
	a := New(t.TempDir(), schema.TechAnsible, nil)
	pairs, err := a.Adapt([]shared.RawRecord{
		{Code: "sec_empty_pass", Path: "ok.yml", Line: line(1)},
		{Code: "sec_quantum_leak", Path: "roles/app.yml", Line: line(9)},
	})
	assert.Nil(t, pairs)

	var unmapped *errors.UnmappedRuleError
	require.True(t, stderrors.As(err, &unmapped))
	assert.Equal(t, "sec_quantum_leak", unmapped.Code)
	assert.Equal(t, "roles/app.yml", unmapped.Path)
	assert.Equal(t, 9, unmapped.Line)
}

func TestAdaptMalformedTakesPrecedenceOverUnmapped(t *testing.T) {
	a := New(t.TempDir(), schema.TechAnsible, nil)
	_, err := a.Adapt([]shared.RawRecord{
		{Code: "sec_quantum_leak", Path: "a.yml", Line: line(1)},
		{Code: "sec_https", Path: "b.yml"},
	})
	assert.Equal(t, errors.KindMalformedRecord, errors.KindOf(err))
}
