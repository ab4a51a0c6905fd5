package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() FindingParams {
	return FindingParams{
		RuleID:          "HTTP_NO_TLS",
		Category:        CategoryHTTP,
		Tech:            TechAnsible,
		File:            "a/b.yml",
		Line:            42,
		Snippet:         "url: http://x",
		Message:         "Use of HTTP without TLS",
		Severity:        SeverityMedium,
		RequiresScoring: true,
		Evidence:        map[string]interface{}{"analyzer_code": "sec_https"},
	}
}

func TestNewFindingValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *FindingParams)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *FindingParams) {}},
		{name: "file level line zero", mutate: func(p *FindingParams) { p.Line = 0 }},
		{name: "negative line", mutate: func(p *FindingParams) { p.Line = -1 }, wantErr: true},
		{name: "missing rule", mutate: func(p *FindingParams) { p.RuleID = " " }, wantErr: true},
		{name: "unknown category", mutate: func(p *FindingParams) { p.Category = "xss" }, wantErr: true},
		{name: "unknown tech", mutate: func(p *FindingParams) { p.Tech = "terraform" }, wantErr: true},
		{name: "unknown severity", mutate: func(p *FindingParams) { p.Severity = "critical" }, wantErr: true},
		{name: "absolute path", mutate: func(p *FindingParams) { p.File = "/etc/site.yml" }, wantErr: true},
		{name: "backslash path", mutate: func(p *FindingParams) { p.File = `roles\web.yml` }, wantErr: true},
		{name: "escaping path", mutate: func(p *FindingParams) { p.File = "../x.yml" }, wantErr: true},
		{name: "empty path", mutate: func(p *FindingParams) { p.File = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			_, err := NewFinding(p)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFindingEvidenceIsCopied(t *testing.T) {
	p := validParams()
	f, err := NewFinding(p)
	require.NoError(t, err)

	p.Evidence["analyzer_code"] = "tampered"
	got := f.Evidence()
	got["analyzer_code"] = "tampered again"
	got[EvidenceRequiresScoring] = false

	code, _ := f.EvidenceValue("analyzer_code")
	assert.Equal(t, "sec_https", code)
	assert.True(t, f.RequiresScoring())
}

func TestFindingUnmarshalRejectsUnknownFields(t *testing.T) {
	raw := `{"rule_id":"HTTP_NO_TLS","smell":"http","tech":"ansible","file":"a.yml","line":1,` +
		`"snippet":"","message":"m","severity":"low","evidence":{"requires-scoring":true},"extra":1}`
	var f Finding
	assert.Error(t, json.Unmarshal([]byte(raw), &f))
}

func TestFindingUnmarshalRequiresLineAndFlag(t *testing.T) {
	noLine := `{"rule_id":"R","smell":"http","tech":"ansible","file":"a.yml","snippet":"","message":"m","severity":"low","evidence":{"requires-scoring":true}}`
	var f Finding
	assert.Error(t, json.Unmarshal([]byte(noLine), &f))

	noFlag := `{"rule_id":"R","smell":"http","tech":"ansible","file":"a.yml","line":3,"snippet":"","message":"m","severity":"low","evidence":{}}`
	var g Finding
	assert.Error(t, json.Unmarshal([]byte(noFlag), &g))
}

func TestConstructedValuesRefuseOverwrite(t *testing.T) {
	f, err := NewFinding(validParams())
	require.NoError(t, err)
	data, err := json.Marshal(f)
	require.NoError(t, err)

	assert.Error(t, json.Unmarshal(data, &f), "decoding into a constructed finding must fail")
	assert.Equal(t, 42, f.Line())

	v, err := NewVerdict(LabelFalsePositive, 0.2, RationaleBelowThreshold)
	require.NoError(t, err)
	assert.Error(t, json.Unmarshal([]byte(`{"label":"TP","score":1,"rationale":null}`), &v))
	assert.Equal(t, LabelFalsePositive, v.Label())
}

func TestNewVerdict(t *testing.T) {
	tests := []struct {
		name    string
		label   Label
		score   float64
		wantErr bool
	}{
		{name: "lower bound", label: LabelFalsePositive, score: 0},
		{name: "upper bound", label: LabelTruePositive, score: 1},
		{name: "above one", label: LabelTruePositive, score: 1.0000001, wantErr: true},
		{name: "negative", label: LabelFalsePositive, score: -0.1, wantErr: true},
		{name: "nan", label: LabelTruePositive, score: math.NaN(), wantErr: true},
		{name: "bad label", label: "MAYBE", score: 0.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVerdict(tt.label, tt.score, "")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAutoAccepted(t *testing.T) {
	v := AutoAccepted()
	assert.Equal(t, LabelTruePositive, v.Label())
	assert.Equal(t, 1.0, v.Score())
	assert.Equal(t, "auto-accepted", v.Rationale())
}

func TestJoinedRecordRoundTrip(t *testing.T) {
	f, err := NewFinding(validParams())
	require.NoError(t, err)
	v, err := NewVerdict(LabelFalsePositive, 0.3141592653589793, RationaleBelowThreshold)
	require.NoError(t, err)
	rec, err := NewJoinedRecord(f, v, 0.61, "codet5p-220m@1.0.0")
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back JoinedRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestJoinedRecordRoundTripWithoutRationale(t *testing.T) {
	p := validParams()
	p.Line = 0
	f, err := NewFinding(p)
	require.NoError(t, err)
	v, err := NewVerdict(LabelTruePositive, 0.9, "")
	require.NoError(t, err)
	rec, err := NewJoinedRecord(f, v, 0.5, "m@1")
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rationale":null`)

	var back JoinedRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestJoinedRecordRejectsUnknownTopLevelField(t *testing.T) {
	f, err := NewFinding(validParams())
	require.NoError(t, err)
	rec, err := NewJoinedRecord(f, AutoAccepted(), 0.5, "m@1")
	require.NoError(t, err)
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	tampered := append(data[:len(data)-1], []byte(`,"score":1}`)...)
	var back JoinedRecord
	assert.Error(t, json.Unmarshal(tampered, &back))
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
	assert.Equal(t, 0, Severity("unknown").Rank())
}
