package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/iacsec/internal/schema"
)

func record(t *testing.T, file string, line int, rule string, category schema.Category, label schema.Label, score float64, rationale string) schema.JoinedRecord {
	t.Helper()
	f, err := schema.NewFinding(schema.FindingParams{
		RuleID:          rule,
		Category:        category,
		Tech:            schema.TechPuppet,
		File:            file,
		Line:            line,
		Snippet:         "$pass = '<secret>' & \"x\"",
		Message:         "finding " + rule,
		Severity:        schema.SeverityHigh,
		RequiresScoring: rationale != schema.RationaleAutoAccepted,
		Evidence:        map[string]interface{}{"analyzer_code": "sec_hard_pass", "nested": map[string]interface{}{"k": []interface{}{"a", 1.5}}},
	})
	require.NoError(t, err)
	v, err := schema.NewVerdict(label, score, rationale)
	require.NoError(t, err)
	rec, err := schema.NewJoinedRecord(f, v, 0.61, "codet5p-220m@1.0.0+standin")
	require.NoError(t, err)
	return rec
}

func sample(t *testing.T) []schema.JoinedRecord {
	return []schema.JoinedRecord{
		record(t, "manifests/z.pp", 7, "HARDCODED_PASSWORD", schema.CategoryHardcodedSecret, schema.LabelTruePositive, 0.93, schema.RationaleAboveThreshold),
		record(t, "manifests/a.pp", 2, "HARDCODED_SECRET", schema.CategoryHardcodedSecret, schema.LabelFalsePositive, 0.12, schema.RationaleBelowThreshold),
		record(t, "manifests/z.pp", 3, "EMPTY_PASSWORD", schema.CategoryEmptyPassword, schema.LabelTruePositive, 1, schema.RationaleAutoAccepted),
		record(t, "manifests/m.pp", 0, "HARDCODED_SECRET", schema.CategoryHardcodedSecret, schema.LabelTruePositive, 0.61, ""),
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	records := sample(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, records))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, len(records), "every record exactly once, TP and FP alike")
	assert.Contains(t, lines[0], `'<secret>' & \"x\"`, "html escaping is disabled")
	assert.Contains(t, lines[3], `"rationale":null`)

	decoded, err := ReadJSONL(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, decoded, len(records))
	for i := range records {
		assert.Equal(t, records[i], decoded[i])
	}

	var again bytes.Buffer
	require.NoError(t, WriteJSONL(&again, decoded))
	assert.Equal(t, buf.String(), again.String())
}

func TestReadJSONLRejectsUnknownFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sample(t)[:1]))
	tampered := strings.Replace(buf.String(), `"model":`, `"extra":1,"model":`, 1)

	_, err := ReadJSONL(strings.NewReader(tampered))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestReadJSONLSkipsBlankLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sample(t)[:2]))
	records, err := ReadJSONL(strings.NewReader("\n" + buf.String() + "\n\n"))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	inventory := []string{"manifests/z.pp", "manifests/clean.pp"}
	require.NoError(t, WriteCSV(&buf, sample(t), inventory))

	want := strings.Join([]string{
		"file,line,category",
		"manifests/a.pp,0,none",
		"manifests/clean.pp,0,none",
		"manifests/m.pp,0,hardcoded-secret",
		"manifests/z.pp,7,hardcoded-secret",
		"manifests/z.pp,3,empty-password",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("unexpected csv (-want +got):\n%s", diff)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, nil))
	assert.Equal(t, "file,line,category\n", buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sample(t)))

	out := buf.String()
	assert.Contains(t, out, "RULE")
	assert.Contains(t, out, "HARDCODED_PASSWORD")
	assert.Contains(t, out, "High")
	assert.Contains(t, out, "0.930")
	assert.Contains(t, out, "manifests/z.pp:7")
	assert.Contains(t, out, "4 findings, 3 true positives, 1 filtered")
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []Format
		wantErr bool
	}{
		{in: "sarif", want: []Format{FormatSARIF}},
		{in: "sarif, JSON,csv,table", want: []Format{FormatSARIF, FormatJSON, FormatCSV, FormatTable}},
		{in: "csv,csv,sarif", want: []Format{FormatCSV, FormatSARIF}},
		{in: "xml", wantErr: true},
		{in: " , ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormats(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, ".jsonl", FormatJSON.Extension())
}
