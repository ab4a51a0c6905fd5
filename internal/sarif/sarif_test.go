package sarif

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/scan-io-git/iacsec/internal/schema"
)

var testTool = ToolMetadata{
	Name:           "iacsec",
	Version:        "1.2.0",
	InformationURI: "https://github.com/scan-io-git/iacsec",
	RulesVersion:   "2024.2",
}

type recordSpec struct {
	rule     string
	category schema.Category
	severity schema.Severity
	file     string
	line     int
	snippet  string
	label    schema.Label
	score    float64
}

func makeRecord(t *testing.T, s recordSpec) schema.JoinedRecord {
	t.Helper()
	f, err := schema.NewFinding(schema.FindingParams{
		RuleID:   s.rule,
		Category: s.category,
		Tech:     schema.TechAnsible,
		File:     s.file,
		Line:     s.line,
		Snippet:  s.snippet,
		Message:  "message for " + s.rule,
		Severity: s.severity,
	})
	if err != nil {
		t.Fatalf("failed to build finding: %v", err)
	}
	rationale := schema.RationaleAboveThreshold
	if s.label == schema.LabelFalsePositive {
		rationale = schema.RationaleBelowThreshold
	}
	v, err := schema.NewVerdict(s.label, s.score, rationale)
	if err != nil {
		t.Fatalf("failed to build verdict: %v", err)
	}
	rec, err := schema.NewJoinedRecord(f, v, 0.61, "codet5p-220m@1.0.0")
	if err != nil {
		t.Fatalf("failed to build record: %v", err)
	}
	return rec
}

func mixedRecords(t *testing.T) []schema.JoinedRecord {
	return []schema.JoinedRecord{
		makeRecord(t, recordSpec{"HTTP_NO_TLS", schema.CategoryHTTP, schema.SeverityMedium, "a/b.yml", 42, "url: http://x", schema.LabelTruePositive, 0.7}),
		makeRecord(t, recordSpec{"HARDCODED_SECRET", schema.CategoryHardcodedSecret, schema.SeverityHigh, "a/c.yml", 3, "token: abc", schema.LabelFalsePositive, 0.2}),
		makeRecord(t, recordSpec{"EMPTY_PASSWORD", schema.CategoryEmptyPassword, schema.SeverityHigh, "a/c.yml", 9, "password: ''", schema.LabelTruePositive, 1}),
		makeRecord(t, recordSpec{"HTTP_NO_TLS", schema.CategoryHTTP, schema.SeverityMedium, "a/d.yml", 1, "src: http://y", schema.LabelTruePositive, 0.9}),
		makeRecord(t, recordSpec{"SUSPICIOUS_COMMENT", schema.CategorySuspiciousComment, schema.SeverityLow, "a/d.yml", 0, "", schema.LabelTruePositive, 0.8}),
	}
}

func build(t *testing.T, records []schema.JoinedRecord) *Report {
	t.Helper()
	report, err := Build(records, Options{Tool: testTool, Timestamp: time.Unix(0, 0)}, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return report
}

func render(t *testing.T, report *Report) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := report.Write(&buf); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	return buf.Bytes()
}

func TestBuildExportsTruePositivesOnly(t *testing.T) {
	report := build(t, mixedRecords(t))

	run := report.Runs[0]
	if len(run.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(run.Results))
	}
	for _, res := range run.Results {
		if *res.RuleID == "HARDCODED_SECRET" {
			t.Fatalf("false positive HARDCODED_SECRET must not be exported")
		}
		if res.Properties[PropertyPrediction] != "TP" {
			t.Fatalf("expected prediction TP, got %v", res.Properties[PropertyPrediction])
		}
	}

	var ruleIDs []string
	for _, rule := range run.Tool.Driver.Rules {
		ruleIDs = append(ruleIDs, rule.ID)
	}
	if diff := cmp.Diff([]string{"HTTP_NO_TLS", "EMPTY_PASSWORD", "SUSPICIOUS_COMMENT"}, ruleIDs); diff != "" {
		t.Fatalf("unexpected rule order (-want +got):\n%s", diff)
	}

	wantLevels := []string{"warning", "error", "warning", "note"}
	for i, res := range run.Results {
		if *res.Level != wantLevels[i] {
			t.Fatalf("result %d: expected level %q, got %q", i, wantLevels[i], *res.Level)
		}
	}
}

func TestBuildResultShape(t *testing.T) {
	out := render(t, build(t, mixedRecords(t)[:1]))

	var doc struct {
		Version string                   `json:"version"`
		Runs    []map[string]interface{} `json:"runs"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if doc.Version != "2.1.0" {
		t.Fatalf("expected sarif 2.1.0, got %q", doc.Version)
	}

	results := doc.Runs[0]["results"].([]interface{})
	want := map[string]interface{}{
		"ruleId":  "HTTP_NO_TLS",
		"level":   "warning",
		"message": map[string]interface{}{"text": "message for HTTP_NO_TLS"},
		"locations": []interface{}{
			map[string]interface{}{
				"physicalLocation": map[string]interface{}{
					"artifactLocation": map[string]interface{}{"uri": "a/b.yml"},
					"region": map[string]interface{}{
						"startLine": float64(42),
						"snippet":   map[string]interface{}{"text": "url: http://x"},
					},
				},
			},
		},
		"properties": map[string]interface{}{
			"score":      0.7,
			"rationale":  "score>=threshold",
			"prediction": "TP",
			"threshold":  0.61,
			"model":      "codet5p-220m@1.0.0",
		},
	}
	if diff := cmp.Diff(want, results[0]); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}

	rules := doc.Runs[0]["tool"].(map[string]interface{})["driver"].(map[string]interface{})["rules"].([]interface{})
	wantRule := map[string]interface{}{
		"id":                   "HTTP_NO_TLS",
		"shortDescription":     map[string]interface{}{"text": "message for HTTP_NO_TLS"},
		"defaultConfiguration": map[string]interface{}{"level": "warning"},
		"properties":           map[string]interface{}{"category": "http", "severity": "medium", "smell": "http"},
	}
	if diff := cmp.Diff(wantRule, rules[0]); diff != "" {
		t.Fatalf("unexpected rule (-want +got):\n%s", diff)
	}

	if !strings.Contains(string(out), `"startTimeUtc": "1970-01-01T00:00:00Z"`) {
		t.Fatalf("expected fixed epoch start time in output:\n%s", out)
	}
}

func TestBuildFileLevelFindingHasNoStartLine(t *testing.T) {
	report := build(t, mixedRecords(t)[4:])
	loc := report.Runs[0].Results[0].Locations[0].PhysicalLocation
	if loc.Region != nil {
		t.Fatalf("expected no region for a line 0 finding without snippet, got %+v", loc.Region)
	}
	if *loc.ArtifactLocation.URI != "a/d.yml" {
		t.Fatalf("unexpected uri %q", *loc.ArtifactLocation.URI)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	first := render(t, build(t, mixedRecords(t)))
	second := render(t, build(t, mixedRecords(t)))
	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Fatalf("identical input produced different output (-first +second):\n%s", diff)
	}

	changed := mixedRecords(t)
	changed[0] = makeRecord(t, recordSpec{"HTTP_NO_TLS", schema.CategoryHTTP, schema.SeverityMedium, "a/b.yml", 43, "url: http://x", schema.LabelTruePositive, 0.7})
	a := *build(t, mixedRecords(t)).Runs[0].AutomationDetails.GUID
	b := *build(t, changed).Runs[0].AutomationDetails.GUID
	if a == b {
		t.Fatalf("expected run guid to change with content, both were %s", a)
	}
}

func TestBuildEmpty(t *testing.T) {
	out := render(t, build(t, nil))
	if !strings.Contains(string(out), `"results": []`) {
		t.Fatalf("expected an empty results array:\n%s", out)
	}
}

func TestReadReportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sarif")
	if err := os.WriteFile(path, render(t, build(t, mixedRecords(t))), 0o644); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	report, err := ReadReport(path, nil)
	if err != nil {
		t.Fatalf("ReadReport returned error: %v", err)
	}
	meta, err := report.ExtractToolNameAndVersion()
	if err != nil {
		t.Fatalf("ExtractToolNameAndVersion returned error: %v", err)
	}
	if diff := cmp.Diff(testTool, *meta); diff != "" {
		t.Fatalf("unexpected tool metadata (-want +got):\n%s", diff)
	}

	got := report.CollectSeverityInfo()
	want := map[string]int{"low": 1, "medium": 2, "high": 1, "total": 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected severity info (-want +got):\n%s", diff)
	}
}

func TestDisplaySeverity(t *testing.T) {
	cases := map[string]string{
		"error":    "High",
		"warning":  "Medium",
		" note ":   "Low",
		"none":     "Info",
		"":         "",
		"critical": "Critical",
	}
	for in, want := range cases {
		if got := DisplaySeverity(in); got != want {
			t.Fatalf("DisplaySeverity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildVersionControlProvenance(t *testing.T) {
	report := build(t, mixedRecords(t)[:1])
	if len(report.Runs[0].VersionControlProvenance) != 0 {
		t.Fatalf("expected no provenance without version control options")
	}

	report, err := Build(mixedRecords(t)[:1], Options{
		Tool:      testTool,
		Timestamp: time.Unix(0, 0),
		VersionControl: &VersionControl{
			RepositoryURI: "https://github.com/octocat/playbooks",
			RevisionID:    "abc123",
			Branch:        "main",
		},
	}, nil)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	provenance := report.Runs[0].VersionControlProvenance
	if len(provenance) != 1 {
		t.Fatalf("expected one provenance entry, got %d", len(provenance))
	}
	vc := provenance[0]
	if *vc.RepositoryURI != "https://github.com/octocat/playbooks" || *vc.RevisionID != "abc123" || *vc.Branch != "main" {
		t.Fatalf("unexpected provenance: %+v", vc)
	}
	if vc.RevisionTag != nil {
		t.Fatalf("revision tag should be omitted, got %q", *vc.RevisionTag)
	}
}

func TestSeverityLabel(t *testing.T) {
	cases := map[schema.Severity]string{
		schema.SeverityHigh:   "High",
		schema.SeverityMedium: "Medium",
		schema.SeverityLow:    "Low",
	}
	for in, want := range cases {
		if got := SeverityLabel(in); got != want {
			t.Fatalf("SeverityLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
