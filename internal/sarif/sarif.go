package sarif

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/iacsec/internal/schema"
)

// Result property keys.
const (
	PropertyScore      = "score"
	PropertyRationale  = "rationale"
	PropertyPrediction = "prediction"
	PropertyThreshold  = "threshold"
	PropertyModel      = "model"
)

type Report struct {
	*sarif.Report
	logger hclog.Logger
}

type ToolMetadata struct {
	Name           string
	Version        string
	InformationURI string
	RulesVersion   string
}

// VersionControl identifies the revision a report was produced for.
type VersionControl struct {
	RepositoryURI string
	RevisionID    string
	Branch        string
	RevisionTag   string
}

// Options controls the run-level fields of an exported report.
type Options struct {
	Tool ToolMetadata
	// VersionControl, when set, is recorded as the run's versionControlProvenance.
	VersionControl *VersionControl
	// Timestamp is written as the conversion start time. It must be fixed for byte-identical output.
	Timestamp time.Time
}

// Build converts joined records into a SARIF 2.1.0 report. Only true positives become results;
// rules are declared in the order their first result appears.
func Build(records []schema.JoinedRecord, opts Options, logger hclog.Logger) (*Report, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create sarif report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(opts.Tool.Name, opts.Tool.InformationURI)
	driver := run.Tool.Driver
	if opts.Tool.Version != "" {
		driver.WithVersion(opts.Tool.Version).WithSemanticVersion(opts.Tool.Version)
	}
	if opts.Tool.RulesVersion != "" {
		driver.Properties = sarif.Properties{"rules_version": opts.Tool.RulesVersion}
	}

	skipped := 0
	for _, rec := range records {
		if !rec.Prediction.TruePositive() {
			skipped++
			continue
		}
		addResult(run, rec)
	}

	run.WithConversion(sarif.NewConversion().
		WithTool(sarif.NewSimpleTool(opts.Tool.Name)).
		WithInvocation(sarif.NewInvocation().
			WithStartTimeUTC(opts.Timestamp).
			WithExecutionSuccess(true)))
	run.WithAutomationDetails(sarif.NewRunAutomationDetails().WithGUID(runGUID(opts.Tool, records)))
	if vc := opts.VersionControl; vc != nil && vc.RepositoryURI != "" {
		details := sarif.NewVersionControlDetails().WithRepositoryURI(vc.RepositoryURI)
		if vc.RevisionID != "" {
			details.WithRevisionID(vc.RevisionID)
		}
		if vc.Branch != "" {
			details.WithBranch(vc.Branch)
		}
		if vc.RevisionTag != "" {
			details.WithRevisionTag(vc.RevisionTag)
		}
		run.AddVersionControlProvenance(details)
	}

	report.AddRun(run)
	logger.Debug("sarif report built", "results", len(run.Results), "rules", len(driver.Rules), "false_positives_skipped", skipped)

	return &Report{Report: report, logger: logger}, nil
}

func addResult(run *sarif.Run, rec schema.JoinedRecord) {
	f := rec.Detection
	level := levelForSeverity(f.Severity())

	if _, err := run.GetRuleById(f.RuleID()); err != nil {
		run.AddRule(f.RuleID()).
			WithDescription(f.Message()).
			WithDefaultConfiguration(sarif.NewReportingConfiguration().WithLevel(level)).
			WithProperties(sarif.Properties{
				"category": string(f.Category()),
				"severity": string(f.Severity()),
				"smell":    string(f.Category()),
			})
	}

	region := sarif.NewRegion()
	if f.Line() >= 1 {
		region.WithStartLine(f.Line())
	}
	if f.Snippet() != "" {
		region.WithSnippet(sarif.NewArtifactContent().WithText(f.Snippet()))
	}
	physical := sarif.NewPhysicalLocation().WithArtifactLocation(sarif.NewSimpleArtifactLocation(f.File()))
	if region.StartLine != nil || region.Snippet != nil {
		physical.WithRegion(region)
	}

	result := run.CreateResultForRule(f.RuleID()).
		WithLevel(level).
		WithMessage(sarif.NewTextMessage(f.Message()))
	result.AddLocation(sarif.NewLocationWithPhysicalLocation(physical))

	pb := sarif.NewPropertyBag()
	pb.Add(PropertyScore, rec.Prediction.Score())
	if rationale := rec.Prediction.Rationale(); rationale != "" {
		pb.Add(PropertyRationale, rationale)
	}
	pb.Add(PropertyPrediction, string(rec.Prediction.Label()))
	pb.Add(PropertyThreshold, rec.Threshold)
	pb.Add(PropertyModel, rec.Model)
	result.AttachPropertyBag(pb)
}

// ReadReport loads a SARIF file written by Write or any other producer.
func ReadReport(inputPath string, logger hclog.Logger) (*Report, error) {
	report, err := sarif.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sarif report %s: %w", inputPath, err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Report{Report: report, logger: logger}, nil
}

// ExtractToolNameAndVersion function extracts tool name and version from a sarif report
func (r Report) ExtractToolNameAndVersion() (*ToolMetadata, error) {
	if len(r.Runs) == 0 || r.Runs[0].Tool.Driver == nil {
		return nil, fmt.Errorf("sarif report has no tool driver")
	}
	driver := r.Runs[0].Tool.Driver
	meta := &ToolMetadata{Name: driver.Name}
	if driver.SemanticVersion != nil {
		meta.Version = *driver.SemanticVersion
	}
	if driver.InformationURI != nil {
		meta.InformationURI = *driver.InformationURI
	}
	if v, ok := driver.Properties["rules_version"].(string); ok {
		meta.RulesVersion = v
	}
	return meta, nil
}

// function that collects information about amount of low, mediumn and high severity issues
// returns a map with this information, and a total amount of issues
func (r Report) CollectSeverityInfo() map[string]int {
	severityInfo := map[string]int{
		"low":    0,
		"medium": 0,
		"high":   0,
		"total":  0,
	}

	for _, run := range r.Runs {
		for _, result := range run.Results {
			level := ""
			if result.Level != nil {
				level = *result.Level
			}
			switch level {
			case "error":
				severityInfo["high"]++
			case "warning":
				severityInfo["medium"]++
			default:
				severityInfo["low"]++
			}
			severityInfo["total"]++
		}
	}

	return severityInfo
}

// Write pretty-prints the report with a two-space indent.
func (r Report) Write(w io.Writer) error {
	if err := r.PrettyWrite(w); err != nil {
		return fmt.Errorf("failed to write sarif report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
