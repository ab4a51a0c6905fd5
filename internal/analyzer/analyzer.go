package analyzer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared"
	"github.com/scan-io-git/iacsec/pkg/shared/config"
	"github.com/scan-io-git/iacsec/pkg/shared/files"
)

// DefaultPlugin is the analyzer plugin binary used when --plugin is not given.
const DefaultPlugin = "glitch"

// launchFunc runs one request against the plugin and returns its records.
type launchFunc func(cfg *config.Config, pluginName string, req shared.AnalyzerRequest) (shared.AnalyzerResponse, error)

// Runner drives an analyzer plugin over a scan root, one technology at a time.
type Runner struct {
	pluginName     string       // Name of the analyzer plugin to use
	additionalArgs []string     // Additional arguments for the analyzer
	logger         hclog.Logger // Logger for logging messages and errors
	launch         launchFunc
}

// New creates a Runner for pluginName.
func New(pluginName string, additionalArgs []string, logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{
		pluginName:     config.SetThen(pluginName, DefaultPlugin),
		additionalArgs: additionalArgs,
		logger:         logger,
		launch:         analyzeWithPlugin,
	}
}

// PrepareRequests builds one request per technology, each with its own results folder.
func (r *Runner) PrepareRequests(cfg *config.Config, targetPath string, techs []schema.Technology) ([]shared.AnalyzerRequest, error) {
	requests := make([]shared.AnalyzerRequest, 0, len(techs))
	for _, t := range techs {
		resultsPath := filepath.Join(config.GetResultsHome(cfg), r.generateNameTemplate(cfg, t))
		if err := files.CreateFolderIfNotExists(resultsPath); err != nil {
			return nil, fmt.Errorf("failed to create results folder '%s': %w", resultsPath, err)
		}
		requests = append(requests, shared.AnalyzerRequest{
			TargetPath:     targetPath,
			Technology:     string(t),
			ResultsPath:    resultsPath,
			AdditionalArgs: r.additionalArgs,
		})
	}
	return requests, nil
}

// generateNameTemplate names a results folder; outside CI each run gets its own timestamped folder.
func (r *Runner) generateNameTemplate(cfg *config.Config, t schema.Technology) string {
	nameTemplate := fmt.Sprintf("iacsec-%s-%s", r.pluginName, t)
	if !config.IsCI(cfg) {
		startTime := time.Now().UTC().Format("20060102T150405Z")
		nameTemplate = fmt.Sprintf("iacsec-%s-%s-%s", r.pluginName, t, startTime)
	}
	return nameTemplate
}

// Run analyzes targetPath for every technology in techs, sequentially, and concatenates the
// records in technology order. Records are tagged with the technology they were produced for.
func (r *Runner) Run(cfg *config.Config, targetPath string, techs []schema.Technology) ([]shared.RawRecord, error) {
	if len(techs) == 0 {
		r.logger.Info("no IaC technology detected, analyzer not started", "target", targetPath)
		return nil, nil
	}

	requests, err := r.PrepareRequests(cfg, targetPath, techs)
	if err != nil {
		return nil, err
	}

	var records []shared.RawRecord
	for _, req := range requests {
		r.logger.Info("analyzer starting", "plugin", r.pluginName, "technology", req.Technology, "target", req.TargetPath)

		resp, err := r.launch(cfg, r.pluginName, req)
		if err != nil {
			return nil, fmt.Errorf("analyzer %q failed for %s: %w", r.pluginName, req.Technology, err)
		}
		for _, rec := range resp.Records {
			if rec.Technology == "" {
				rec.Technology = req.Technology
			}
			records = append(records, rec)
		}
		r.logger.Debug("analyzer finished", "technology", req.Technology, "records", len(resp.Records))
	}

	r.logger.Info("analysis complete", "technologies", len(requests), "records", len(records))
	return records, nil
}

// analyzeWithPlugin executes one analysis through the plugin binary.
func analyzeWithPlugin(cfg *config.Config, pluginName string, req shared.AnalyzerRequest) (shared.AnalyzerResponse, error) {
	var result shared.AnalyzerResponse

	err := shared.WithPlugin(cfg, "plugin-analyzer", shared.PluginTypeAnalyzer, pluginName, func(raw interface{}) error {
		analyzer, ok := raw.(shared.Analyzer)
		if !ok {
			return fmt.Errorf("invalid plugin type")
		}
		if _, err := analyzer.Setup(*cfg); err != nil {
			return fmt.Errorf("analyzer plugin setup failed: %w", err)
		}
		var err error
		result, err = analyzer.Analyze(req)
		if err != nil {
			return fmt.Errorf("analyzer plugin analyze failed. Arguments: %v. Error: %w", req, err)
		}
		return nil
	})

	return result, err
}
