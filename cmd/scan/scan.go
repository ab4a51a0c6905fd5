package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/iacsec/cmd/version"
	"github.com/scan-io-git/iacsec/internal/analyzer"
	"github.com/scan-io-git/iacsec/internal/modelstore"
	"github.com/scan-io-git/iacsec/internal/pipeline"
	"github.com/scan-io-git/iacsec/internal/registry"
	"github.com/scan-io-git/iacsec/internal/rules"
	"github.com/scan-io-git/iacsec/internal/sarif"
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/internal/scoring"
	"github.com/scan-io-git/iacsec/pkg/shared"
	"github.com/scan-io-git/iacsec/pkg/shared/artifacts"
	"github.com/scan-io-git/iacsec/pkg/shared/config"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
	"github.com/scan-io-git/iacsec/pkg/shared/logger"
)

// RunOptionsScan holds the arguments for the scan command.
type RunOptionsScan struct {
	Tech              string
	Postfilter        string
	Threshold         float64
	ThresholdOverride *float64
	Format            string
	OutputPath        string
	FailOnHigh        bool
	BatchSize         int
	Workers           int
	StandIn           bool
	InputRecords      string
	Plugin            string
	SaveArtifact      bool
	AdditionalArgs    []string
}

// Global variables for configuration and command arguments
var (
	AppConfig        *config.Config
	scanOptions      RunOptionsScan
	exampleScanUsage = `  # Scanning the current folder, SARIF to stdout
  iacsec scan

  # Scanning Puppet manifests with a stricter threshold
  iacsec scan --tech puppet --threshold 0.8 ./manifests

  # Writing SARIF, JSONL and CSV next to each other (findings.sarif, findings.jsonl, findings.csv)
  iacsec scan --format sarif,json,csv --out artifacts/findings ./infra

  # Failing the build only on high-severity true positives
  iacsec scan --fail-on-high --format table ./infra

  # Re-scoring saved analyzer output without running GLITCH
  iacsec scan --input-records records.json --format json ./infra

  # Passing extra arguments to the analyzer
  iacsec scan ./infra -- --smells security`
)

// ScanCmd represents the scan command.
var ScanCmd = &cobra.Command{
	Use:                   "scan [--tech TECH] [--postfilter MODEL] [--threshold T] [--format FORMATS] [--out PATH] [--fail-on-high] [PATH] -- [args...]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleScanUsage,
	Short:                 "Runs the analyzer, filters its findings with the post-filter model and exports the rest",
	Long: `Runs GLITCH over an IaC repository, trusts high-precision findings outright, scores the noisy
ones with the post-filter model and exports the surviving true positives.

Exit codes:
  0  no blocking finding
  1  at least one true positive (only high severity with --fail-on-high)
  2  the run failed`,
	RunE: runScanCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// runScanCommand executes the scan command.
func runScanCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-scan")
	started := time.Now().UTC()

	targetPath, formats, err := validateScanArgs(&scanOptions, args, cmd.ArgsLenAtDash(), cmd.Flags().Changed("threshold"))
	if err != nil {
		logger.Error("invalid scan arguments", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}

	targets, err := planOutputs(formats, scanOptions.OutputPath)
	if err != nil {
		logger.Error("invalid output settings", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}

	inventory, err := analyzer.Inventory(targetPath)
	if err != nil {
		logger.Error("failed to inventory target", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}
	techs, err := analyzer.ResolveTechnologies(scanOptions.Tech, inventory)
	if err != nil {
		logger.Error("invalid technology", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}
	explicitTech := !analyzer.IsAuto(scanOptions.Tech)

	reg, err := registry.Load(config.GetRegistryPath(AppConfig))
	if err != nil {
		logger.Error("failed to load model registry", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}

	root := scanRoot(targetPath)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := pipeline.Prepare(ctx, pipeline.Config{
		Registry:     reg,
		Model:        scanOptions.Postfilter,
		Threshold:    scanOptions.ThresholdOverride,
		Root:         root,
		DefaultTech:  defaultTechnology(techs, explicitTech),
		ContextLines: AppConfig.Scoring.ContextLines,
		Engine:       engineOptions(logger),
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to prepare the post-filter", "model", scanOptions.Postfilter, "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}
	defer p.Close()

	raw, err := collectRecords(targetPath, techs, explicitTech, logger)
	if err != nil {
		logger.Error("failed to collect analyzer findings", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}

	result, err := p.Process(ctx, raw)
	if err != nil {
		logger.Error("post-filtering failed", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}

	timestamp, err := config.GetExportTimestamp(AppConfig)
	if err != nil {
		logger.Error("invalid export timestamp", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}

	written, err := export(cmd.OutOrStdout(), targets, exportInput{
		Records:   result.Records,
		Inventory: inventory,
		SARIF: sarif.Options{
			Tool: sarif.ToolMetadata{
				Name:           AppConfig.Export.ToolName,
				Version:        version.CoreVersion,
				InformationURI: AppConfig.Export.InformationURI,
				RulesVersion:   rules.Version,
			},
			Timestamp:      timestamp,
			VersionControl: versionControl(logger),
		},
	}, logger)
	if err != nil {
		logger.Error("export failed", "error", err)
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}

	blocking := Blocking(result.Records, scanOptions.FailOnHigh)
	code := ExitCode(result.Records, scanOptions.FailOnHigh)

	if scanOptions.SaveArtifact {
		summary := artifacts.RunSummary{
			Command:       "scan",
			Plugin:        config.SetThen(scanOptions.Plugin, analyzer.DefaultPlugin),
			Target:        targetPath,
			Technologies:  technologyNames(techs),
			Model:         result.Model,
			Threshold:     result.Threshold,
			Findings:      len(result.Records),
			Scored:        result.Scored,
			TruePositives: result.TruePositives(),
			Events:        formatEvents(result.Events),
			Outputs:       written,
			ExitCode:      code,
			StartedAt:     started,
		}
		if _, err := artifacts.SaveArtifactJSON(AppConfig, logger, summary); err != nil {
			logger.Error("failed to save run artifact", "error", err)
			return errors.NewCommandError(err, errors.ExitRuntimeError)
		}
	}

	logger.Info("post-filter complete",
		"model", result.Model,
		"threshold", result.Threshold,
		"findings", len(result.Records),
		"true_positives", result.TruePositives(),
		"blocking", len(blocking),
	)

	if code != errors.ExitClean {
		return errors.NewCommandError(fmt.Errorf("%d blocking finding(s) detected", len(blocking)), code)
	}
	logger.Info("scan command completed successfully, no blocking findings")
	return nil
}

// engineOptions combines scan flags with the scoring section of the config.
func engineOptions(logger hclog.Logger) scoring.Options {
	return scoring.Options{
		BatchSize:      config.SetThen(scanOptions.BatchSize, AppConfig.Scoring.BatchSize),
		Workers:        config.SetThen(scanOptions.Workers, AppConfig.Scoring.Workers),
		ForceStandIn:   scanOptions.StandIn,
		RuntimeLibrary: AppConfig.Scoring.OnnxRuntimeLibrary,
		Store:          modelstore.NewFromConfig(AppConfig, logger.Named("modelstore")),
	}
}

// collectRecords runs the analyzer plugin, or reads saved records when --input-records is set.
func collectRecords(targetPath string, techs []schema.Technology, explicitTech bool, logger hclog.Logger) ([]shared.RawRecord, error) {
	var (
		raw []shared.RawRecord
		err error
	)
	if scanOptions.InputRecords != "" {
		logger.Info("reading analyzer records from file, analyzer not started", "path", scanOptions.InputRecords)
		raw, err = readInputRecords(scanOptions.InputRecords)
	} else {
		runner := analyzer.New(scanOptions.Plugin, scanOptions.AdditionalArgs, logger.Named("analyzer"))
		raw, err = runner.Run(AppConfig, targetPath, techs)
	}
	if err != nil {
		return nil, err
	}
	if !explicitTech {
		analyzer.TagTechnologies(raw)
	}
	return raw, nil
}

// Initialize flags for the scan command.
func init() {
	addScanFlags(ScanCmd.Flags(), &scanOptions)
}

func addScanFlags(flags *pflag.FlagSet, opts *RunOptionsScan) {
	flags.StringVar(&opts.Tech, "tech", analyzer.TechAuto, "Technology to analyze: auto, ansible, chef or puppet.")
	flags.StringVar(&opts.Postfilter, "postfilter", "codet5p-220m", "Name of the post-filter model in the registry.")
	flags.Float64Var(&opts.Threshold, "threshold", 0, "Decision threshold in [0,1]. Defaults to the model's registry value.")
	flags.StringVarP(&opts.Format, "format", "f", "sarif", "Comma-separated output formats: sarif, json, csv, table.")
	flags.StringVarP(&opts.OutputPath, "out", "o", "", "Output path. Each format gets its own extension when several are requested.")
	flags.BoolVar(&opts.FailOnHigh, "fail-on-high", false, "Exit 1 only for high-severity true positives.")
	flags.IntVar(&opts.BatchSize, "batch-size", 0, "Findings per scoring batch. Defaults to the config value.")
	flags.IntVarP(&opts.Workers, "workers", "j", 0, "Concurrent scoring batches. Defaults to the config value.")
	flags.BoolVar(&opts.StandIn, "stand-in", false, "Score with the deterministic stand-in instead of the encoder.")
	flags.StringVarP(&opts.InputRecords, "input-records", "i", "", "JSON file with raw analyzer records; skips running the analyzer.")
	flags.StringVarP(&opts.Plugin, "plugin", "p", analyzer.DefaultPlugin, "Name of the analyzer plugin to use.")
	flags.BoolVar(&opts.SaveArtifact, "save-artifact", false, "Save a JSON run summary to the results folder.")
	flags.BoolP("help", "h", false, "Show help for the scan command.")
}
