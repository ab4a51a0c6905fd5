package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/scan-io-git/iacsec/pkg/shared"
	"github.com/scan-io-git/iacsec/pkg/shared/config"
)

// Metadata of the plugin
var (
	Version       = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

const glitchBinary = "glitch"

// AnalyzerGlitch runs the GLITCH smell detector and converts its CSV output to raw records.
type AnalyzerGlitch struct {
	logger       hclog.Logger
	globalConfig *config.Config
}

func newAnalyzerGlitch(logger hclog.Logger) *AnalyzerGlitch {
	return &AnalyzerGlitch{logger: logger}
}

func (g *AnalyzerGlitch) setGlobalConfig(globalConfig *config.Config) {
	g.globalConfig = globalConfig
}

// binary resolves the executable: IACSEC_GLITCH_BINARY, then glitch.binary from config, then "glitch".
func (g *AnalyzerGlitch) binary() string {
	var configured string
	if g.globalConfig != nil {
		configured = g.globalConfig.Glitch.Binary
	}
	return config.SetThen(os.Getenv("IACSEC_GLITCH_BINARY"), config.SetThen(configured, glitchBinary))
}

// outputPath is where GLITCH writes its CSV for one technology.
func outputPath(args shared.AnalyzerRequest) string {
	return filepath.Join(args.ResultsPath, fmt.Sprintf("glitch-%s.csv", args.Technology))
}

// buildCommandArgs constructs the command-line arguments for the GLITCH command.
func (g *AnalyzerGlitch) buildCommandArgs(args shared.AnalyzerRequest, targetIsDir bool) []string {
	var commandArgs []string

	appendArg := func(arg ...string) {
		commandArgs = append(commandArgs, arg...)
	}

	appendArg("--tech", args.Technology, "--csv")
	if targetIsDir {
		appendArg("--folder")
	}
	if len(args.AdditionalArgs) != 0 {
		appendArg(args.AdditionalArgs...)
	}
	appendArg(args.TargetPath, outputPath(args))

	return commandArgs
}

// Analyze executes GLITCH for one technology and returns its findings unmodified.
func (g *AnalyzerGlitch) Analyze(args shared.AnalyzerRequest) (shared.AnalyzerResponse, error) {
	var result shared.AnalyzerResponse
	g.logger.Info("analysis is starting", "target", args.TargetPath, "technology", args.Technology)
	g.logger.Debug("debug info", "args", args)

	targetIsDir, err := g.validateAnalyze(&args)
	if err != nil {
		g.logger.Error("validation failed for analyze operation", "error", err)
		return result, err
	}

	cmd := exec.Command(g.binary(), g.buildCommandArgs(args, targetIsDir)...)
	g.logger.Debug("debug info", "cmd", cmd.Args)

	var stdBuffer bytes.Buffer
	mw := io.MultiWriter(g.logger.StandardWriter(&hclog.StandardLoggerOptions{
		InferLevels: true,
	}), &stdBuffer)

	cmd.Stdout = mw
	cmd.Stderr = mw

	if err := cmd.Run(); err != nil {
		g.logger.Error("glitch execution error", "error", err)
		return result, fmt.Errorf("glitch execution error: %w. Output: %s", err, stdBuffer.String())
	}

	records, err := parseCSVFile(outputPath(args))
	if err != nil {
		return result, err
	}
	result.Records = records

	g.logger.Info("analysis finished", "target", args.TargetPath, "technology", args.Technology, "records", len(records))
	return result, nil
}

// Setup initializes the global configuration for the AnalyzerGlitch instance.
func (g *AnalyzerGlitch) Setup(configData config.Config) (bool, error) {
	g.setGlobalConfig(&configData)
	return true, nil
}

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Level:      hclog.Trace,
		Output:     os.Stderr,
		JSONFormat: true,
	})

	glitchInstance := newAnalyzerGlitch(logger)

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: shared.HandshakeConfig,
		Plugins: map[string]plugin.Plugin{
			shared.PluginTypeAnalyzer: &shared.AnalyzerPlugin{Impl: glitchInstance},
		},
		Logger: logger,
	})
}
