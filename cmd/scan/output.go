package scan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/iacsec/internal/report"
	"github.com/scan-io-git/iacsec/internal/sarif"
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
	"github.com/scan-io-git/iacsec/pkg/shared/files"
)

// outputTarget is one format and where it goes. An empty Path means stdout.
type outputTarget struct {
	Format report.Format
	Path   string
}

func (t outputTarget) String() string {
	if t.Path == "" {
		return "stdout"
	}
	return t.Path
}

// planOutputs decides where each format is written. Without --out a single format goes to
// stdout. With --out and several formats, every format gets --out with its own extension;
// a single format keeps --out as given unless it has no extension.
func planOutputs(formats []report.Format, out string) ([]outputTarget, error) {
	if out == "" {
		if len(formats) > 1 {
			return nil, errors.NewConfigurationError("out", "writing %d formats requires --out", len(formats))
		}
		return []outputTarget{{Format: formats[0]}}, nil
	}

	out, err := files.ExpandPath(out)
	if err != nil {
		return nil, errors.NewConfigurationError("out", "failed to expand %q: %v", out, err)
	}

	targets := make([]outputTarget, 0, len(formats))
	for _, f := range formats {
		path := out
		if len(formats) > 1 || filepath.Ext(out) == "" {
			path = files.WithExtension(out, f.Extension())
		}
		targets = append(targets, outputTarget{Format: f, Path: path})
	}
	return targets, nil
}

// exportInput is everything the exporters need from a finished run.
type exportInput struct {
	Records   []schema.JoinedRecord
	Inventory []string
	SARIF     sarif.Options
}

// writeFormat renders one format to w.
func writeFormat(w io.Writer, f report.Format, in exportInput, logger hclog.Logger) error {
	switch f {
	case report.FormatSARIF:
		doc, err := sarif.Build(in.Records, in.SARIF, logger)
		if err != nil {
			return err
		}
		logger.Debug("sarif results by severity", "counts", doc.CollectSeverityInfo())
		return doc.Write(w)
	case report.FormatJSON:
		return report.WriteJSONL(w, in.Records)
	case report.FormatCSV:
		return report.WriteCSV(w, in.Records, in.Inventory)
	case report.FormatTable:
		return report.WriteTable(w, in.Records)
	}
	return fmt.Errorf("unsupported format %q", f)
}

// export writes every target and returns the files written.
func export(stdout io.Writer, targets []outputTarget, in exportInput, logger hclog.Logger) ([]string, error) {
	var written []string
	for _, target := range targets {
		if target.Path == "" {
			if err := writeFormat(stdout, target.Format, in, logger); err != nil {
				return written, fmt.Errorf("failed to write %s report: %w", target.Format, err)
			}
			continue
		}

		if err := writeFile(target, in, logger); err != nil {
			return written, err
		}
		if target.Format == report.FormatSARIF {
			if err := verifySARIF(target.Path, in.SARIF.Tool, logger); err != nil {
				return written, err
			}
		}
		written = append(written, target.Path)
		logger.Info("report written", "format", target.Format, "path", target.Path)
	}
	return written, nil
}

func writeFile(target outputTarget, in exportInput, logger hclog.Logger) (err error) {
	if err := files.CreateFolderIfNotExists(filepath.Dir(target.Path)); err != nil {
		return err
	}
	file, err := os.Create(target.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s report %q: %w", target.Format, target.Path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %q: %w", target.Path, cerr)
		}
	}()

	if err := writeFormat(file, target.Format, in, logger); err != nil {
		return fmt.Errorf("failed to write %s report %q: %w", target.Format, target.Path, err)
	}
	return nil
}

// verifySARIF reads a written report back and checks it names the tool that produced it.
func verifySARIF(path string, tool sarif.ToolMetadata, logger hclog.Logger) error {
	doc, err := sarif.ReadReport(path, logger)
	if err != nil {
		return err
	}
	meta, err := doc.ExtractToolNameAndVersion()
	if err != nil {
		return fmt.Errorf("invalid sarif report %q: %w", path, err)
	}
	if meta.Name != tool.Name || meta.Version != tool.Version {
		return fmt.Errorf("sarif report %q names tool %s %s, expected %s %s", path, meta.Name, meta.Version, tool.Name, tool.Version)
	}
	logger.Debug("sarif report verified", "path", path, "tool", meta.Name, "version", meta.Version, "rules_version", meta.RulesVersion)
	return nil
}
