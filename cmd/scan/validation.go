package scan

import (
	"fmt"
	"os"

	"github.com/scan-io-git/iacsec/internal/report"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
	"github.com/scan-io-git/iacsec/pkg/shared/files"
)

// validateScanArgs checks the scan flags and returns the target path and output formats.
func validateScanArgs(opts *RunOptionsScan, args []string, argsLenAtDash int, thresholdSet bool) (string, []report.Format, error) {
	positional := args
	if argsLenAtDash > -1 {
		opts.AdditionalArgs = args[argsLenAtDash:]
		positional = args[:argsLenAtDash]
	}
	if len(positional) > 1 {
		return "", nil, fmt.Errorf("only one target path may be given, got %d", len(positional))
	}

	targetPath := "."
	if len(positional) == 1 {
		targetPath = positional[0]
	}
	targetPath, err := files.ExpandPath(targetPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to expand path %q: %w", targetPath, err)
	}
	if _, err := os.Stat(targetPath); err != nil {
		return "", nil, fmt.Errorf("the target path does not exist: %v", targetPath)
	}

	if opts.Postfilter == "" {
		return "", nil, errors.NewConfigurationError("postfilter", "a model name is required")
	}

	if thresholdSet {
		t := opts.Threshold
		opts.ThresholdOverride = &t
	} else {
		opts.ThresholdOverride = nil
	}

	if opts.BatchSize < 0 {
		return "", nil, errors.NewConfigurationError("batch-size", "must be a positive integer: %d", opts.BatchSize)
	}
	if opts.Workers < 0 {
		return "", nil, errors.NewConfigurationError("workers", "must be a positive integer: %d", opts.Workers)
	}

	if opts.InputRecords != "" {
		if err := files.ValidatePath(opts.InputRecords); err != nil {
			return "", nil, errors.NewConfigurationError("input-records", "%v", err)
		}
		if len(opts.AdditionalArgs) > 0 {
			return "", nil, fmt.Errorf("analyzer arguments cannot be combined with 'input-records'")
		}
	}

	formats, err := report.ParseFormats(opts.Format)
	if err != nil {
		return "", nil, errors.NewConfigurationError("format", "%v", err)
	}

	return targetPath, formats, nil
}
