package validation

import (
	"fmt"
	"os"

	"github.com/scan-io-git/iacsec/pkg/shared"
	"github.com/scan-io-git/iacsec/pkg/shared/files"
)

var supportedTechnologies = map[string]struct{}{
	"ansible": {},
	"chef":    {},
	"puppet":  {},
}

// ValidateAnalyzeArgs checks the necessary fields in AnalyzerRequest and returns errors if they are not set
func ValidateAnalyzeArgs(args *shared.AnalyzerRequest) error {
	if args.TargetPath == "" {
		return fmt.Errorf("target path is required")
	}
	if _, ok := supportedTechnologies[args.Technology]; !ok {
		return fmt.Errorf("unsupported technology %q", args.Technology)
	}
	if args.ResultsPath == "" {
		return fmt.Errorf("results path is required")
	}

	targetPath, err := files.ExpandPath(args.TargetPath)
	if err != nil {
		return fmt.Errorf("failed to expand path '%s': %w", args.TargetPath, err)
	}
	if _, err := os.Stat(targetPath); os.IsNotExist(err) {
		return fmt.Errorf("target path does not exist: %s", targetPath)
	}

	resultsPath, err := files.ExpandPath(args.ResultsPath)
	if err != nil {
		return fmt.Errorf("failed to expand path '%s': %w", args.ResultsPath, err)
	}
	if err := files.CreateFolderIfNotExists(resultsPath); err != nil {
		return fmt.Errorf("failed to create results path '%s': %w", resultsPath, err)
	}

	return nil
}
