package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/scan-io-git/iacsec/pkg/shared"
	"github.com/scan-io-git/iacsec/pkg/shared/validation"
)

// validateAnalyze checks the request and reports whether the target is a folder.
func (g *AnalyzerGlitch) validateAnalyze(args *shared.AnalyzerRequest) (bool, error) {
	if err := validation.ValidateAnalyzeArgs(args); err != nil {
		return false, err
	}
	binary := g.binary()
	if _, err := exec.LookPath(binary); err != nil {
		return false, fmt.Errorf("glitch binary %q not found: %w", binary, err)
	}

	info, err := os.Stat(args.TargetPath)
	if err != nil {
		return false, fmt.Errorf("failed to stat target %q: %w", args.TargetPath, err)
	}
	return info.IsDir(), nil
}
