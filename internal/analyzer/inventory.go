package analyzer

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/pkg/shared"
	errs "github.com/scan-io-git/iacsec/pkg/shared/errors"
)

// TechAuto asks the runner to analyze every technology found under the root.
const TechAuto = "auto"

var extensionTech = map[string]schema.Technology{
	".yml":  schema.TechAnsible,
	".yaml": schema.TechAnsible,
	".rb":   schema.TechChef,
	".pp":   schema.TechPuppet,
}

var skippedDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	".terraform":   {},
	"node_modules": {},
	".venv":        {},
}

// TechnologyOf maps a file name to the technology GLITCH analyzes it as.
func TechnologyOf(name string) (schema.Technology, bool) {
	t, ok := extensionTech[strings.ToLower(filepath.Ext(name))]
	return t, ok
}

// Inventory lists IaC files under root as sorted forward-slash paths relative to root.
// A single file root yields its own base name.
func Inventory(root string) ([]string, error) {
	var inventory []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := TechnologyOf(d.Name()); !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			rel = d.Name()
		}
		inventory = append(inventory, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to inventory %q: %w", root, err)
	}

	sort.Strings(inventory)
	return inventory, nil
}

// DetectTechnologies returns the technologies present in inventory, in schema.Technologies order.
func DetectTechnologies(inventory []string) []schema.Technology {
	present := make(map[schema.Technology]bool)
	for _, name := range inventory {
		if t, ok := TechnologyOf(name); ok {
			present[t] = true
		}
	}

	var detected []schema.Technology
	for _, t := range schema.Technologies {
		if present[t] {
			detected = append(detected, t)
		}
	}
	return detected
}

// IsAuto reports whether tech asks for detection rather than naming a technology.
func IsAuto(tech string) bool {
	tech = strings.ToLower(strings.TrimSpace(tech))
	return tech == "" || tech == TechAuto
}

// ResolveTechnologies turns the --tech value into the list of technologies to analyze.
func ResolveTechnologies(tech string, inventory []string) ([]schema.Technology, error) {
	if IsAuto(tech) {
		return DetectTechnologies(inventory), nil
	}
	tech = strings.ToLower(strings.TrimSpace(tech))

	t, err := schema.ParseTechnology(tech)
	if err != nil {
		return nil, errs.NewConfigurationError("tech", "%q is not one of auto, ansible, chef, puppet", tech)
	}
	return []schema.Technology{t}, nil
}

// TagTechnologies fills the technology of records that lack one from their file extension.
func TagTechnologies(records []shared.RawRecord) {
	for i := range records {
		if records[i].Technology != "" {
			continue
		}
		if t, ok := TechnologyOf(records[i].Path); ok {
			records[i].Technology = string(t)
		}
	}
}
