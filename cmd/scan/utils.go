package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/iacsec/internal/ci"
	"github.com/scan-io-git/iacsec/internal/sarif"
	"github.com/scan-io-git/iacsec/internal/schema"
	"github.com/scan-io-git/iacsec/internal/scoring"
	"github.com/scan-io-git/iacsec/pkg/shared"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

// readInputRecords loads raw analyzer records saved as a JSON array.
func readInputRecords(path string) ([]shared.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigurationError("input-records", "%v", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()

	var records []shared.RawRecord
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode input records %s: %w", path, err)
	}
	return records, nil
}

// scanRoot is the folder findings are reported relative to. A file target is resolved
// against its parent folder.
func scanRoot(targetPath string) string {
	info, err := os.Stat(targetPath)
	if err == nil && !info.IsDir() {
		return filepath.Dir(targetPath)
	}
	return targetPath
}

// defaultTechnology is applied to records that name no technology. Only an explicit --tech
// provides one.
func defaultTechnology(techs []schema.Technology, explicit bool) schema.Technology {
	if explicit && len(techs) == 1 {
		return techs[0]
	}
	return ""
}

func formatEvents(events []scoring.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, fmt.Sprintf("%s: %s (%s)", ev.Kind, ev.Reason, ev.Model))
	}
	return out
}

func technologyNames(techs []schema.Technology) []string {
	out := make([]string, 0, len(techs))
	for _, t := range techs {
		out = append(out, string(t))
	}
	return out
}

var lookupEnv ci.LookupFunc = os.Getenv

// versionControl describes the scanned revision when running inside a known CI job.
func versionControl(logger hclog.Logger) *sarif.VersionControl {
	env, ok := ci.Detect(lookupEnv)
	if !ok || env.RepositoryURI == "" {
		return nil
	}
	logger.Debug("recording version control provenance", "ci", env.Kind.String(), "repository", env.RepositoryURI, "revision", env.CommitHash)
	return &sarif.VersionControl{
		RepositoryURI: env.RepositoryURI,
		RevisionID:    env.CommitHash,
		Branch:        env.Branch(),
		RevisionTag:   env.Tag(),
	}
}
