package artifacts

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/iacsec/pkg/shared/config"
	"github.com/scan-io-git/iacsec/pkg/shared/files"
)

// RunSummary is the machine readable record of one scan, kept next to the analyzer results.
type RunSummary struct {
	ID            string    `json:"id"`
	Command       string    `json:"command"`
	Plugin        string    `json:"plugin"`
	Target        string    `json:"target"`
	Technologies  []string  `json:"technologies"`
	Model         string    `json:"model"`
	Threshold     float64   `json:"threshold"`
	Findings      int       `json:"findings"`
	Scored        int       `json:"scored"`
	TruePositives int       `json:"true_positives"`
	Events        []string  `json:"events"`
	Outputs       []string  `json:"outputs"`
	ExitCode      int       `json:"exit_code"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// GetArtifactName build returns artifact name.
// Example: scan_glitch_2025-09-15T08:28:46Z.iacsec-artifact.
func GetArtifactName(command, plugin string, t time.Time) string {
	ts := t.UTC().Format(time.RFC3339)
	return fmt.Sprintf("%s_%s_%s.iacsec-artifact", command, plugin, ts)
}

// SaveArtifactJSON writes summary to <results>/<artifact name>.json and returns the path.
// A summary without an ID gets a fresh one.
func SaveArtifactJSON(cfg *config.Config, logger hclog.Logger, summary RunSummary) (string, error) {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.FinishedAt.IsZero() {
		summary.FinishedAt = time.Now().UTC()
	}

	dir := config.GetResultsHome(cfg)
	if err := files.CreateFolderIfNotExists(dir); err != nil {
		return "", err
	}
	base := GetArtifactName(summary.Command, summary.Plugin, summary.FinishedAt)
	path := filepath.Join(dir, base+".json")

	data, err := json.MarshalIndent(summary, "", "    ")
	if err != nil {
		return path, fmt.Errorf("error marshaling the run summary: %w", err)
	}

	if err := files.WriteJsonFile(path, data); err != nil {
		return path, fmt.Errorf("error writing run summary: %w", err)
	}
	if logger != nil {
		logger.Info("artifact saved to file", "path", path)
	}

	return path, nil
}
