package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scan-io-git/iacsec/pkg/shared/files"
)

const (
	DefaultBatchSize    = 16
	DefaultWorkers      = 1
	DefaultContextLines = 3
	DefaultToolName     = "iacsec"
	DefaultToolURI      = "https://github.com/scan-io-git/iacsec"

	maxBatchSize    = 4096
	maxWorkers      = 64
	maxContextLines = 50
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateIacSecConfig(cfg); err != nil {
		return fmt.Errorf("YAML global config: iacsec directive is invalid: %w", err)
	}
	if err := ValidateScoringConfig(&cfg.Scoring); err != nil {
		return fmt.Errorf("YAML global config: scoring directive is invalid: %w", err)
	}
	if err := ValidateExportConfig(&cfg.Export); err != nil {
		return fmt.Errorf("YAML global config: export directive is invalid: %w", err)
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	return nil
}

// ValidateIacSecConfig resolves every folder from the environment or from defaults under the home folder.
func ValidateIacSecConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("iacsec configuration is nil")
	}
	if err := updateHome(cfg); err != nil {
		return fmt.Errorf("failed to update home folder: %w", err)
	}
	if err := updateFolder(&cfg.IacSec.PluginsFolder, "IACSEC_PLUGINS_FOLDER", filepath.Join(cfg.IacSec.HomeFolder, "plugins")); err != nil {
		return fmt.Errorf("failed to update plugins folder: %w", err)
	}
	if err := updateFolder(&cfg.IacSec.ResultsFolder, "IACSEC_RESULTS_FOLDER", filepath.Join(cfg.IacSec.HomeFolder, "results")); err != nil {
		return fmt.Errorf("failed to update results folder: %w", err)
	}

	defaultCache, err := defaultCacheFolder()
	if err != nil {
		return err
	}
	if err := updateFolder(&cfg.IacSec.CacheFolder, "IACSEC_MODEL_CACHE", defaultCache); err != nil {
		return fmt.Errorf("failed to update cache folder: %w", err)
	}

	if err := updateRegistryPath(cfg); err != nil {
		return fmt.Errorf("failed to update registry path: %w", err)
	}
	updateMode(cfg)

	return nil
}

// ValidateScoringConfig applies defaults and bounds to the scoring settings.
func ValidateScoringConfig(scoring *Scoring) error {
	if scoring == nil {
		return fmt.Errorf("scoring configuration is nil")
	}

	scoring.BatchSize = SetThen(scoring.BatchSize, DefaultBatchSize)
	scoring.Workers = SetThen(scoring.Workers, DefaultWorkers)
	if scoring.ContextLines == 0 {
		scoring.ContextLines = DefaultContextLines
	}

	if scoring.BatchSize < 1 || scoring.BatchSize > maxBatchSize {
		return fmt.Errorf("batch_size must be between 1 and %d: %d", maxBatchSize, scoring.BatchSize)
	}
	if scoring.Workers < 1 || scoring.Workers > maxWorkers {
		return fmt.Errorf("workers must be between 1 and %d: %d", maxWorkers, scoring.Workers)
	}
	if scoring.ContextLines < 0 || scoring.ContextLines > maxContextLines {
		return fmt.Errorf("context_lines must be between 0 and %d: %d", maxContextLines, scoring.ContextLines)
	}

	if lib := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); lib != "" {
		scoring.OnnxRuntimeLibrary = lib
	}
	return nil
}

// ValidateExportConfig fills tool identity defaults and checks the fixed export timestamp.
func ValidateExportConfig(export *Export) error {
	if export == nil {
		return fmt.Errorf("export configuration is nil")
	}
	export.ToolName = SetThen(export.ToolName, DefaultToolName)
	export.InformationURI = SetThen(export.InformationURI, DefaultToolURI)

	if export.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, export.Timestamp); err != nil {
			return fmt.Errorf("timestamp must be RFC3339: %w", err)
		}
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 10*time.Minute); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if !strings.Contains(proxy.Host, "://") {
		proxy.Host = "http://" + proxy.Host
	}
	proxy.Host = strings.TrimRight(proxy.Host, "/")

	if _, err := url.Parse(proxy.Host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}
	if proxy.Port < 1 || proxy.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", proxy.Port)
	}
	return nil
}

// updateHome updates the HomeFolder from environment variables or sets a default value.
func updateHome(cfg *Config) error {
	if homeFolder := os.Getenv("IACSEC_HOME"); homeFolder != "" {
		cfg.IacSec.HomeFolder = homeFolder
	} else if cfg.IacSec.HomeFolder == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("unable to get user home folder: %w", err)
		}
		cfg.IacSec.HomeFolder = filepath.Join(userHome, ".iacsec")
	}

	expandedHomePath, err := files.ExpandPath(cfg.IacSec.HomeFolder)
	if err != nil {
		return fmt.Errorf("failed to expand new home path %q: %w", cfg.IacSec.HomeFolder, err)
	}
	cfg.IacSec.HomeFolder = expandedHomePath

	if err := files.CreateFolderIfNotExists(expandedHomePath); err != nil {
		return fmt.Errorf("failed to create home folder %q: %w", cfg.IacSec.HomeFolder, err)
	}
	return nil
}

// updateFolder resolves a folder from envVar, the configured value, or defaultPath, in that order.
func updateFolder(folder *string, envVar, defaultPath string) error {
	if envVarValue := os.Getenv(envVar); envVarValue != "" {
		*folder = envVarValue
	} else if *folder == "" {
		*folder = defaultPath
	}

	expandedPath, err := files.ExpandPath(*folder)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", *folder, err)
	}
	*folder = expandedPath

	if err := files.CreateFolderIfNotExists(expandedPath); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", expandedPath, err)
	}
	return nil
}

func updateRegistryPath(cfg *Config) error {
	if envVarValue := os.Getenv("IACSEC_REGISTRY"); envVarValue != "" {
		cfg.IacSec.RegistryPath = envVarValue
	} else if cfg.IacSec.RegistryPath == "" {
		cfg.IacSec.RegistryPath = filepath.Join(cfg.IacSec.HomeFolder, "registry.yaml")
	}

	expanded, err := files.ExpandPath(cfg.IacSec.RegistryPath)
	if err != nil {
		return fmt.Errorf("failed to expand registry path %q: %w", cfg.IacSec.RegistryPath, err)
	}
	cfg.IacSec.RegistryPath = expanded
	return nil
}

func defaultCacheFolder() (string, error) {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to get user home folder: %w", err)
	}
	return filepath.Join(userHome, ".cache", "iacsec"), nil
}

// updateMode updates the Mode field based on environment variables.
func updateMode(cfg *Config) {
	if os.Getenv("IACSEC_MODE") == "CI" || os.Getenv("CI") == "true" {
		cfg.IacSec.Mode = "CI"
		return
	}

	if envVarValue := os.Getenv("IACSEC_MODE"); envVarValue != "" {
		cfg.IacSec.Mode = envVarValue
		return
	}

	cfg.IacSec.Mode = "user"
}
