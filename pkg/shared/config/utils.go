package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// GetBoolValue retrieves a boolean value from a nested struct based on a dot-separated path.
// It returns the provided defaultValue if the specified field is not explicitly set or is nil.
func GetBoolValue(config interface{}, fieldPath string, defaultValue bool) bool {
	if config == nil {
		return defaultValue
	}

	fields := strings.Split(fieldPath, ".")
	val := reflect.ValueOf(config)

	for _, field := range fields {
		if val.Kind() == reflect.Ptr {
			val = val.Elem()
		}

		val = val.FieldByName(field)
		if !val.IsValid() {
			return defaultValue
		}
	}

	// Check if the field is a pointer to a bool and is not nil
	if val.Kind() == reflect.Ptr && !val.IsNil() {
		return val.Elem().Bool()
	} else if val.Kind() == reflect.Bool {
		// Handle non-pointer bool directly
		return val.Bool()
	}

	return defaultValue
}

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(value).IsZero() {
		return defaultValue
	}
	return value
}

// GetHome returns the resolved home folder.
func GetHome(cfg *Config) string {
	return cfg.IacSec.HomeFolder
}

// GetPluginsHome returns the folder holding analyzer plugin binaries.
func GetPluginsHome(cfg *Config) string {
	return cfg.IacSec.PluginsFolder
}

// GetCacheHome returns the model weight cache folder.
func GetCacheHome(cfg *Config) string {
	return cfg.IacSec.CacheFolder
}

// GetResultsHome returns the folder for run artifacts.
func GetResultsHome(cfg *Config) string {
	return cfg.IacSec.ResultsFolder
}

// GetRegistryPath returns the model registry file location.
func GetRegistryPath(cfg *Config) string {
	return cfg.IacSec.RegistryPath
}

// IsCI reports whether the tool runs in CI mode.
func IsCI(cfg *Config) bool {
	return cfg.IacSec.Mode == "CI"
}

// GetExportTimestamp returns the timestamp stamped into exported documents.
// SOURCE_DATE_EPOCH wins over the configured value; the fallback is the Unix epoch.
func GetExportTimestamp(cfg *Config) (time.Time, error) {
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		secs, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", epoch, err)
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	if cfg != nil && cfg.Export.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, cfg.Export.Timestamp)
		if err != nil {
			return time.Time{}, err
		}
		return ts.UTC(), nil
	}
	return time.Unix(0, 0).UTC(), nil
}
