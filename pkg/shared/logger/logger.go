package logger

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/scan-io-git/iacsec/pkg/shared/config"
)

// NewLogger builds a named hclog logger. Output goes to stderr so stdout stays reserved for reports.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	var logLevel hclog.Level

	if cfg != nil && cfg.Logger.Level != "" {
		logLevel = getLogLevel(strings.ToUpper(cfg.Logger.Level))
	} else {
		// env variables has the second priority
		logLevelEnv := os.Getenv("IACSEC_LOG_LEVEL")
		logLevel = getLogLevel(strings.ToUpper(logLevelEnv))
	}

	disableTime, jsonFormat := true, false
	if cfg != nil {
		disableTime = config.GetBoolValue(cfg.Logger, "DisableTime", true)
		jsonFormat = config.GetBoolValue(cfg.Logger, "JSONFormat", false)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: disableTime,
		JSONFormat:  jsonFormat,
		Output:      os.Stderr,
		Level:       logLevel,
	})
}

func getLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		return hclog.Info
	}
}
