package config

import (
	"crypto/tls"
	"time"
)

// DownloadClientConfig holds the settings of the HTTP client that fetches model artifacts.
type DownloadClientConfig struct {
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	// Timeout bounds a whole transfer. Encoder weights run to hundreds of megabytes.
	Timeout   time.Duration
	TLS       *tls.Config
	Proxy     string
	UserAgent string
	Debug     bool
}

// DefaultDownloadConfig returns the settings used when config.yml has no http_client section.
func DefaultDownloadConfig() DownloadClientConfig {
	return DownloadClientConfig{
		RetryCount:       3,
		RetryWaitTime:    2 * time.Second,
		RetryMaxWaitTime: 10 * time.Second,
		Timeout:          10 * time.Minute,
		TLS:              &tls.Config{MinVersion: tls.VersionTLS12},
		UserAgent:        "iacsec-modelstore",
	}
}
