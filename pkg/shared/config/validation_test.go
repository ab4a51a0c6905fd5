package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScoringConfig(t *testing.T) {
	tests := []struct {
		name    string
		in      Scoring
		want    Scoring
		wantErr bool
	}{
		{
			name: "defaults",
			in:   Scoring{},
			want: Scoring{BatchSize: DefaultBatchSize, Workers: DefaultWorkers, ContextLines: DefaultContextLines},
		},
		{
			name: "explicit values kept",
			in:   Scoring{BatchSize: 4, Workers: 2, ContextLines: 5},
			want: Scoring{BatchSize: 4, Workers: 2, ContextLines: 5},
		},
		{name: "batch too large", in: Scoring{BatchSize: maxBatchSize + 1}, wantErr: true},
		{name: "negative workers", in: Scoring{Workers: -1}, wantErr: true},
		{name: "negative context", in: Scoring{ContextLines: -2}, wantErr: true},
	}

	t.Setenv("ONNXRUNTIME_SHARED_LIBRARY_PATH", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			err := ValidateScoringConfig(&in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, in)
		})
	}
}

func TestValidateIacSecConfigEnvOverrides(t *testing.T) {
	home := t.TempDir()
	cache := filepath.Join(t.TempDir(), "models")
	t.Setenv("IACSEC_HOME", home)
	t.Setenv("IACSEC_MODEL_CACHE", cache)
	t.Setenv("IACSEC_PLUGINS_FOLDER", "")
	t.Setenv("IACSEC_RESULTS_FOLDER", "")
	t.Setenv("IACSEC_REGISTRY", "")
	t.Setenv("IACSEC_MODE", "")
	t.Setenv("CI", "")

	cfg := &Config{}
	require.NoError(t, ValidateIacSecConfig(cfg))

	assert.Equal(t, home, GetHome(cfg))
	assert.Equal(t, filepath.Join(home, "plugins"), GetPluginsHome(cfg))
	assert.Equal(t, filepath.Join(home, "results"), GetResultsHome(cfg))
	assert.Equal(t, cache, GetCacheHome(cfg))
	assert.Equal(t, filepath.Join(home, "registry.yaml"), GetRegistryPath(cfg))
	assert.Equal(t, "user", cfg.IacSec.Mode)

	_, err := os.Stat(cache)
	assert.NoError(t, err, "cache folder must be created")
}

func TestUpdateModeCI(t *testing.T) {
	t.Setenv("IACSEC_MODE", "")
	t.Setenv("CI", "true")
	cfg := &Config{}
	updateMode(cfg)
	assert.True(t, IsCI(cfg))
}

func TestValidateHTTPConfig(t *testing.T) {
	assert.NoError(t, ValidateHTTPConfig(&HTTPClient{RetryCount: 3, Timeout: 30 * time.Second}))
	assert.Error(t, ValidateHTTPConfig(&HTTPClient{RetryCount: 21}))
	assert.Error(t, ValidateHTTPConfig(&HTTPClient{Timeout: -time.Second}))
	assert.Error(t, ValidateHTTPConfig(&HTTPClient{Proxy: Proxy{Host: "proxy.local", Port: 70000}}))

	proxied := &HTTPClient{Proxy: Proxy{Host: "proxy.local/", Port: 3128}}
	require.NoError(t, ValidateHTTPConfig(proxied))
	assert.Equal(t, "http://proxy.local", proxied.Proxy.Host)
}

func TestGetExportTimestamp(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "")
	ts, err := GetExportTimestamp(&Config{})
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0).UTC(), ts)

	ts, err = GetExportTimestamp(&Config{Export: Export{Timestamp: "2024-05-01T10:00:00Z"}})
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())

	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")
	ts, err = GetExportTimestamp(&Config{Export: Export{Timestamp: "2024-05-01T10:00:00Z"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts.Unix())

	t.Setenv("SOURCE_DATE_EPOCH", "yesterday")
	_, err = GetExportTimestamp(&Config{})
	assert.Error(t, err)
}

func TestNewConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := NewConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestNewConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  batch_size: 8\n  turbo: true\n"), 0o644))
	_, err := NewConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("scoring:\n  batch_size: 8\nlogger:\n  level: debug\n"), 0o644))
	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Scoring.BatchSize)
	assert.Equal(t, "debug", cfg.Logger.Level)
}
