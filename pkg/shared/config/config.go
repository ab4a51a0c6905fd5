package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

type Config struct {
	Logger     Logger     `yaml:"logger"`
	IacSec     IacSec     `yaml:"iacsec"`
	Scoring    Scoring    `yaml:"scoring"`
	Export     Export     `yaml:"export"`
	HTTPClient HTTPClient `yaml:"http_client"`
	Glitch     Glitch     `yaml:"glitch"`
}

// Glitch configures the GLITCH analyzer plugin.
type Glitch struct {
	// Binary is the glitch executable, looked up on PATH when not absolute.
	Binary string `yaml:"binary"`
}

type Logger struct {
	Level       string `yaml:"level"`
	DisableTime *bool  `yaml:"disable_time"`
	JSONFormat  *bool  `yaml:"json_format"`
}

// IacSec holds folder locations. Every folder may be overridden from the environment.
type IacSec struct {
	HomeFolder    string `yaml:"home_folder"`
	PluginsFolder string `yaml:"plugins_folder"`
	CacheFolder   string `yaml:"cache_folder"`
	ResultsFolder string `yaml:"results_folder"`
	RegistryPath  string `yaml:"registry_path"`
	Mode          string `yaml:"mode"`
}

type Scoring struct {
	BatchSize          int    `yaml:"batch_size"`
	Workers            int    `yaml:"workers"`
	ContextLines       int    `yaml:"context_lines"`
	OnnxRuntimeLibrary string `yaml:"onnxruntime_library"`
}

type Export struct {
	ToolName       string `yaml:"tool_name"`
	InformationURI string `yaml:"information_uri"`
	// Timestamp is an RFC3339 value stamped into SARIF invocations. Empty means Unix epoch.
	Timestamp string `yaml:"timestamp"`
}

type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	d.SetStrict(true)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// NewConfig reads configPath. A missing file is not an error and yields an empty config
// that ValidateConfig fills with defaults.
func NewConfig(configPath string) (*Config, error) {
	config := &Config{}
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadYAML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
	}

	return config, nil
}
