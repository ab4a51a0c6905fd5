package shared

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/go-plugin"

	"github.com/scan-io-git/iacsec/pkg/shared/config"
	"github.com/scan-io-git/iacsec/pkg/shared/logger"
)

const (
	PluginTypeAnalyzer string = "analyzer"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "IACSEC",
	MagicCookieValue: "3f0c6b7e2d9a41c58b1e7a64d20f9c3a5e81b7d2",
}

var PluginMap = map[string]plugin.Plugin{
	PluginTypeAnalyzer: &AnalyzerPlugin{},
}

// PluginPath returns the binary location of a plugin inside the plugins folder.
func PluginPath(cfg *config.Config, pluginName string) string {
	return filepath.Join(config.GetPluginsHome(cfg), pluginName)
}

// WithPlugin starts the plugin binary, dispenses pluginType and hands it to f.
// The plugin process is killed once f returns.
func WithPlugin(cfg *config.Config, loggerName string, pluginType string, pluginName string, f func(interface{}) error) error {
	logger := logger.NewLogger(cfg, loggerName)

	pluginPath := PluginPath(cfg, pluginName)
	if _, err := os.Stat(pluginPath); err != nil {
		return fmt.Errorf("plugin %q not found in %q: %w", pluginName, config.GetPluginsHome(cfg), err)
	}

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap,
		Cmd:             exec.Command(pluginPath),
		Logger:          logger,
	})
	defer client.Kill()

	rpcClient, err := client.Client()
	if err != nil {
		return fmt.Errorf("failed to start plugin %q: %w", pluginName, err)
	}

	raw, err := rpcClient.Dispense(pluginType)
	if err != nil {
		return fmt.Errorf("failed to dispense %q from plugin %q: %w", pluginType, pluginName, err)
	}

	return f(raw)
}
