package version

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/iacsec/internal/rules"
	"github.com/scan-io-git/iacsec/pkg/shared/config"
)

const versionFileSuffix = ".version"

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
)

// Versions holds the build metadata of the core binary.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
	RulesVersion  string `json:"rules_version"`
}

// CoreVersions holds version information for the core application and plugins.
type CoreVersions struct {
	Versions    Versions              `json:"versions"`
	PluginsMeta map[string]PluginMeta `json:"plugins_meta"`
}

// PluginMeta holds version information for a plugin.
type PluginMeta struct {
	Version    string `json:"version"`
	PluginType string `json:"plugin_type"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and plugins",
		Run: func(cmd *cobra.Command, args []string) {
			version := CoreVersions{
				Versions: Versions{
					Version:       CoreVersion,
					GolangVersion: GolangVersion,
					BuildTime:     BuildTime,
					RulesVersion:  rules.Version,
				},
				PluginsMeta: getPluginVersions(config.GetPluginsHome(AppConfig)),
			}

			printVersionInfo(cmd.OutOrStdout(), &version)
		},
	}
}

// readVersionFile reads and parses a plugin's version file as JSON.
func readVersionFile(versionFilePath string) PluginMeta {
	var pm PluginMeta
	data, err := os.ReadFile(versionFilePath)
	if err != nil {
		return PluginMeta{Version: "unknown", PluginType: "unknown"}
	}
	if err := json.Unmarshal(data, &pm); err != nil {
		return PluginMeta{Version: "unknown", PluginType: "unknown"}
	}
	return pm
}

// getPluginVersions lists plugin binaries in pluginsDir together with their <name>.version files.
func getPluginVersions(pluginsDir string) map[string]PluginMeta {
	pluginsMeta := make(map[string]PluginMeta)
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		return pluginsMeta
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, versionFileSuffix) {
			continue
		}
		pluginsMeta[name] = readVersionFile(filepath.Join(pluginsDir, name+versionFileSuffix))
	}
	return pluginsMeta
}

// printVersionInfo prints the version information for the core application and plugins.
func printVersionInfo(w io.Writer, versions *CoreVersions) {
	fmt.Fprintf(w, "Core Version: v%s\n", versions.Versions.Version)
	fmt.Fprintf(w, "Rules Version: %s\n", versions.Versions.RulesVersion)
	fmt.Fprintln(w, "Plugin Versions:")

	names := make([]string, 0, len(versions.PluginsMeta))
	for name := range versions.PluginsMeta {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Fprintln(w, "  none installed")
	}
	for _, name := range names {
		meta := versions.PluginsMeta[name]
		fmt.Fprintf(w, "  %s: v%s (Type: %s)\n", name, meta.Version, meta.PluginType)
	}
	fmt.Fprintf(w, "Go Version: %s\n", versions.Versions.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", versions.Versions.BuildTime)
}
