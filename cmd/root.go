package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fetchmodel "github.com/scan-io-git/iacsec/cmd/fetch-model"
	rulescmd "github.com/scan-io-git/iacsec/cmd/rules"
	"github.com/scan-io-git/iacsec/cmd/scan"
	"github.com/scan-io-git/iacsec/cmd/version"
	"github.com/scan-io-git/iacsec/pkg/shared/config"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "iacsec [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "iacsec filters IaC security smells with a learned post-filter.",
		Long: `iacsec runs the GLITCH analyzer over Ansible, Chef and Puppet code, trusts its
high-precision findings, adjudicates the noisy ones with a binary classifier and exports
the surviving true positives as SARIF, JSONL, CSV or a console table.
	`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $IACSEC_CONFIG or config.yml)")
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(fetchmodel.FetchModelCmd)
	rootCmd.AddCommand(rulescmd.RulesCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	err := rootCmd.Execute()
	if err == nil {
		return errors.ExitClean
	}

	code := errors.ExitCodeOf(err)
	if code == errors.ExitFindings {
		fmt.Fprintln(os.Stderr, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
	}
	return code
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error

	if cfgFile == "" {
		cfgFile = config.SetThen(os.Getenv("IACSEC_CONFIG"), "config.yml")
	}
	AppConfig, err = config.NewConfig(cfgFile)
	if err != nil {
		return errors.NewCommandError(fmt.Errorf("initializing config file failed: %w", err), errors.ExitRuntimeError)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		return errors.NewCommandError(err, errors.ExitRuntimeError)
	}

	version.Init(AppConfig)
	scan.Init(AppConfig)
	fetchmodel.Init(AppConfig)
	return nil
}
