package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/iacsec/internal/rules"
)

var outputJSON bool

// RulesCmd represents the rules command.
var RulesCmd = &cobra.Command{
	Use:                   "rules [--json]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Prints how every analyzer code is classified",
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), rules.All())
		}
		return printTable(cmd.OutOrStdout(), rules.All())
	},
}

type ruleView struct {
	Code        string `json:"code"`
	RuleID      string `json:"rule_id"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Disposition string `json:"disposition"`
	Message     string `json:"message"`
}

func printJSON(w io.Writer, all []rules.Rule) error {
	views := make([]ruleView, 0, len(all))
	for _, r := range all {
		views = append(views, ruleView{
			Code:        r.Code,
			RuleID:      r.RuleID,
			Category:    string(r.Category),
			Severity:    string(r.Severity),
			Disposition: r.Disposition.String(),
			Message:     r.Message,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]interface{}{
		"version": rules.Version,
		"rules":   views,
	})
}

func printTable(w io.Writer, all []rules.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tRULE\tCATEGORY\tSEVERITY\tDISPOSITION")
	for _, r := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Code, r.RuleID, r.Category, r.Severity, r.Disposition)
	}
	fmt.Fprintf(tw, "\nrules version %s, %d codes\n", rules.Version, len(all))
	return tw.Flush()
}

func init() {
	RulesCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the table as JSON.")
}
