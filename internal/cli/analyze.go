package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/logscan"
)

// analyzeLogCommand scans a build log for known failure markers.
func (c *CLI) analyzeLogCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze-log <file>",
		Short: "Explain a failed build from its log",
		Long: `Scan a build log for peer resolution failures, build errors, memory
exhaustion and timeouts. Each finding carries a bounded excerpt of the log
around the marker.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := logscan.AnalyzeFile(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a)
			}

			if a.Empty() {
				printSuccess("No known failure markers in %s", args[0])
				return nil
			}
			for _, f := range a.AllFindings() {
				printWarning("%s at line %d", f.Kind, f.Line)
				printDetail("%s", f.Evidence)
			}
			if len(a.PeerConflicts()) > 0 {
				printNextStep("Relax peer resolution with", appName+" fix --type npmrc --log "+args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")

	return cmd
}
