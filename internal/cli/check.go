package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/pipeline"
)

// checkCommand detects conflicts and writes a report. It never modifies the
// project.
func (c *CLI) checkCommand() *cobra.Command {
	var (
		logPath string
		verify  bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Detect peer dependency conflicts without changing the project",
		Long: `Check every dependency in package.json against the peer requirements
published in the registry and write a report. Exits with status 1 when a
blocking conflict is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.evaluate(cmd.Context(), pipeline.Options{
				Force:   true,
				LogPath: logPath,
				Verify:  verify,
			})
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "also analyze this build log")
	cmd.Flags().BoolVar(&verify, "verify", false, "include project structure issues in the report")

	return cmd
}
