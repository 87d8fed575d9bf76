package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/pipeline"
	"github.com/matzehuels/peerguard/pkg/remediate"
)

// fixCommand detects conflicts and applies remediation.
func (c *CLI) fixCommand() *cobra.Command {
	var (
		fixType string
		logPath string
	)

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Detect conflicts and apply safe fixes",
		Long: `Detect peer dependency conflicts and apply the selected fixes:

  auto       write .npmrc and pin the subject package when it blocks (default)
  npmrc      only write .npmrc with relaxed peer resolution
  downgrade  only pin the subject package to a compatible range

Fixes are idempotent; running fix twice changes nothing the second time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, err := remediate.ParseFixType(fixType)
			if err != nil {
				return err
			}
			return c.evaluate(cmd.Context(), pipeline.Options{
				Force:   true,
				AutoFix: true,
				FixType: ft,
				LogPath: logPath,
			})
		},
	}

	cmd.Flags().StringVarP(&fixType, "type", "t", string(remediate.FixAuto), "fix type: auto, npmrc or downgrade")
	cmd.Flags().StringVar(&logPath, "log", "", "also analyze this build log; peer conflicts in it justify writing .npmrc")
	_ = cmd.RegisterFlagCompletionFunc("type", cobra.FixedCompletions(
		[]string{string(remediate.FixAuto), string(remediate.FixNpmrc), string(remediate.FixDowngrade)},
		cobra.ShellCompDirectiveNoFileComp,
	))

	return cmd
}
