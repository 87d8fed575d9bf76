package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/pipeline"
)

// preBuildCommand is the CI gate run before installing dependencies.
func (c *CLI) preBuildCommand() *cobra.Command {
	var (
		logPath string
		noFix   bool
	)

	cmd := &cobra.Command{
		Use:   "pre-build",
		Short: "Verify the project and fix conflicts before a build",
		Long: `Run before "npm install" in CI. Verifies the project structure, detects
peer dependency conflicts and fixes them. A failing previous build log can
be passed with --log so its peer conflicts are remediated too.

Exits with status 1 when a blocking conflict remains.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.evaluate(cmd.Context(), pipeline.Options{
				Force:   true,
				AutoFix: !noFix,
				LogPath: logPath,
				Verify:  true,
			})
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "build log of a previous failed run")
	cmd.Flags().BoolVar(&noFix, "no-fix", false, "report only, do not modify the project")

	return cmd
}
