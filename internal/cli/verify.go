package cli

import (
	stderrors "errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/pipeline"
)

var errStructureIssues = stderrors.New("project structure issues found")

// verifyCommand checks the project layout a build expects.
func (c *CLI) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the project for files and settings a build needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(c.projectDir)
			if err != nil {
				return err
			}
			issues := pipeline.VerifyProjectStructure(dir)
			if len(issues) == 0 {
				printSuccess("Project structure looks complete")
				return nil
			}
			printIssues(issues)
			return errStructureIssues
		},
	}
}
