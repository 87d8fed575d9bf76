package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/config"
)

// configCommand prints the effective configuration after file and
// environment overrides.
func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(c.projectDir)
			if err != nil {
				return err
			}
			cfg, path, err := config.Resolve(dir, c.configPath)
			if err != nil {
				return err
			}
			if path == "" {
				path = "(defaults)"
			}
			fmt.Println(StyleDim.Render("# source: " + path))
			fmt.Print(cfg.String())
			return nil
		},
	}
}
