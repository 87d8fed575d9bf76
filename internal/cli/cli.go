// Package cli implements the peerguard command-line interface.
package cli

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/buildinfo"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "peerguard"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// ErrUnresolved is returned when blocking conflicts remain after a run. The
// conflicts have already been printed, so main only sets the exit code.
var ErrUnresolved = stderrors.New("unresolved blocking peer dependency conflicts")

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	projectDir string
	configPath string
	noCache    bool
	verboseLog bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "peerguard detects and fixes peer dependency conflicts before they break a build",
		Long: `peerguard checks a JavaScript project's package.json against the peer
dependency requirements published in the npm registry, explains failed builds
from their logs, and applies safe, idempotent fixes. It is meant to run
unattended as a CI pre-build gate or as a monitor.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verboseLog {
				c.SetLogLevel(LogDebug)
			}
			if c.verbose() {
				registerLogHooks(c.Logger)
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVarP(&c.projectDir, "project-dir", "C", ".", "project directory containing package.json")
	flags.StringVar(&c.configPath, "config", "", "config file (default: .peerguard.toml or .peerguard.yaml in the project)")
	flags.BoolVar(&c.noCache, "no-cache", false, "query the registry without the lookup cache")
	flags.BoolVarP(&c.verboseLog, "verbose", "v", false, "enable verbose logging")

	// Register all subcommands
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.fixCommand())
	root.AddCommand(c.monitorCommand())
	root.AddCommand(c.preBuildCommand())
	root.AddCommand(c.analyzeLogCommand())
	root.AddCommand(c.verifyCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/peerguard/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
