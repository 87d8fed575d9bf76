package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/peerguard/internal/cli"
	pgerrors "github.com/matzehuels/peerguard/pkg/errors"
)

var styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("167"))

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	err := c.RootCommand().ExecuteContext(ctx)
	switch {
	case err == nil:
		return
	case errors.Is(err, context.Canceled):
		os.Exit(130) // Standard shell convention for SIGINT
	case errors.Is(err, cli.ErrUnresolved):
		// already printed with the result
		os.Exit(1)
	}
	c.Logger.Debug("command failed", "code", pgerrors.GetCode(err), "error", err)
	os.Stderr.WriteString(styleError.Render("✗ "+describe(err)) + "\n")
	os.Exit(1)
}

// describe drops the machine-readable code but keeps the cause, which
// usually names the offending file or package.
func describe(err error) string {
	var e *pgerrors.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}
