package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/manifest"
	"github.com/matzehuels/peerguard/pkg/pipeline"
)

// watchDebounce collapses the burst of events editors and package managers
// produce for a single save.
const watchDebounce = 500 * time.Millisecond

// monitorCommand re-evaluates only when the dependency set changed.
func (c *CLI) monitorCommand() *cobra.Command {
	var (
		autoFix bool
		force   bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Evaluate the project when its dependencies changed",
		Long: `Compare the dependency set with the snapshot of the last evaluation and
evaluate only when it changed. With --watch, keep running and re-evaluate
whenever package.json is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.Options{AutoFix: autoFix, Force: force}
			if !watch {
				return c.evaluate(cmd.Context(), opts)
			}
			return c.watch(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&autoFix, "auto-fix", false, "apply fixes when conflicts are found")
	cmd.Flags().BoolVar(&force, "force", false, "evaluate even when nothing changed")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-evaluate on manifest changes")

	return cmd
}

// watch evaluates once, then again after every change to package.json,
// until ctx ends. Evaluation failures are logged and do not stop the loop.
func (c *CLI) watch(ctx context.Context, opts pipeline.Options) error {
	ws, err := c.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// The directory is watched rather than the file so atomic
	// rename-over writes keep being observed.
	if err := watcher.Add(ws.dir); err != nil {
		return fmt.Errorf("watch %s: %w", ws.dir, err)
	}

	c.monitorPass(ctx, ws, opts)
	opts.Force = false
	c.Logger.Info("watching for changes", "path", filepath.Join(ws.dir, manifest.FileName))

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if manifestEvent(ev) {
				c.Logger.Debug("manifest event", "op", ev.Op.String())
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "error", err)
		case <-timer.C:
			c.monitorPass(ctx, ws, opts)
		}
	}
}

func (c *CLI) monitorPass(ctx context.Context, ws *workspace, opts pipeline.Options) {
	prog := newProgress(c.Logger)
	res, err := c.runOnce(ctx, ws, opts)
	switch {
	case stderrors.Is(err, ErrUnresolved):
		prog.done("evaluation finished with blocking conflicts", "conflicts", len(res.Conflicts))
	case err != nil && ctx.Err() == nil:
		c.Logger.Error("evaluation failed", "error", err)
	case err == nil:
		prog.done("evaluation finished", "state", res.State)
	}
}

// manifestEvent reports whether ev may have changed package.json.
func manifestEvent(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != manifest.FileName {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
