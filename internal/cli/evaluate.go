package cli

import (
	"context"

	"github.com/matzehuels/peerguard/pkg/pipeline"
)

// evaluate runs the pipeline once for the --project-dir and prints the
// result. It returns ErrUnresolved when blocking conflicts remain.
func (c *CLI) evaluate(ctx context.Context, opts pipeline.Options) error {
	ws, err := c.openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	_, err = c.runOnce(ctx, ws, opts)
	return err
}

func (c *CLI) runOnce(ctx context.Context, ws *workspace, opts pipeline.Options) (*pipeline.Result, error) {
	opts.ProjectDir = ws.dir

	var spin *Spinner
	if !c.verbose() {
		spin = newSpinner(ctx, "Checking peer dependencies...")
		spin.Start()
	}
	res, err := ws.runner.Run(ctx, opts)
	if spin != nil {
		spin.Stop()
	}

	if res != nil && (res.State == pipeline.StateUnchanged || res.State == pipeline.StateReported) {
		printResult(res)
	}
	if err != nil {
		return res, err
	}
	if res.Unresolved() {
		return res, ErrUnresolved
	}
	return res, nil
}
