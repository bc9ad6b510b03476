package handlers

import (
	"context"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ui"
)

// Outputs handles the outputs command.
func Outputs(ctx context.Context, opts Options, jsonOutput bool) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	store, err := newStateStore(ctx, cfg)
	if err != nil {
		return err
	}
	st, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return ui.RenderOutputsJSON(stdout, st.Outputs)
	}
	return ui.RenderOutputs(stdout, st.Outputs)
}
