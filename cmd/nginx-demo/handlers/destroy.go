package handlers

import (
	"context"
	"errors"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/k8sclient"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ui"
)

// ErrNotConfirmed is returned when destroy is declined or cannot ask.
var ErrNotConfirmed = errors.New("destroy not confirmed")

// Destroy handles the destroy command.
//
// It deletes every resource recorded in the stack state in reverse order and
// saves an empty state.
func Destroy(ctx context.Context, opts Options, yes bool) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	logger := log.FromContext(ctx).WithName("destroy").WithValues("stack", cfg.Stack)

	store, err := newStateStore(ctx, cfg)
	if err != nil {
		return err
	}
	probe, err := newStack(ctx, cfg, store, nil, nil)
	if err != nil {
		return err
	}
	plan := probe.PreviewDestroy()
	if plan.Empty() {
		_, err := fmt.Fprintf(stdout, "Stack %s has no resources.\n", cfg.Stack)
		return err
	}
	if err := ui.RenderPlan(stdout, plan); err != nil {
		return err
	}

	if !yes {
		if !isTerminal() {
			return fmt.Errorf("%w: pass --yes to destroy without a terminal", ErrNotConfirmed)
		}
		ok, err := confirm(
			fmt.Sprintf("Destroy stack %s?", cfg.Stack),
			fmt.Sprintf("%d resources will be deleted.", plan.Count(stack.OpDelete)),
		)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotConfirmed
		}
	}

	var kube k8sclient.Client
	if hasObjects(probe) {
		if kube, err = newKubeClient(cfg); err != nil {
			return fmt.Errorf("failed to create Kubernetes client: %w", err)
		}
	}
	provider, err := newDNSProvider(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := stack.NewMetrics()
	st, err := newStack(ctx, cfg, store, kube, provider,
		stack.WithMetrics(metrics),
		stack.WithEventHandler(ui.NewEventPrinter(stdout, opts.Verbose).Handle),
	)
	if err != nil {
		return err
	}

	_, err = st.Destroy(ctx)
	if err == nil {
		logger.Info("stack destroyed", "location", st.Location())
	}
	return writeMetrics(metrics, opts.MetricsFile, err)
}

func hasObjects(st *stack.Stack) bool {
	for _, res := range st.Prior().Resources {
		if res.Object != nil {
			return true
		}
	}
	return false
}
