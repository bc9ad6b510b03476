package handlers

import (
	"context"
	"fmt"
	"slices"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ingress"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/transform"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ui"
)

// Preview output formats.
const (
	OutputPlan = "plan"
	OutputYAML = "yaml"
)

// pendingAddress stands in for a load balancer address not known yet.
const pendingAddress = "pending.invalid"

// Preview handles the preview command. It never contacts the cluster or the
// DNS provider.
func Preview(ctx context.Context, opts Options, output string) error {
	if output != OutputPlan && output != OutputYAML {
		return fmt.Errorf("unknown output format %q (want %s or %s)", output, OutputPlan, OutputYAML)
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	store, err := newStateStore(ctx, cfg)
	if err != nil {
		return err
	}
	st, err := newStack(ctx, cfg, store, nil, nil)
	if err != nil {
		return err
	}

	ctrl := ingress.New(cfg.Controller, cfg.Stack)
	ch, err := loadChart(ctx, ctrl, cfg.CacheDir)
	if err != nil {
		return err
	}
	objs, err := ctrl.Render(ch)
	if err != nil {
		return err
	}

	address := st.Prior().Outputs[OutputLoadBalancer]
	if address == "" {
		address = pendingAddress
	}
	apps, err := buildApps(cfg, address)
	if err != nil {
		return err
	}

	if output == OutputYAML {
		appObjs, err := appObjects(apps)
		if err != nil {
			return err
		}
		data, err := transform.Encode(slices.Concat(objs, appObjs))
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	resources, err := appResources(apps)
	if err != nil {
		return err
	}
	plan, err := st.Preview(slices.Concat(ctrl.Resources(objs), resources))
	if err != nil {
		return err
	}
	return ui.RenderPlan(stdout, plan)
}
