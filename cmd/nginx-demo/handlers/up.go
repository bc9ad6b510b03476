package handlers

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/config"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ingress"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/k8sclient"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/state"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ui"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ui/tui"
)

// UpOptions are the flags of the up command.
type UpOptions struct {
	WaitForApps bool
	NoTUI       bool
}

// progress receives phase changes and engine events of an update.
type progress interface {
	phase(key string, done bool)
	event(ev stack.Event)
}

type printProgress struct {
	logger  logr.Logger
	printer *ui.EventPrinter
}

func (p printProgress) phase(key string, done bool) {
	if done {
		p.logger.V(1).Info("phase complete", "phase", key)
		return
	}
	p.logger.Info("phase started", "phase", key)
}

func (p printProgress) event(ev stack.Event) { p.printer.Handle(ev) }

type tuiProgress struct{ r tui.Reporter }

func (p tuiProgress) phase(key string, done bool) { p.r.Phase(key, done) }

func (p tuiProgress) event(ev stack.Event) { p.r.Send(tui.EventMsg{Event: ev}) }

// runTUI runs the update behind the interactive view; replaced in tests.
var runTUI = tui.RunUp

// Up handles the up command.
//
// It installs the ingress controller, waits for its load balancer, applies
// every configured app with its DNS record, prunes resources that are no
// longer declared and saves the stack state and outputs.
func Up(ctx context.Context, opts Options, upOpts UpOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	kube, err := newKubeClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	provider, err := newDNSProvider(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := newStateStore(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := stack.NewMetrics()
	logger := log.FromContext(ctx).WithName("up").WithValues("stack", cfg.Stack)

	var outputs map[string]string
	if isTerminal() && !upOpts.NoTUI && !opts.Verbose {
		err = runTUI(ctx, cfg.Stack, func(ctx context.Context, r tui.Reporter) (map[string]string, error) {
			return runUp(ctx, cfg, kube, provider, store, metrics, upOpts, tuiProgress{r: r})
		})
	} else {
		outputs, err = runUp(ctx, cfg, kube, provider, store, metrics, upOpts, printProgress{
			logger:  logger,
			printer: ui.NewEventPrinter(stdout, opts.Verbose),
		})
		if err == nil {
			err = ui.RenderOutputs(stdout, outputs)
		}
	}
	return writeMetrics(metrics, opts.MetricsFile, err)
}

func runUp(
	ctx context.Context,
	cfg *config.Config,
	kube k8sclient.Client,
	provider dns.Provider,
	store state.Store,
	metrics *stack.Metrics,
	upOpts UpOptions,
	p progress,
) (map[string]string, error) {
	logger := log.FromContext(ctx).WithName("up").WithValues("stack", cfg.Stack)
	ctrl := ingress.New(cfg.Controller, cfg.Stack)
	ctrl.Namespaced = ingress.ResolveScope(kube)

	p.phase(tui.PhaseChart, false)
	ch, err := loadChart(ctx, ctrl, cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	objs, err := ctrl.Render(ch)
	if err != nil {
		return nil, err
	}
	logger.V(1).Info("rendered controller chart", "objects", len(objs))
	p.phase(tui.PhaseChart, true)

	st, err := newStack(ctx, cfg, store, kube, provider,
		stack.WithMetrics(metrics),
		stack.WithEventHandler(p.event),
	)
	if err != nil {
		return nil, err
	}

	p.phase(tui.PhaseController, false)
	if err := st.Apply(ctx, ctrl.Resources(objs)); err != nil {
		return nil, fmt.Errorf("failed to apply ingress controller: %w", err)
	}
	// The chart's CRDs are served from now on.
	if err := kube.RefreshDiscovery(ctx); err != nil {
		return nil, err
	}
	p.phase(tui.PhaseController, true)

	p.phase(tui.PhaseLoadBalancer, false)
	svcName, err := ctrl.LoadBalancerServiceName(objs)
	if err != nil {
		logger.V(1).Info("discovering load balancer service", "reason", err.Error())
		if svcName, err = kube.FindLoadBalancerService(ctx, ctrl.Namespace); err != nil {
			return nil, err
		}
	}
	address, err := kube.LoadBalancerAddress(ctx, ctrl.Namespace, svcName, cfg.Controller.WaitTimeout)
	if err != nil {
		return nil, err
	}
	logger.Info("load balancer ready", "service", svcName, "address", address)
	st.Export(OutputLoadBalancer, address)
	p.phase(tui.PhaseLoadBalancer, true)

	p.phase(tui.PhaseApps, false)
	apps, err := buildApps(cfg, address)
	if err != nil {
		return nil, err
	}
	resources, err := appResources(apps)
	if err != nil {
		return nil, err
	}
	if err := st.Apply(ctx, resources); err != nil {
		return nil, fmt.Errorf("failed to apply apps: %w", err)
	}
	if upOpts.WaitForApps {
		for _, app := range apps {
			if err := kube.WaitForDeployment(ctx, app.Name(), app.Name(), cfg.Controller.WaitTimeout); err != nil {
				return nil, err
			}
		}
	}
	for k, v := range appOutputs(apps) {
		st.Export(k, v)
	}
	p.phase(tui.PhaseApps, true)

	p.phase(tui.PhaseCommit, false)
	saved, err := st.Commit(ctx)
	if err != nil {
		return nil, err
	}
	p.phase(tui.PhaseCommit, true)

	return saved.Outputs, nil
}
