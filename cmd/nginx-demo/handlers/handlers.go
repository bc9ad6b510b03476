// Package handlers implements the business logic of the CLI commands.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"helm.sh/helm/v3/pkg/chart"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/config"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ingress"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/k8sclient"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/platform/cloudflare"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/platform/route53"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/platform/s3"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/state"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ui"
)

// Options are the global flags.
type Options struct {
	ConfigPath  string
	Verbose     bool
	MetricsFile string
}

// Factory function variables - can be replaced in tests.
var (
	// loadConfig resolves, loads and validates the configuration.
	loadConfig = func(path string) (*config.Config, error) {
		resolved, err := config.Resolve(path)
		if err != nil {
			return nil, err
		}
		return config.LoadFile(resolved)
	}

	// newKubeClient connects to the cluster of the configured kubeconfig.
	newKubeClient = func(cfg *config.Config) (k8sclient.Client, error) {
		data, err := cfg.KubeconfigBytes()
		if err != nil {
			return nil, err
		}
		return k8sclient.NewFromKubeconfig(data)
	}

	// newDNSProvider returns the configured provider, nil when DNS is disabled.
	newDNSProvider = func(ctx context.Context, cfg *config.Config) (dns.Provider, error) {
		switch cfg.DNS.Provider {
		case config.DNSProviderRoute53:
			client, err := route53.NewClient(ctx, cfg.DNS.Route53.Region, cfg.DNS.Route53.HostedZoneID)
			if err != nil {
				return nil, fmt.Errorf("failed to create Route53 client: %w", err)
			}
			return client, nil
		case config.DNSProviderCloudflare:
			return cloudflare.NewClient(cfg.DNS.Cloudflare.APIToken,
				cloudflare.WithZoneID(cfg.DNS.Cloudflare.ZoneID),
				cloudflare.WithProxied(cfg.DNS.Cloudflare.Proxied),
			), nil
		default:
			return nil, nil
		}
	}

	// newStateStore returns the configured state backend.
	newStateStore = func(ctx context.Context, cfg *config.Config) (state.Store, error) {
		if cfg.State.Backend != config.StateBackendS3 {
			return state.NewLocalStore(cfg.Stack, cfg.State.Path), nil
		}
		client, err := s3.NewClient(ctx, s3.Options{
			Region:    cfg.State.S3.Region,
			Endpoint:  cfg.State.S3.Endpoint,
			AccessKey: cfg.State.S3.AccessKey,
			SecretKey: cfg.State.S3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return state.NewS3Store(client, cfg.Stack, cfg.State.S3.Bucket, cfg.State.S3.Prefix), nil
	}

	// loadChart downloads the controller chart or reads it from the cache.
	loadChart = func(ctx context.Context, c *ingress.Controller, cacheDir string) (*chart.Chart, error) {
		return c.Load(ctx, cacheDir)
	}

	// isTerminal reports whether stdout is interactive.
	isTerminal = func() bool { return ui.IsTerminal(os.Stdout) }

	// confirm asks a yes/no question.
	confirm = ui.Confirm

	// stdout receives command output.
	stdout io.Writer = os.Stdout
)

// newStack opens the stack with the configured clients. kube and provider
// may be nil.
func newStack(ctx context.Context, cfg *config.Config, store state.Store, kube k8sclient.Client, provider dns.Provider, opts ...stack.Option) (*stack.Stack, error) {
	if kube != nil {
		opts = append(opts, stack.WithClient(kube))
	}
	if provider != nil {
		opts = append(opts, stack.WithDNSProvider(provider))
	}
	return stack.New(ctx, cfg.Stack, store, opts...)
}

// writeMetrics writes the metrics file when requested. A failure is joined
// to err rather than replacing it.
func writeMetrics(metrics *stack.Metrics, path string, err error) error {
	if path == "" {
		return err
	}
	if werr := metrics.WriteTextfile(path); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}
