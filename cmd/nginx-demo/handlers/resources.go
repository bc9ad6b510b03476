package handlers

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/config"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/productionapp"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/labels"
)

// Output keys.
const (
	OutputURL          = "url"
	OutputLoadBalancer = "loadBalancer"
)

// appOutputKey names the per-app URL output.
func appOutputKey(app string) string {
	return app + ".url"
}

// buildApps declares every configured app. loadBalancer is the DNS record target.
func buildApps(cfg *config.Config, loadBalancer string) ([]*productionapp.App, error) {
	apps := make([]*productionapp.App, 0, len(cfg.Apps))
	for _, appCfg := range cfg.Apps {
		app, err := productionapp.New(appCfg.Name, productionapp.Args{
			Image:        appCfg.Image,
			Replicas:     appCfg.Replicas,
			Domain:       appCfg.Domain,
			TargetPort:   appCfg.TargetPort,
			LoadBalancer: loadBalancer,
			Version:      appCfg.Version,
			IngressClass: appCfg.IngressClass,
			DNS:          cfg.DNSEnabled(appCfg),
			Zone:         cfg.ZoneFor(appCfg.Domain),
			TTL:          cfg.DNS.TTL,
			Labels:       map[string]string{labels.KeyStack: cfg.Stack},
		})
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// appResources flattens the resource graphs of apps.
func appResources(apps []*productionapp.App) ([]*stack.Resource, error) {
	var out []*stack.Resource
	for _, app := range apps {
		res, err := app.Resources(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to declare app %s: %w", app.Name(), err)
		}
		out = append(out, res...)
	}
	return out, nil
}

// appOutputs exports the URL of every app; "url" is the first app's.
func appOutputs(apps []*productionapp.App) map[string]string {
	outputs := make(map[string]string, len(apps)+1)
	for i, app := range apps {
		if i == 0 {
			outputs[OutputURL] = app.URL()
		}
		outputs[appOutputKey(app.Name())] = app.URL()
	}
	return outputs
}

// appObjects returns the Kubernetes objects of apps in apply order.
func appObjects(apps []*productionapp.App) ([]*unstructured.Unstructured, error) {
	var out []*unstructured.Unstructured
	for _, app := range apps {
		objs, err := app.Objects()
		if err != nil {
			return nil, err
		}
		out = append(out, objs...)
	}
	return out, nil
}
