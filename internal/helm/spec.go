package helm

import "github.com/jaxxstorm/pulumi-nginx-demo/internal/config"

// ChartSpec identifies a chart in a repository.
type ChartSpec struct {
	Repository string
	Name       string
	Version    string
}

// NginxIngress is the registry key of the NGINX ingress controller chart.
const NginxIngress = "nginx-ingress"

// DefaultChartSpecs contains the default chart specifications per component.
var DefaultChartSpecs = map[string]ChartSpec{
	NginxIngress: {
		Repository: "https://helm.nginx.com/stable",
		Name:       "nginx-ingress",
		Version:    "2.0.1",
	},
}

// GetChartSpec returns the chart spec for the given component,
// applying any overrides from the chart config.
func GetChartSpec(name string, override config.ChartConfig) ChartSpec {
	spec, ok := DefaultChartSpecs[name]
	if !ok {
		spec = ChartSpec{Name: name}
	}

	if override.Repository != "" {
		spec.Repository = override.Repository
	}
	if override.Name != "" {
		spec.Name = override.Name
	}
	if override.Version != "" {
		spec.Version = override.Version
	}

	return spec
}
