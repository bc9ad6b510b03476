package helm

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/releaseutil"
)

// RenderOptions describe the release a chart is rendered for.
type RenderOptions struct {
	ReleaseName string
	Namespace   string

	// KubeVersion is advertised through .Capabilities.KubeVersion.
	KubeVersion string

	// APIVersions are added to .Capabilities.APIVersions.
	APIVersions []string
}

// Render renders a loaded chart into multi-document YAML.
func Render(ch *chart.Chart, values Values, opts RenderOptions) ([]byte, error) {
	if ch == nil || ch.Metadata == nil {
		return nil, fmt.Errorf("chart is not loaded")
	}
	if opts.ReleaseName == "" {
		opts.ReleaseName = ch.Name()
	}

	caps, err := capabilities(opts)
	if err != nil {
		return nil, err
	}

	releaseOptions := chartutil.ReleaseOptions{
		Name:      opts.ReleaseName,
		Namespace: opts.Namespace,
		Revision:  1,
		IsInstall: true,
	}

	// ToRenderValues coalesces the chart's own values.yaml under ours.
	valuesToRender, err := chartutil.ToRenderValues(ch, values.ToMap(), releaseOptions, caps)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	eng := engine.Engine{
		Strict:   false,
		LintMode: false,
	}

	rendered, err := eng.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	for name := range rendered {
		if strings.HasSuffix(name, "NOTES.txt") {
			delete(rendered, name)
		}
	}

	hooks, manifests, err := releaseutil.SortManifests(rendered, caps.APIVersions, releaseutil.InstallOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to sort manifests: %w", err)
	}

	var combined bytes.Buffer
	write := func(content string) {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return
		}
		if combined.Len() > 0 {
			combined.WriteString("\n---\n")
		}
		combined.WriteString(trimmed)
		combined.WriteString("\n")
	}

	for _, crd := range ch.CRDObjects() {
		write(string(crd.File.Data))
	}
	for _, m := range manifests {
		write(m.Content)
	}
	for _, h := range hooks {
		if slices.Contains(h.Events, release.HookTest) {
			continue
		}
		write(h.Manifest)
	}

	return combined.Bytes(), nil
}

func capabilities(opts RenderOptions) (*chartutil.Capabilities, error) {
	caps := chartutil.DefaultCapabilities.Copy()

	if opts.KubeVersion != "" {
		kv, err := chartutil.ParseKubeVersion(opts.KubeVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid kube version %q: %w", opts.KubeVersion, err)
		}
		caps.KubeVersion = *kv
	}

	if len(opts.APIVersions) > 0 {
		caps.APIVersions = append(caps.APIVersions, opts.APIVersions...)
	}

	return caps, nil
}
