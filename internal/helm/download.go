package helm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/naming"
)

// locateChart is replaced in tests to avoid network access.
var locateChart = func(spec ChartSpec, cacheDir string) (string, error) {
	settings := cli.New()
	settings.RepositoryCache = cacheDir

	opts := action.ChartPathOptions{
		RepoURL: spec.Repository,
		Version: spec.Version,
	}
	return opts.LocateChart(spec.Name, settings)
}

// Download fetches a chart from its repository. Pinned versions are cached in
// cacheDir and loaded from disk on subsequent calls.
func Download(ctx context.Context, spec ChartSpec, cacheDir string) (*chart.Chart, error) {
	logger := log.FromContext(ctx).WithName("helm")

	if spec.Name == "" {
		return nil, fmt.Errorf("chart name is required")
	}
	if spec.Repository == "" {
		return nil, fmt.Errorf("chart %s: repository is required", spec.Name)
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chart cache %s: %w", cacheDir, err)
	}

	if spec.Version != "" {
		cached := filepath.Join(cacheDir, naming.ChartArchive(spec.Name, spec.Version))
		if _, err := os.Stat(cached); err == nil {
			logger.V(1).Info("using cached chart", "chart", spec.Name, "version", spec.Version, "path", cached)
			return loader.Load(cached)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("downloading chart", "chart", spec.Name, "version", spec.Version, "repository", spec.Repository)
	path, err := locateChart(spec, cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", spec.Name, spec.Repository, err)
	}

	loaded, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart %s: %w", path, err)
	}
	return loaded, nil
}
