package ingress

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"helm.sh/helm/v3/pkg/chart"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/config"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/helm"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/transform"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/labels"
)

// Type is the component type token.
const Type = "nginx-demo:index:IngressController"

// Controller is the ingress controller installation.
type Controller struct {
	Namespace string
	Release   string
	Chart     helm.ChartSpec

	// Values are merged over DefaultValues.
	Values helm.Values

	// ServiceName names the LoadBalancer Service. Empty means the first
	// rendered Service of type LoadBalancer.
	ServiceName string

	KubeVersion string

	// Labels are added to every object.
	Labels map[string]string

	// Namespaced decides which rendered objects get the controller
	// namespace. Nil means IsNamespaced.
	Namespaced func(*unstructured.Unstructured) bool
}

// New builds a Controller from configuration.
func New(cfg config.ControllerConfig, stackName string) *Controller {
	return &Controller{
		Namespace:   cfg.Namespace,
		Release:     cfg.Release,
		Chart:       helm.GetChartSpec(helm.NginxIngress, cfg.Chart),
		Values:      helm.Values(cfg.Values),
		ServiceName: cfg.ServiceName,
		KubeVersion: cfg.KubeVersion,
		Labels: labels.NewLabelBuilder().
			WithStack(stackName).
			WithComponent(labels.ComponentIngressController).
			Build(),
	}
}

// DefaultValues returns the chart values every installation uses.
func DefaultValues() helm.Values {
	return helm.Values{
		"controller": helm.Values{
			"nginxplus": false,
		},
	}
}

// ChartValues returns the defaults with the configured values merged on top.
func (c *Controller) ChartValues() helm.Values {
	return helm.Merge(DefaultValues(), c.Values)
}

// Load downloads the chart, or reads it from cacheDir.
func (c *Controller) Load(ctx context.Context, cacheDir string) (*chart.Chart, error) {
	logger := log.FromContext(ctx).WithName("ingress")
	logger.V(1).Info("loading chart", "repository", c.Chart.Repository, "chart", c.Chart.Name, "version", c.Chart.Version)

	ch, err := helm.Download(ctx, c.Chart, cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingress controller chart: %w", err)
	}
	return ch, nil
}

// Render renders the chart into objects. CRDs lose their status, namespaced
// objects without a namespace land in the controller namespace, and every
// object gets the controller labels.
func (c *Controller) Render(ch *chart.Chart) ([]*unstructured.Unstructured, error) {
	manifests, err := helm.Render(ch, c.ChartValues(), helm.RenderOptions{
		ReleaseName: c.Release,
		Namespace:   c.Namespace,
		KubeVersion: c.KubeVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", c.Chart.Name, err)
	}

	objs, err := transform.Apply(manifests,
		transform.RemoveCRDStatus,
		transform.DefaultNamespace(c.Namespace, c.namespaced()),
		transform.SetLabels(c.Labels),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to transform %s chart: %w", c.Chart.Name, err)
	}
	return objs, nil
}

func (c *Controller) namespaced() func(*unstructured.Unstructured) bool {
	if c.Namespaced != nil {
		return c.Namespaced
	}
	return IsNamespaced
}

// NamespaceObject returns the controller namespace.
func (c *Controller) NamespaceObject() *unstructured.Unstructured {
	ns := &unstructured.Unstructured{}
	ns.SetAPIVersion("v1")
	ns.SetKind("Namespace")
	ns.SetName(c.Namespace)
	ns.SetLabels(c.Labels)
	return ns
}

// Resources declares the component, its namespace and the rendered objects.
func (c *Controller) Resources(objs []*unstructured.Unstructured) []*stack.Resource {
	comp := stack.Component(Type, c.Release, nil)
	ns := stack.Object(c.NamespaceObject(), comp)

	out := make([]*stack.Resource, 0, len(objs)+2)
	out = append(out, comp, ns)
	for _, obj := range objs {
		out = append(out, stack.Object(obj, ns))
	}
	return out
}

// LoadBalancerServiceName returns the configured Service name, else the name
// of the first rendered Service of type LoadBalancer in the controller
// namespace.
func (c *Controller) LoadBalancerServiceName(objs []*unstructured.Unstructured) (string, error) {
	if c.ServiceName != "" {
		return c.ServiceName, nil
	}
	for _, obj := range objs {
		if obj.GetKind() != "Service" || obj.GetNamespace() != c.Namespace {
			continue
		}
		typ, _, _ := unstructured.NestedString(obj.Object, "spec", "type")
		if typ == string(corev1.ServiceTypeLoadBalancer) {
			return obj.GetName(), nil
		}
	}
	return "", errors.New("chart renders no LoadBalancer Service; set controller.service_name")
}

// clusterScoped are the kinds the chart may render that have no namespace.
var clusterScoped = []string{
	"APIService",
	"ClusterRole",
	"ClusterRoleBinding",
	"CustomResourceDefinition",
	"IngressClass",
	"MutatingWebhookConfiguration",
	"Namespace",
	"PersistentVolume",
	"PriorityClass",
	"StorageClass",
	"ValidatingWebhookConfiguration",
}

// IsNamespaced reports whether obj's kind lives in a namespace. Unknown kinds
// are treated as namespaced.
func IsNamespaced(obj *unstructured.Unstructured) bool {
	return !slices.Contains(clusterScoped, obj.GetKind())
}

// ScopeResolver looks up the scope of a kind, usually through a REST mapper.
type ScopeResolver interface {
	IsNamespaced(obj *unstructured.Unstructured) (bool, error)
}

// ResolveScope asks r for each object's scope and falls back to IsNamespaced
// for kinds r cannot map, such as those of CRDs not installed yet.
func ResolveScope(r ScopeResolver) func(*unstructured.Unstructured) bool {
	return func(obj *unstructured.Unstructured) bool {
		namespaced, err := r.IsNamespaced(obj)
		if err != nil {
			return IsNamespaced(obj)
		}
		return namespaced
	}
}
