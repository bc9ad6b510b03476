package k8sclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// FieldManager is the server-side apply field manager used by default.
const FieldManager = "nginx-demo"

// Client provides the Kubernetes operations used by the stack engine.
type Client interface {
	// ApplyObject applies a single object using Server-Side Apply, taking
	// ownership of conflicting fields.
	ApplyObject(ctx context.Context, obj *unstructured.Unstructured, fieldManager string) error

	// ApplyManifests applies multi-document YAML using Server-Side Apply.
	ApplyManifests(ctx context.Context, manifests []byte, fieldManager string) error

	// DeleteObject deletes the object identified by apiVersion, kind,
	// namespace and name. A missing object is not an error.
	DeleteObject(ctx context.Context, obj *unstructured.Unstructured) error

	// RefreshDiscovery rebuilds the REST mapper so kinds from newly installed
	// CRDs can be applied.
	RefreshDiscovery(ctx context.Context) error

	// LoadBalancerAddress waits until the Service has an ingress hostname or
	// IP and returns it.
	LoadBalancerAddress(ctx context.Context, namespace, name string, timeout time.Duration) (string, error)

	// FindLoadBalancerService returns the name of the first Service of type
	// LoadBalancer in namespace.
	FindLoadBalancerService(ctx context.Context, namespace string) (string, error)

	// WaitForDeployment waits until every replica of a Deployment is available.
	WaitForDeployment(ctx context.Context, namespace, name string, timeout time.Duration) error

	// IsNamespaced reports whether the server serves obj's kind in a
	// namespace. Kinds the REST mapper does not know return an error.
	IsNamespaced(obj *unstructured.Unstructured) (bool, error)
}

type client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface

	mu     sync.RWMutex
	mapper meta.RESTMapper
}

// NewFromKubeconfig creates a Client from kubeconfig bytes.
func NewFromKubeconfig(kubeconfig []byte) (Client, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	c := &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
	}
	if err := c.RefreshDiscovery(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(
	clientset kubernetes.Interface,
	dynamicClient dynamic.Interface,
	mapper meta.RESTMapper,
) Client {
	return &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
	}
}

// RefreshDiscovery rebuilds the REST mapper from the server's discovery API.
func (c *client) RefreshDiscovery(_ context.Context) error {
	groupResources, err := restmapper.GetAPIGroupResources(c.clientset.Discovery())
	if err != nil {
		return fmt.Errorf("failed to get API group resources: %w", err)
	}

	c.mu.Lock()
	c.mapper = restmapper.NewDiscoveryRESTMapper(groupResources)
	c.mu.Unlock()
	return nil
}

// IsNamespaced implements Client.
func (c *client) IsNamespaced(obj *unstructured.Unstructured) (bool, error) {
	mapper := c.restMapper()
	if mapper == nil {
		return false, fmt.Errorf("REST mapper is not initialized")
	}
	gvk := obj.GroupVersionKind()
	mapping, err := mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return false, fmt.Errorf("failed to get REST mapping for %s: %w", gvk, err)
	}
	return mapping.Scope.Name() == meta.RESTScopeNameNamespace, nil
}

func (c *client) restMapper() meta.RESTMapper {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapper
}
