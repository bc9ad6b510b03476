package k8sclient

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/transform"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/ptr"
)

// ApplyManifests applies multi-document YAML using Server-Side Apply.
// Empty documents are skipped.
func (c *client) ApplyManifests(ctx context.Context, manifests []byte, fieldManager string) error {
	objs, err := transform.Decode(manifests)
	if err != nil {
		return err
	}

	for _, obj := range objs {
		if err := c.ApplyObject(ctx, obj, fieldManager); err != nil {
			return err
		}
	}
	return nil
}

// ApplyObject applies a single unstructured object using Server-Side Apply.
func (c *client) ApplyObject(ctx context.Context, obj *unstructured.Unstructured, fieldManager string) error {
	if err := c.applyObject(ctx, obj, fieldManager); err != nil {
		return fmt.Errorf("failed to apply %s %s/%s: %w", obj.GetKind(), obj.GetNamespace(), obj.GetName(), err)
	}
	return nil
}

func (c *client) applyObject(ctx context.Context, obj *unstructured.Unstructured, fieldManager string) error {
	resource, err := c.resourceFor(obj)
	if err != nil {
		return err
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal object to JSON: %w", err)
	}

	if fieldManager == "" {
		fieldManager = FieldManager
	}
	opts := metav1.PatchOptions{
		FieldManager: fieldManager,
		Force:        ptr.Bool(true),
	}

	if _, err := resource.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, opts); err != nil {
		return fmt.Errorf("server-side apply failed: %w", err)
	}
	return nil
}

// DeleteObject deletes an object with foreground propagation. NotFound and
// kinds the server no longer serves are treated as already deleted.
func (c *client) DeleteObject(ctx context.Context, obj *unstructured.Unstructured) error {
	resource, err := c.resourceFor(obj)
	if err != nil {
		if meta.IsNoMatchError(err) {
			return nil
		}
		return err
	}

	propagation := metav1.DeletePropagationForeground
	err = resource.Delete(ctx, obj.GetName(), metav1.DeleteOptions{PropagationPolicy: &propagation})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete %s %s/%s: %w", obj.GetKind(), obj.GetNamespace(), obj.GetName(), err)
	}
	return nil
}

// resourceFor maps the object's GVK to a dynamic resource interface scoped to
// its namespace. Namespaced objects without one land in "default".
func (c *client) resourceFor(obj *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" {
		return nil, fmt.Errorf("object has no kind set")
	}
	if obj.GetName() == "" {
		return nil, fmt.Errorf("%s has no name set", gvk.Kind)
	}

	mapper := c.restMapper()
	if mapper == nil {
		return nil, fmt.Errorf("REST mapper is not initialized")
	}

	mapping, err := mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
	}

	resource := c.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return resource, nil
	}

	namespace := obj.GetNamespace()
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return resource.Namespace(namespace), nil
}
