package stack

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
)

// TypeRecord is the type token of DNS records.
const TypeRecord = "dns:index:Record"

// Resource is a declared node of the resource graph. Components have neither
// Object nor Record and only group their children.
type Resource struct {
	Type   string
	Name   string
	Parent *Resource

	Object *unstructured.Unstructured
	Record *dns.Record
}

// Component declares a grouping resource.
func Component(typ, name string, parent *Resource) *Resource {
	return &Resource{Type: typ, Name: name, Parent: parent}
}

// Object declares a Kubernetes object. Namespaced objects are named
// <namespace>/<name>.
func Object(obj *unstructured.Unstructured, parent *Resource) *Resource {
	name := obj.GetName()
	if ns := obj.GetNamespace(); ns != "" {
		name = ns + "/" + name
	}
	return &Resource{
		Type:   KubernetesType(obj),
		Name:   name,
		Parent: parent,
		Object: obj,
	}
}

// Record declares a DNS record.
func Record(name string, rec dns.Record, parent *Resource) *Resource {
	return &Resource{Type: TypeRecord, Name: name, Parent: parent, Record: &rec}
}

// KubernetesType returns the type token of a Kubernetes object, for example
// kubernetes:apps/v1:Deployment. The core group is spelled "core".
func KubernetesType(obj *unstructured.Unstructured) string {
	gvk := obj.GroupVersionKind()
	group := gvk.Group
	if group == "" {
		group = "core"
	}
	return fmt.Sprintf("kubernetes:%s/%s:%s", group, gvk.Version, gvk.Kind)
}

// IsComponent reports whether r only groups other resources.
func (r *Resource) IsComponent() bool {
	return r.Object == nil && r.Record == nil
}

// Detail describes what the resource manages, for plans and events.
func (r *Resource) Detail() string {
	switch {
	case r.Object != nil:
		if ns := r.Object.GetNamespace(); ns != "" {
			return fmt.Sprintf("%s %s/%s", r.Object.GetKind(), ns, r.Object.GetName())
		}
		return fmt.Sprintf("%s %s", r.Object.GetKind(), r.Object.GetName())
	case r.Record != nil:
		return r.Record.String()
	default:
		return r.Type
	}
}
