package productionapp

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/labels"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/naming"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/ptr"
)

// Type is the component type token.
const Type = "productionapp:index:ProductionApp"

// App is a declared production app.
type App struct {
	name string
	args Args

	Namespace  *corev1.Namespace
	Deployment *appsv1.Deployment
	Service    *corev1.Service
	Ingress    *networkingv1.Ingress

	// Record is set when the app binds a DNS record.
	Record *dns.Record
}

// New validates args and builds the app's objects. Every object is named
// after the app and lives in a namespace of the same name.
func New(name string, args Args) (*App, error) {
	args = args.withDefaults()
	if err := args.validate(name); err != nil {
		return nil, fmt.Errorf("invalid production app %s: %w", name, err)
	}

	app := &App{name: name, args: args}
	selector := labels.Selector(name)
	meta := labels.NewLabelBuilder().
		WithComponent(labels.ComponentProductionApp).
		Merge(args.Labels).
		Merge(selector).
		Build()

	app.Namespace = &corev1.Namespace{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: meta},
	}

	app.Deployment = &appsv1.Deployment{
		TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: name, Labels: meta},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.Int32(*args.Replicas),
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels.Selector(name)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  name,
						Image: args.Image,
						Ports: []corev1.ContainerPort{{
							Name:          PortName,
							ContainerPort: args.TargetPort,
							Protocol:      corev1.ProtocolTCP,
						}},
					}},
				},
			},
		},
	}

	app.Service = &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: name, Labels: meta},
		Spec: corev1.ServiceSpec{
			Selector: labels.Selector(name),
			Ports: []corev1.ServicePort{{
				Name:       PortName,
				Port:       ServicePort(args.Version),
				TargetPort: intstr.FromString(PortName),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}

	pathType := networkingv1.PathTypePrefix
	app.Ingress = &networkingv1.Ingress{
		TypeMeta:   metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: name, Labels: meta},
		Spec: networkingv1.IngressSpec{
			IngressClassName: ptr.String(args.IngressClass),
			Rules: []networkingv1.IngressRule{{
				Host: app.Host(),
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: name,
									Port: networkingv1.ServiceBackendPort{Name: PortName},
								},
							},
						}},
					},
				},
			}},
		},
	}

	if args.DNS {
		rec := dns.ForTarget(args.Zone, app.Host(), args.LoadBalancer, args.TTL)
		app.Record = &rec
	}
	return app, nil
}

// Name returns the app name.
func (a *App) Name() string { return a.name }

// Args returns the defaulted inputs.
func (a *App) Args() Args { return a.args }

// Host returns <name>.<domain>.
func (a *App) Host() string {
	return naming.Host(a.name, a.args.Domain)
}

// URL returns the record FQDN when a record is bound, else the ingress host.
func (a *App) URL() string {
	if a.Record != nil {
		return a.Record.Name
	}
	return a.Host()
}

// Objects returns the Kubernetes objects in apply order.
func (a *App) Objects() ([]*unstructured.Unstructured, error) {
	typed := []runtime.Object{a.Namespace, a.Deployment, a.Service, a.Ingress}
	objs := make([]*unstructured.Unstructured, 0, len(typed))
	for _, obj := range typed {
		u, err := toUnstructured(obj)
		if err != nil {
			return nil, err
		}
		objs = append(objs, u)
	}
	return objs, nil
}

// Resources returns the declared resource graph: the component, its
// Namespace, the Deployment, Service and Ingress inside the namespace, and
// the optional record.
func (a *App) Resources(parent *stack.Resource) ([]*stack.Resource, error) {
	objs, err := a.Objects()
	if err != nil {
		return nil, err
	}

	comp := stack.Component(Type, a.name, parent)
	ns := stack.Object(objs[0], comp)
	out := []*stack.Resource{comp, ns}
	for _, obj := range objs[1:] {
		out = append(out, stack.Object(obj, ns))
	}
	if a.Record != nil {
		out = append(out, stack.Record(a.name, *a.Record, comp))
	}
	return out, nil
}

func toUnstructured(obj runtime.Object) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %T: %w", obj, err)
	}
	u := &unstructured.Unstructured{Object: content}
	// Status and creationTimestamp carry no desired state.
	unstructured.RemoveNestedField(u.Object, "status")
	unstructured.RemoveNestedField(u.Object, "metadata", "creationTimestamp")
	unstructured.RemoveNestedField(u.Object, "spec", "template", "metadata", "creationTimestamp")
	return u, nil
}
