package productionapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/ptr"
)

const kuardImage = "gcr.io/kuar-demo/kuard-amd64:blue"

func TestNew_V2Defaults(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{Image: kuardImage})
	require.NoError(t, err)

	assert.Equal(t, "kuard.pulumi-demos.net", app.Host())
	assert.Equal(t, "kuard.pulumi-demos.net", app.URL())
	assert.Nil(t, app.Record)

	assert.Equal(t, int32(3), *app.Deployment.Spec.Replicas)
	assert.Equal(t, int32(80), app.Service.Spec.Ports[0].Port)
	assert.Equal(t, V2, app.Args().Version)
}

func TestNew_V1Defaults(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{Image: kuardImage, Version: V1})
	require.NoError(t, err)

	assert.Equal(t, int32(5), *app.Deployment.Spec.Replicas)
	assert.Equal(t, int32(8080), app.Service.Spec.Ports[0].Port)
	assert.Nil(t, app.Record)
}

func TestNew_Overrides(t *testing.T) {
	t.Parallel()

	app, err := New("web", Args{
		Image:        "nginx:1.27",
		Replicas:     ptr.Int32(1),
		Domain:       "example.com.",
		TargetPort:   3000,
		IngressClass: "public",
	})
	require.NoError(t, err)

	assert.Equal(t, "web.example.com", app.Host())
	assert.Equal(t, int32(1), *app.Deployment.Spec.Replicas)
	assert.Equal(t, int32(3000), app.Deployment.Spec.Template.Spec.Containers[0].Ports[0].ContainerPort)
	assert.Equal(t, "public", *app.Ingress.Spec.IngressClassName)
}

func TestNew_ZeroReplicasIsKept(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{Image: kuardImage, Replicas: ptr.Int32(0)})
	require.NoError(t, err)
	assert.Equal(t, int32(0), *app.Deployment.Spec.Replicas)
}

func TestNew_Wiring(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{Image: kuardImage})
	require.NoError(t, err)

	selector := map[string]string{"name": "kuard"}

	for _, meta := range []map[string]string{
		app.Namespace.Labels, app.Deployment.Labels, app.Service.Labels, app.Ingress.Labels,
	} {
		assert.Equal(t, "kuard", meta["name"])
	}
	assert.Equal(t, selector, app.Deployment.Spec.Selector.MatchLabels)
	assert.Equal(t, selector, app.Deployment.Spec.Template.Labels)
	assert.Equal(t, selector, app.Service.Spec.Selector)

	for _, ns := range []string{app.Deployment.Namespace, app.Service.Namespace, app.Ingress.Namespace} {
		assert.Equal(t, "kuard", ns)
	}

	container := app.Deployment.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "kuard", container.Name)
	assert.Equal(t, kuardImage, container.Image)
	assert.Equal(t, "http", container.Ports[0].Name)
	assert.Equal(t, int32(8080), container.Ports[0].ContainerPort)

	port := app.Service.Spec.Ports[0]
	assert.Equal(t, "http", port.Name)
	assert.Equal(t, intstr.FromString("http"), port.TargetPort)

	rule := app.Ingress.Spec.Rules[0]
	assert.Equal(t, "kuard.pulumi-demos.net", rule.Host)
	path := rule.HTTP.Paths[0]
	assert.Equal(t, "/", path.Path)
	assert.Equal(t, networkingv1.PathTypePrefix, *path.PathType)
	assert.Equal(t, "kuard", path.Backend.Service.Name)
	assert.Equal(t, "http", path.Backend.Service.Port.Name)
	assert.Equal(t, "nginx", *app.Ingress.Spec.IngressClassName)
}

func TestNew_DNSRecord(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{
		Image:        kuardImage,
		DNS:          true,
		LoadBalancer: "a1b2.elb.us-west-2.amazonaws.com",
	})
	require.NoError(t, err)
	require.NotNil(t, app.Record)

	assert.Equal(t, "pulumi-demos.net", app.Record.Zone)
	assert.Equal(t, "kuard.pulumi-demos.net", app.Record.Name)
	assert.Equal(t, "CNAME", app.Record.Type)
	assert.Equal(t, "a1b2.elb.us-west-2.amazonaws.com", app.Record.Target)
	assert.Equal(t, int64(300), app.Record.TTL)
	assert.Equal(t, "kuard.pulumi-demos.net", app.URL())
}

func TestNew_DNSRecordInSeparateZone(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{
		Image:        kuardImage,
		Domain:       "apps.example.com",
		DNS:          true,
		Zone:         "example.com",
		TTL:          60,
		LoadBalancer: "203.0.113.10",
	})
	require.NoError(t, err)
	assert.Equal(t, "example.com", app.Record.Zone)
	assert.Equal(t, "kuard.apps.example.com", app.Record.Name)
	assert.Equal(t, int64(60), app.Record.TTL)
}

func TestNew_DNSRecordForIPv4LoadBalancer(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{Image: kuardImage, DNS: true, LoadBalancer: "203.0.113.10"})
	require.NoError(t, err)
	require.NotNil(t, app.Record)

	assert.Equal(t, "A", app.Record.Type)
	assert.Equal(t, "203.0.113.10", app.Record.Target)
	assert.Equal(t, "kuard.pulumi-demos.net. 300 IN A 203.0.113.10", app.Record.String())
	require.NoError(t, app.Record.Validate())
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		app     string
		args    Args
		wantErr string
	}{
		{name: "missing image", app: "kuard", args: Args{}, wantErr: "image is required"},
		{name: "bad name", app: "Kuard_App", args: Args{Image: kuardImage}, wantErr: `name "Kuard_App"`},
		{name: "unknown version", app: "kuard", args: Args{Image: kuardImage, Version: "v3"}, wantErr: `unknown version "v3"`},
		{name: "negative replicas", app: "kuard", args: Args{Image: kuardImage, Replicas: ptr.Int32(-1)}, wantErr: "replicas must not be negative"},
		{name: "port out of range", app: "kuard", args: Args{Image: kuardImage, TargetPort: 70000}, wantErr: "target port 70000 out of range"},
		{name: "dns on v1", app: "kuard", args: Args{Image: kuardImage, Version: V1, DNS: true}, wantErr: "version v1 does not support DNS records"},
		{name: "dns without load balancer", app: "kuard", args: Args{Image: kuardImage, DNS: true}, wantErr: "load balancer address is required"},
		{name: "dns on IPv6 load balancer", app: "kuard", args: Args{Image: kuardImage, DNS: true, LoadBalancer: "2001:db8::1"}, wantErr: "load balancer address 2001:db8::1 is IPv6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.app, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "invalid production app "+tt.app)
		})
	}
}

func TestObjects(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{Image: kuardImage})
	require.NoError(t, err)

	objs, err := app.Objects()
	require.NoError(t, err)
	require.Len(t, objs, 4)

	kinds := make([]string, 0, len(objs))
	for _, obj := range objs {
		kinds = append(kinds, obj.GetAPIVersion()+"/"+obj.GetKind())
		_, hasStatus := obj.Object["status"]
		assert.False(t, hasStatus, "%s should not carry status", obj.GetKind())
		_, hasTimestamp, _ := unstructured.NestedFieldNoCopy(obj.Object, "metadata", "creationTimestamp")
		assert.False(t, hasTimestamp)
	}
	assert.Equal(t, []string{"v1/Namespace", "apps/v1/Deployment", "v1/Service", "networking.k8s.io/v1/Ingress"}, kinds)

	port, found, err := unstructured.NestedSlice(objs[2].Object, "spec", "ports")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "http", port[0].(map[string]any)["targetPort"])
}

func TestResources(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{Image: kuardImage, DNS: true, LoadBalancer: "lb.example.net"})
	require.NoError(t, err)

	resources, err := app.Resources(nil)
	require.NoError(t, err)
	require.Len(t, resources, 6)

	comp, ns := resources[0], resources[1]
	assert.True(t, comp.IsComponent())
	assert.Equal(t, Type, comp.Type)
	assert.Nil(t, comp.Parent)

	assert.Equal(t, "kubernetes:core/v1:Namespace", ns.Type)
	assert.Same(t, comp, ns.Parent)

	for _, r := range resources[2:5] {
		assert.Same(t, ns, r.Parent)
	}
	assert.Equal(t, "kubernetes:apps/v1:Deployment", resources[2].Type)
	assert.Equal(t, "kuard/kuard", resources[2].Name)
	assert.Equal(t, "kubernetes:core/v1:Service", resources[3].Type)
	assert.Equal(t, "kubernetes:networking.k8s.io/v1:Ingress", resources[4].Type)

	rec := resources[5]
	assert.Equal(t, stack.TypeRecord, rec.Type)
	assert.Same(t, comp, rec.Parent)
	assert.Equal(t, "lb.example.net", rec.Record.Target)
}

func TestResources_WithoutRecord(t *testing.T) {
	t.Parallel()

	app, err := New("kuard", Args{Image: kuardImage})
	require.NoError(t, err)

	resources, err := app.Resources(nil)
	require.NoError(t, err)
	assert.Len(t, resources, 5)
}

func TestServicePortAndSupportsDNS(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(8080), ServicePort(V1))
	assert.Equal(t, int32(80), ServicePort(V2))
	assert.Equal(t, int32(0), ServicePort("v9"))
	assert.False(t, SupportsDNS(V1))
	assert.True(t, SupportsDNS(V2))
}
