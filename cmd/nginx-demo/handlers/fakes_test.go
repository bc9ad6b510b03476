package handlers

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"helm.sh/helm/v3/pkg/chart"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/config"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/ingress"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/k8sclient"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/state"
)

type fakeKube struct {
	applied   []string
	deleted   []string
	refreshed int
	address   string
	waited    []string
	lbLookups []string
}

var _ k8sclient.Client = (*fakeKube)(nil)

func (f *fakeKube) ApplyObject(_ context.Context, obj *unstructured.Unstructured, _ string) error {
	f.applied = append(f.applied, obj.GetKind()+"/"+obj.GetName())
	return nil
}

func (f *fakeKube) ApplyManifests(context.Context, []byte, string) error { return nil }

func (f *fakeKube) DeleteObject(_ context.Context, obj *unstructured.Unstructured) error {
	f.deleted = append(f.deleted, obj.GetKind()+"/"+obj.GetName())
	return nil
}

func (f *fakeKube) RefreshDiscovery(context.Context) error {
	f.refreshed++
	return nil
}

func (f *fakeKube) LoadBalancerAddress(_ context.Context, ns, name string, _ time.Duration) (string, error) {
	f.lbLookups = append(f.lbLookups, ns+"/"+name)
	return f.address, nil
}

func (f *fakeKube) FindLoadBalancerService(context.Context, string) (string, error) {
	return "discovered", nil
}

// IsNamespaced knows no kinds, like a mapper before discovery.
func (f *fakeKube) IsNamespaced(obj *unstructured.Unstructured) (bool, error) {
	return false, fmt.Errorf("no matches for kind %q", obj.GetKind())
}

func (f *fakeKube) WaitForDeployment(_ context.Context, ns, name string, _ time.Duration) error {
	f.waited = append(f.waited, ns+"/"+name)
	return nil
}

type fakeDNS struct {
	records map[string]dns.Record
}

func (f *fakeDNS) Name() string { return config.DNSProviderRoute53 }

func (f *fakeDNS) UpsertRecord(_ context.Context, rec dns.Record) error {
	f.records[rec.Name] = rec
	return nil
}

func (f *fakeDNS) DeleteRecord(_ context.Context, rec dns.Record) error {
	delete(f.records, rec.Name)
	return nil
}

func controllerChart() *chart.Chart {
	return &chart.Chart{
		Metadata: &chart.Metadata{APIVersion: "v2", Name: "nginx-ingress", Version: "2.0.1"},
		Values:   map[string]any{"controller": map[string]any{"nginxplus": true}},
		Templates: []*chart.File{
			{
				Name: "templates/controller-service.yaml",
				Data: []byte(`apiVersion: v1
kind: Service
metadata:
  name: {{ .Release.Name }}-nginx-ingress
spec:
  type: LoadBalancer
`),
			},
			{
				Name: "templates/controller-deployment.yaml",
				Data: []byte(`apiVersion: apps/v1
kind: Deployment
metadata:
  name: {{ .Release.Name }}-nginx-ingress
  annotations:
    nginxplus: "{{ .Values.controller.nginxplus }}"
`),
			},
		},
	}
}

// env replaces every factory with fakes for the duration of a test.
type env struct {
	cfg   *config.Config
	kube  *fakeKube
	dns   *fakeDNS
	store *state.LocalStore
	out   *bytes.Buffer

	terminal  bool
	confirmed bool
	asked     int
}

func setup(t *testing.T) *env {
	t.Helper()

	cfg := &config.Config{
		Stack: "dev",
		Controller: config.ControllerConfig{
			Namespace:   "nginx-ingress",
			Release:     "nginx-ingress",
			KubeVersion: "v1.31.0",
			WaitTimeout: time.Minute,
		},
		Apps: []config.AppConfig{{
			Name:         "kuard",
			Image:        "gcr.io/kuar-demo/kuard-amd64:blue",
			Version:      config.AppVersionV2,
			TargetPort:   8080,
			IngressClass: "nginx",
		}},
		DNS: config.DNSConfig{Provider: config.DNSProviderRoute53, TTL: 300},
	}

	e := &env{
		cfg:   cfg,
		kube:  &fakeKube{address: "a1.elb.us-west-2.amazonaws.com"},
		dns:   &fakeDNS{records: map[string]dns.Record{}},
		store: state.NewLocalStore("dev", filepath.Join(t.TempDir(), "dev.state.yaml")),
		out:   &bytes.Buffer{},
	}

	origLoad, origKube, origDNS, origStore := loadConfig, newKubeClient, newDNSProvider, newStateStore
	origChart, origTerm, origConfirm, origStdout, origTUI := loadChart, isTerminal, confirm, stdout, runTUI
	t.Cleanup(func() {
		loadConfig, newKubeClient, newDNSProvider, newStateStore = origLoad, origKube, origDNS, origStore
		loadChart, isTerminal, confirm, stdout, runTUI = origChart, origTerm, origConfirm, origStdout, origTUI
	})

	loadConfig = func(string) (*config.Config, error) { return e.cfg, nil }
	newKubeClient = func(*config.Config) (k8sclient.Client, error) { return e.kube, nil }
	newDNSProvider = func(context.Context, *config.Config) (dns.Provider, error) {
		if e.cfg.DNS.Provider == "" {
			return nil, nil
		}
		return e.dns, nil
	}
	newStateStore = func(context.Context, *config.Config) (state.Store, error) { return e.store, nil }
	loadChart = func(context.Context, *ingress.Controller, string) (*chart.Chart, error) {
		return controllerChart(), nil
	}
	isTerminal = func() bool { return e.terminal }
	confirm = func(string, string) (bool, error) {
		e.asked++
		return e.confirmed, nil
	}
	stdout = e.out

	return e
}
