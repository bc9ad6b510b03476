package stack

import (
	"context"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/k8sclient"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/state"
)

// ctxStore fails saves on a cancelled context, like a remote backend would.
type ctxStore struct {
	state.Store
}

func (s ctxStore) Save(ctx context.Context, st *state.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Save(ctx, st)
}

// fakeKube records applies and deletes and fails on demand.
type fakeKube struct {
	mu      sync.Mutex
	applied []string
	deleted []string

	// failures maps "op kind/name" to errors returned in turn.
	failures map[string][]error
}

var _ k8sclient.Client = (*fakeKube)(nil)

func newFakeKube() *fakeKube {
	return &fakeKube{failures: map[string][]error{}}
}

func (f *fakeKube) failNext(key string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *fakeKube) pop(key string) error {
	errs := f.failures[key]
	if len(errs) == 0 {
		return nil
	}
	f.failures[key] = errs[1:]
	return errs[0]
}

func (f *fakeKube) ApplyObject(_ context.Context, obj *unstructured.Unstructured, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := obj.GetKind() + "/" + obj.GetName()
	if err := f.pop("apply " + key); err != nil {
		return err
	}
	f.applied = append(f.applied, key)
	return nil
}

func (f *fakeKube) ApplyManifests(context.Context, []byte, string) error { return nil }

func (f *fakeKube) DeleteObject(_ context.Context, obj *unstructured.Unstructured) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := obj.GetKind() + "/" + obj.GetName()
	if err := f.pop("delete " + key); err != nil {
		return err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeKube) RefreshDiscovery(context.Context) error { return nil }

func (f *fakeKube) IsNamespaced(*unstructured.Unstructured) (bool, error) { return true, nil }

func (f *fakeKube) LoadBalancerAddress(context.Context, string, string, time.Duration) (string, error) {
	return "lb.example.net", nil
}

func (f *fakeKube) FindLoadBalancerService(context.Context, string) (string, error) {
	return "nginx-ingress-controller", nil
}

func (f *fakeKube) WaitForDeployment(context.Context, string, string, time.Duration) error {
	return nil
}

// fakeDNS keeps records in memory.
type fakeDNS struct {
	name    string
	records map[string]dns.Record
	err     error
	// flaky errors are returned by the next upserts, one per call.
	flaky   []error
	upserts int
}

func newFakeDNS() *fakeDNS {
	return &fakeDNS{name: "route53", records: map[string]dns.Record{}}
}

func (f *fakeDNS) Name() string { return f.name }

func (f *fakeDNS) UpsertRecord(_ context.Context, rec dns.Record) error {
	f.upserts++
	if len(f.flaky) > 0 {
		err := f.flaky[0]
		f.flaky = f.flaky[1:]
		return err
	}
	if f.err != nil {
		return f.err
	}
	f.records[rec.Name] = rec
	return nil
}

func (f *fakeDNS) DeleteRecord(_ context.Context, rec dns.Record) error {
	if f.err != nil {
		return f.err
	}
	delete(f.records, rec.Name)
	return nil
}

func namespace(name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion("v1")
	obj.SetKind("Namespace")
	obj.SetName(name)
	return obj
}

func deployment(ns, name string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion("apps/v1")
	obj.SetKind("Deployment")
	obj.SetNamespace(ns)
	obj.SetName(name)
	return obj
}
