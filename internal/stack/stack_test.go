package stack

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/state"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/retry"
)

const appType = "productionapp:index:ProductionApp"

var _ = Describe("Stack", func() {
	var (
		ctx    context.Context
		kube   *fakeKube
		zone   *fakeDNS
		store  *state.LocalStore
		events []Event
	)

	newStack := func() *Stack {
		st, err := New(ctx, "dev", store,
			WithClient(kube),
			WithDNSProvider(zone),
			WithEventHandler(func(ev Event) { events = append(events, ev) }),
			WithRetryOptions(retry.WithInitialDelay(time.Millisecond), retry.WithMaxRetries(3)),
		)
		Expect(err).NotTo(HaveOccurred())
		st.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
		return st
	}

	app := func(name string, withRecord bool) []*Resource {
		comp := Component(appType, name, nil)
		ns := Object(namespace(name), comp)
		out := []*Resource{comp, ns, Object(deployment(name, name), ns)}
		if withRecord {
			out = append(out, Record(name, dns.CNAME("pulumi-demos.net", name+".pulumi-demos.net", "lb.example.net", 300), comp))
		}
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()
		kube = newFakeKube()
		zone = newFakeDNS()
		store = state.NewLocalStore("dev", filepath.Join(GinkgoT().TempDir(), "dev.state.yaml"))
		events = nil
	})

	Describe("Preview", func() {
		It("plans creates for a fresh stack", func() {
			st := newStack()
			plan, err := st.Preview(app("kuard", true))
			Expect(err).NotTo(HaveOccurred())

			Expect(plan.Steps).To(HaveLen(4))
			Expect(plan.Count(OpCreate)).To(Equal(4))
			Expect(plan.Steps[0].URN).To(Equal("urn:dev::productionapp:index:ProductionApp::kuard"))
			Expect(plan.Steps[2].URN).To(Equal("urn:dev::kubernetes:apps/v1:Deployment::kuard/kuard"))
			Expect(plan.Steps[2].Parent).To(Equal("urn:dev::kubernetes:core/v1:Namespace::kuard"))
			Expect(plan.Steps[3].Detail).To(Equal("kuard.pulumi-demos.net. 300 IN CNAME lb.example.net."))
		})

		It("plans updates for recorded resources and deletes for dropped ones", func() {
			st := newStack()
			Expect(st.Apply(ctx, app("kuard", true))).To(Succeed())
			_, err := st.Commit(ctx)
			Expect(err).NotTo(HaveOccurred())

			plan, err := newStack().Preview(app("kuard", false))
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Count(OpUpdate)).To(Equal(3))
			Expect(plan.Count(OpCreate)).To(Equal(0))
			Expect(plan.Count(OpDelete)).To(Equal(1))
			Expect(plan.Steps[3].Type).To(Equal(TypeRecord))
			Expect(plan.Steps[3].Name).To(Equal("kuard"))
		})

		It("does not touch the cluster", func() {
			_, err := newStack().Preview(app("kuard", true))
			Expect(err).NotTo(HaveOccurred())
			Expect(kube.applied).To(BeEmpty())
			Expect(zone.records).To(BeEmpty())
		})

		It("rejects duplicates and missing parents", func() {
			comp := Component(appType, "kuard", nil)
			orphan := Object(namespace("kuard"), Component(appType, "other", nil))

			_, err := newStack().Preview([]*Resource{comp, comp, orphan})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("duplicate resource urn:dev::productionapp:index:ProductionApp::kuard"))
			Expect(err.Error()).To(ContainSubstring("is declared before its parent urn:dev::productionapp:index:ProductionApp::other"))
		})
	})

	Describe("Apply and Commit", func() {
		It("applies in declaration order and saves state with outputs", func() {
			st := newStack()
			Expect(st.Apply(ctx, app("kuard", true))).To(Succeed())
			st.Export("url", "kuard.pulumi-demos.net")

			saved, err := st.Commit(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(kube.applied).To(Equal([]string{"Namespace/kuard", "Deployment/kuard"}))
			Expect(zone.records).To(HaveKey("kuard.pulumi-demos.net"))

			Expect(saved.Serial).To(Equal(int64(1)))
			Expect(saved.Outputs).To(Equal(map[string]string{"url": "kuard.pulumi-demos.net"}))
			Expect(saved.Resources).To(HaveLen(4))
			Expect(saved.Resources[3].Provider).To(Equal("route53"))

			loaded, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(saved))
		})

		It("accumulates several Apply calls into one desired set", func() {
			st := newStack()
			Expect(st.Apply(ctx, app("controller", false))).To(Succeed())
			Expect(st.Apply(ctx, app("kuard", false))).To(Succeed())
			saved, err := st.Commit(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Resources).To(HaveLen(6))
			Expect(kube.deleted).To(BeEmpty())
		})

		It("lets children reference parents applied in an earlier call", func() {
			st := newStack()
			comp := Component(appType, "kuard", nil)
			Expect(st.Apply(ctx, []*Resource{comp})).To(Succeed())
			Expect(st.Apply(ctx, []*Resource{Object(namespace("kuard"), comp)})).To(Succeed())
		})

		It("prunes resources that are no longer declared, children first", func() {
			st := newStack()
			Expect(st.Apply(ctx, append(app("kuard", true), app("old", true)...))).To(Succeed())
			_, err := st.Commit(ctx)
			Expect(err).NotTo(HaveOccurred())

			next := newStack()
			Expect(next.Apply(ctx, app("kuard", true))).To(Succeed())
			saved, err := next.Commit(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(kube.deleted).To(Equal([]string{"Deployment/old", "Namespace/old"}))
			Expect(zone.records).NotTo(HaveKey("old.pulumi-demos.net"))
			Expect(zone.records).To(HaveKey("kuard.pulumi-demos.net"))
			Expect(saved.Serial).To(Equal(int64(2)))
			Expect(saved.Resources).To(HaveLen(4))
		})

		It("retries transient errors", func() {
			gr := schema.GroupResource{Group: "apps", Resource: "deployments"}
			kube.failNext("apply Deployment/kuard",
				apierrors.NewConflict(gr, "kuard", errors.New("the object has been modified")),
				apierrors.NewTooManyRequests("slow down", 1),
			)

			st := newStack()
			Expect(st.Apply(ctx, app("kuard", false))).To(Succeed())
			Expect(kube.applied).To(ContainElement("Deployment/kuard"))

			var retries int
			for _, ev := range events {
				if ev.Status == StatusRetrying {
					retries++
				}
			}
			Expect(retries).To(Equal(2))
		})

		It("fails fast on permanent errors and checkpoints progress", func() {
			gr := schema.GroupResource{Group: "apps", Resource: "deployments"}
			kube.failNext("apply Deployment/kuard", apierrors.NewForbidden(gr, "kuard", errors.New("denied")))

			st := newStack()
			err := st.Apply(ctx, app("kuard", false))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to create urn:dev::kubernetes:apps/v1:Deployment::kuard/kuard"))
			Expect(apierrors.IsForbidden(err)).To(BeTrue())

			checkpoint, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(checkpoint.Resources).To(HaveLen(2), "component and namespace were applied")

			last := events[len(events)-1]
			Expect(last.Status).To(Equal(StatusFailed))
			Expect(last.Op).To(Equal(OpCreate))
		})

		It("saves the checkpoint when the run is cancelled", func() {
			st, err := New(ctx, "dev", ctxStore{Store: store},
				WithClient(kube),
				WithRetryOptions(retry.WithInitialDelay(time.Hour)),
			)
			Expect(err).NotTo(HaveOccurred())

			kube.failNext("apply Deployment/kuard", apierrors.NewServiceUnavailable("apiserver restarting"))
			runCtx, cancel := context.WithCancel(ctx)
			cancel()

			err = st.Apply(runCtx, app("kuard", false))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())

			checkpoint, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(checkpoint.Resources).To(HaveLen(2), "component and namespace were applied")
		})

		It("keeps undeleted resources in state when pruning fails", func() {
			st := newStack()
			Expect(st.Apply(ctx, append(app("kuard", false), app("old", false)...))).To(Succeed())
			_, err := st.Commit(ctx)
			Expect(err).NotTo(HaveOccurred())

			kube.failNext("delete Namespace/old", retry.Fatal(errors.New("finalizer stuck")))
			next := newStack()
			Expect(next.Apply(ctx, app("kuard", false))).To(Succeed())
			_, err = next.Commit(ctx)
			Expect(err).To(HaveOccurred())

			checkpoint, err := store.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			var urns []string
			for _, r := range checkpoint.Resources {
				urns = append(urns, r.URN)
			}
			Expect(urns).To(ContainElement("urn:dev::kubernetes:core/v1:Namespace::old"))
			Expect(urns).NotTo(ContainElement("urn:dev::kubernetes:apps/v1:Deployment::old/old"))
		})

		It("requires a DNS provider for records", func() {
			st, err := New(ctx, "dev", store, WithClient(kube))
			Expect(err).NotTo(HaveOccurred())

			err = st.Apply(ctx, app("kuard", true))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no DNS provider configured"))
		})

		It("does not retry a missing hosted zone", func() {
			zone.err = dns.ErrZoneNotFound
			err := newStack().Apply(ctx, app("kuard", true))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, dns.ErrZoneNotFound)).To(BeTrue())
			Expect(retry.IsFatal(err)).To(BeTrue())
		})

		It("does not retry permanent DNS provider errors", func() {
			zone.err = errors.New("AccessDenied: not authorized to change record sets")
			err := newStack().Apply(ctx, app("kuard", true))
			Expect(err).To(HaveOccurred())
			Expect(retry.IsFatal(err)).To(BeTrue())
			Expect(zone.upserts).To(Equal(1))
			for _, ev := range events {
				Expect(ev.Status).NotTo(Equal(StatusRetrying))
			}
		})

		It("retries throttled DNS provider calls", func() {
			zone.flaky = []error{dns.Transient(errors.New("Throttling: rate exceeded"))}
			Expect(newStack().Apply(ctx, app("kuard", true))).To(Succeed())
			Expect(zone.upserts).To(Equal(2))
			Expect(zone.records).To(HaveKey("kuard.pulumi-demos.net"))
		})
	})

	Describe("Destroy", func() {
		It("deletes everything in reverse order and empties state", func() {
			st := newStack()
			Expect(st.Apply(ctx, app("kuard", true))).To(Succeed())
			st.Export("url", "kuard.pulumi-demos.net")
			_, err := st.Commit(ctx)
			Expect(err).NotTo(HaveOccurred())

			destroyer := newStack()
			plan := destroyer.PreviewDestroy()
			Expect(plan.Count(OpDelete)).To(Equal(4))
			Expect(plan.Steps[0].Type).To(Equal(TypeRecord))

			saved, err := destroyer.Destroy(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Resources).To(BeEmpty())
			Expect(saved.Outputs).To(BeEmpty())
			Expect(kube.deleted).To(Equal([]string{"Deployment/kuard", "Namespace/kuard"}))
			Expect(zone.records).To(BeEmpty())
		})

		It("refuses to delete records with a different provider", func() {
			st := newStack()
			Expect(st.Apply(ctx, app("kuard", true))).To(Succeed())
			_, err := st.Commit(ctx)
			Expect(err).NotTo(HaveOccurred())

			zone.name = "cloudflare"
			_, err = newStack().Destroy(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(`created with provider "route53", configured provider is "cloudflare"`))
		})
	})

	Describe("New", func() {
		It("rejects state of another stack", func() {
			Expect(store.Save(ctx, &state.State{Version: state.Version, Stack: "prod"})).To(Succeed())
			_, err := New(ctx, "dev", store)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(`belongs to stack "prod"`))
		})

		It("requires a name", func() {
			_, err := New(ctx, "", store)
			Expect(err).To(MatchError("stack name is required"))
		})
	})
})
