package stack

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/k8sclient"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/state"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/naming"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/retry"
)

// Stack tracks one run against the saved state of a named stack.
type Stack struct {
	name  string
	store state.Store

	client       k8sclient.Client
	dns          dns.Provider
	metrics      *Metrics
	onEvent      func(Event)
	fieldManager string
	retryOpts    []retry.Option
	now          func() time.Time

	mu      sync.Mutex
	prior   *state.State
	applied []state.Resource
	deleted map[string]bool
	outputs map[string]string
}

// Option configures a Stack.
type Option func(*Stack)

// WithClient sets the Kubernetes client used for objects.
func WithClient(c k8sclient.Client) Option {
	return func(s *Stack) { s.client = c }
}

// WithDNSProvider sets the provider used for records.
func WithDNSProvider(p dns.Provider) Option {
	return func(s *Stack) { s.dns = p }
}

// WithMetrics records operation metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Stack) { s.metrics = m }
}

// WithEventHandler receives per-resource progress events.
func WithEventHandler(fn func(Event)) Option {
	return func(s *Stack) { s.onEvent = fn }
}

// WithFieldManager overrides the server-side apply field manager.
func WithFieldManager(name string) Option {
	return func(s *Stack) { s.fieldManager = name }
}

// WithRetryOptions tunes the retry loop around every operation.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(s *Stack) { s.retryOpts = append(s.retryOpts, opts...) }
}

// New loads the saved state of stack name from store.
func New(ctx context.Context, name string, store state.Store, opts ...Option) (*Stack, error) {
	if name == "" {
		return nil, errors.New("stack name is required")
	}

	prior, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state for stack %s: %w", name, err)
	}
	if prior.Stack != "" && prior.Stack != name {
		return nil, fmt.Errorf("state at %s belongs to stack %q, not %q", store.Location(), prior.Stack, name)
	}
	prior.Stack = name

	s := &Stack{
		name:         name,
		store:        store,
		fieldManager: k8sclient.FieldManager,
		now:          time.Now,
		prior:        prior,
		deleted:      make(map[string]bool),
		outputs:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the stack name.
func (s *Stack) Name() string { return s.name }

// Location describes where the state is stored.
func (s *Stack) Location() string { return s.store.Location() }

// Prior returns a copy of the state loaded or last committed.
func (s *Stack) Prior() state.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *s.prior
	cp.Resources = slices.Clone(s.prior.Resources)
	cp.Outputs = maps.Clone(s.prior.Outputs)
	return cp
}

// URN returns the URN a resource has in this stack.
func (s *Stack) URN(r *Resource) string {
	return s.urn(r)
}

func (s *Stack) urn(r *Resource) string {
	return naming.URN(s.name, r.Type, r.Name)
}

func (s *Stack) parentURN(r *Resource) string {
	if r.Parent == nil {
		return ""
	}
	return s.urn(r.Parent)
}

// Export sets a stack output. Outputs are saved on Commit.
func (s *Stack) Export(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[key] = value
}

// Outputs returns the outputs exported in this run.
func (s *Stack) Outputs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.outputs)
}

// Apply creates or updates resources in declaration order. Apply may be
// called several times in one run; the union of all calls is the desired
// set seen by Commit. On failure the resources applied so far are saved so
// that a later run can prune them.
func (s *Stack) Apply(ctx context.Context, resources []*Resource) error {
	if err := s.validate(resources); err != nil {
		return err
	}

	logger := log.FromContext(ctx).WithName("stack").WithValues("stack", s.name)

	for _, r := range resources {
		urn := s.urn(r)

		s.mu.Lock()
		op := OpCreate
		if s.prior.Has(urn) {
			op = OpUpdate
		}
		s.mu.Unlock()

		err := s.run(ctx, logger, op, urn, r.Type, r.Name, func() error {
			return s.applyOne(ctx, r)
		})
		if err != nil {
			return s.fail(ctx, logger, fmt.Errorf("failed to %s %s: %w", op, urn, err))
		}

		s.record(state.Resource{
			URN:      urn,
			Type:     r.Type,
			Parent:   s.parentURN(r),
			Object:   objectRef(r),
			Record:   r.Record,
			Provider: s.providerFor(r),
		})
	}
	return nil
}

// Commit deletes resources recorded in state but not applied in this run,
// in reverse order, then saves the new state with the exported outputs.
func (s *Stack) Commit(ctx context.Context) (*state.State, error) {
	logger := log.FromContext(ctx).WithName("stack").WithValues("stack", s.name)

	s.mu.Lock()
	applied := make(map[string]bool, len(s.applied))
	for _, res := range s.applied {
		applied[res.URN] = true
	}
	stale := s.staleLocked(applied)
	s.mu.Unlock()

	if err := s.deleteAll(ctx, logger, stale); err != nil {
		return nil, err
	}

	s.mu.Lock()
	next := &state.State{
		Version:   state.Version,
		Stack:     s.name,
		Serial:    s.prior.Serial + 1,
		UpdatedAt: s.now().UTC(),
		Resources: slices.Clone(s.applied),
		Outputs:   maps.Clone(s.outputs),
	}
	s.mu.Unlock()

	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save state to %s: %w", s.store.Location(), err)
	}
	logger.Info("state saved", "location", s.store.Location(), "serial", next.Serial, "resources", len(next.Resources))

	s.reset(next)
	return next, nil
}

// Destroy deletes every recorded resource in reverse order and saves an
// empty state.
func (s *Stack) Destroy(ctx context.Context) (*state.State, error) {
	logger := log.FromContext(ctx).WithName("stack").WithValues("stack", s.name)

	s.mu.Lock()
	resources := slices.Clone(s.prior.Resources)
	s.mu.Unlock()
	slices.Reverse(resources)

	if err := s.deleteAll(ctx, logger, resources); err != nil {
		return nil, err
	}

	s.mu.Lock()
	next := &state.State{
		Version:   state.Version,
		Stack:     s.name,
		Serial:    s.prior.Serial + 1,
		UpdatedAt: s.now().UTC(),
	}
	s.mu.Unlock()

	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save state to %s: %w", s.store.Location(), err)
	}
	logger.Info("stack destroyed", "location", s.store.Location(), "serial", next.Serial)

	s.reset(next)
	return next, nil
}

func (s *Stack) deleteAll(ctx context.Context, logger logr.Logger, resources []state.Resource) error {
	for _, res := range resources {
		err := s.run(ctx, logger, OpDelete, res.URN, res.Type, naming.URNName(res.URN), func() error {
			return s.deleteOne(ctx, res)
		})
		if err != nil {
			return s.fail(ctx, logger, fmt.Errorf("failed to delete %s: %w", res.URN, err))
		}

		s.mu.Lock()
		s.deleted[res.URN] = true
		s.mu.Unlock()
	}
	return nil
}

// run executes op with retries, emitting events and metrics.
func (s *Stack) run(ctx context.Context, logger logr.Logger, op Op, urn, typ, name string, fn func() error) error {
	ev := Event{URN: urn, Type: typ, Name: name, Op: op}
	s.emit(ev.with(StatusStarted, nil, 0, 0))
	logger.V(1).Info("operation started", "op", op, "urn", urn)

	start := time.Now()
	opts := []retry.Option{
		retry.WithRetryIf(IsTransient),
		retry.WithOnRetry(func(attempt int, err error) {
			logger.Info("retrying after transient error", "op", op, "urn", urn, "attempt", attempt, "error", err.Error())
			s.emit(ev.with(StatusRetrying, err, attempt, time.Since(start)))
		}),
	}
	opts = append(opts, s.retryOpts...)

	err := retry.WithExponentialBackoff(ctx, fn, opts...)
	elapsed := time.Since(start)
	s.metrics.Observe(typ, string(op), err, elapsed)

	if err != nil {
		s.emit(ev.with(StatusFailed, err, 0, elapsed))
		return err
	}
	s.emit(ev.with(StatusSucceeded, nil, 0, elapsed))
	logger.V(1).Info("operation succeeded", "op", op, "urn", urn, "duration", elapsed.String())
	return nil
}

func (s *Stack) applyOne(ctx context.Context, r *Resource) error {
	switch {
	case r.Object != nil:
		if s.client == nil {
			return retry.Fatal(errors.New("no Kubernetes client configured"))
		}
		return s.client.ApplyObject(ctx, r.Object, s.fieldManager)
	case r.Record != nil:
		if s.dns == nil {
			return retry.Fatal(errors.New("no DNS provider configured"))
		}
		if err := r.Record.Validate(); err != nil {
			return retry.Fatal(err)
		}
		return classifyDNS(s.dns.UpsertRecord(ctx, *r.Record))
	default:
		return nil
	}
}

func (s *Stack) deleteOne(ctx context.Context, res state.Resource) error {
	switch {
	case res.Object != nil:
		if s.client == nil {
			return retry.Fatal(errors.New("no Kubernetes client configured"))
		}
		return s.client.DeleteObject(ctx, res.Object.Unstructured())
	case res.Record != nil:
		if s.dns == nil {
			return retry.Fatal(fmt.Errorf("record %s was created with provider %q but no DNS provider is configured", res.Record.Name, res.Provider))
		}
		if res.Provider != "" && res.Provider != s.dns.Name() {
			return retry.Fatal(fmt.Errorf("record %s was created with provider %q, configured provider is %q", res.Record.Name, res.Provider, s.dns.Name()))
		}
		return classifyDNS(s.dns.DeleteRecord(ctx, *res.Record))
	default:
		return nil
	}
}

// fail saves a checkpoint of the partial run and returns err. The checkpoint
// is saved even when ctx is already cancelled.
func (s *Stack) fail(ctx context.Context, logger logr.Logger, err error) error {
	checkpoint := s.snapshot()
	if saveErr := s.store.Save(context.WithoutCancel(ctx), checkpoint); saveErr != nil {
		logger.Error(saveErr, "failed to save partial state", "location", s.store.Location())
		return errors.Join(err, fmt.Errorf("failed to save partial state: %w", saveErr))
	}
	logger.Info("partial state saved", "location", s.store.Location(), "resources", len(checkpoint.Resources))

	s.reset(checkpoint)
	return err
}

// snapshot merges prior state with the progress of this run: deleted
// resources are dropped, applied ones replace or follow their prior entries.
func (s *Stack) snapshot() *state.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := make(map[string]state.Resource, len(s.applied))
	for _, res := range s.applied {
		applied[res.URN] = res
	}

	var resources []state.Resource
	seen := make(map[string]bool)
	for _, res := range s.prior.Resources {
		if s.deleted[res.URN] {
			continue
		}
		if a, ok := applied[res.URN]; ok {
			res = a
		}
		resources = append(resources, res)
		seen[res.URN] = true
	}
	for _, res := range s.applied {
		if !seen[res.URN] {
			resources = append(resources, res)
		}
	}

	outputs := maps.Clone(s.prior.Outputs)
	if outputs == nil {
		outputs = make(map[string]string)
	}
	maps.Copy(outputs, s.outputs)

	return &state.State{
		Version:   state.Version,
		Stack:     s.name,
		Serial:    s.prior.Serial + 1,
		UpdatedAt: s.now().UTC(),
		Resources: resources,
		Outputs:   outputs,
	}
}

// reset makes st the new baseline. Applied resources stay in the desired set
// so a later Commit in the same run does not prune them.
func (s *Stack) reset(st *state.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prior = st
	s.deleted = make(map[string]bool)
}

func (s *Stack) record(res state.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.IndexFunc(s.applied, func(r state.Resource) bool { return r.URN == res.URN }); i >= 0 {
		s.applied[i] = res
		return
	}
	s.applied = append(s.applied, res)
}

// staleLocked returns prior resources outside keep, in reverse order.
func (s *Stack) staleLocked(keep map[string]bool) []state.Resource {
	var stale []state.Resource
	for _, res := range slices.Backward(s.prior.Resources) {
		if keep[res.URN] || s.deleted[res.URN] {
			continue
		}
		if slices.ContainsFunc(s.applied, func(r state.Resource) bool { return r.URN == res.URN }) {
			continue
		}
		stale = append(stale, res)
	}
	return stale
}

// validate rejects duplicate URNs and parents declared after their children
// or never declared at all.
func (s *Stack) validate(resources []*Resource) error {
	s.mu.Lock()
	known := make(map[string]bool, len(s.applied)+len(resources))
	for _, res := range s.applied {
		known[res.URN] = true
	}
	s.mu.Unlock()

	seen := make(map[string]bool, len(resources))
	var errs []error
	for _, r := range resources {
		if r.Type == "" || r.Name == "" {
			errs = append(errs, fmt.Errorf("resource %q of type %q needs both a type and a name", r.Name, r.Type))
			continue
		}
		urn := s.urn(r)
		if seen[urn] {
			errs = append(errs, fmt.Errorf("duplicate resource %s", urn))
		}
		if r.Parent != nil {
			parent := s.urn(r.Parent)
			if !seen[parent] && !known[parent] {
				errs = append(errs, fmt.Errorf("resource %s is declared before its parent %s", urn, parent))
			}
		}
		seen[urn] = true
	}
	return errors.Join(errs...)
}

func (s *Stack) providerFor(r *Resource) string {
	if r.Record == nil || s.dns == nil {
		return ""
	}
	return s.dns.Name()
}

func objectRef(r *Resource) *state.ObjectRef {
	if r.Object == nil {
		return nil
	}
	return state.Ref(r.Object)
}

func (s *Stack) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
