package state

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
)

// Version is the current state file format.
const Version = 1

// State is the persisted record of one stack.
type State struct {
	Version   int               `yaml:"version"`
	Stack     string            `yaml:"stack"`
	Serial    int64             `yaml:"serial"`
	UpdatedAt time.Time         `yaml:"updated_at,omitempty"`
	Resources []Resource        `yaml:"resources,omitempty"`
	Outputs   map[string]string `yaml:"outputs,omitempty"`
}

// Resource is one applied resource. Exactly one of Object and Record is set
// for leaf resources; components carry neither.
type Resource struct {
	URN    string `yaml:"urn"`
	Type   string `yaml:"type"`
	Parent string `yaml:"parent,omitempty"`

	Object *ObjectRef `yaml:"object,omitempty"`

	Record   *dns.Record `yaml:"record,omitempty"`
	Provider string      `yaml:"provider,omitempty"`
}

// ObjectRef identifies a Kubernetes object.
type ObjectRef struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Namespace  string `yaml:"namespace,omitempty"`
	Name       string `yaml:"name"`
}

// Store loads and saves stack state.
type Store interface {
	// Load returns the saved state, or an empty state when none exists.
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
	// Location describes where the state lives, for display.
	Location() string
}

// New returns an empty state for stack.
func New(stack string) *State {
	return &State{Version: Version, Stack: stack}
}

// Ref returns the reference of obj.
func Ref(obj *unstructured.Unstructured) *ObjectRef {
	return &ObjectRef{
		APIVersion: obj.GetAPIVersion(),
		Kind:       obj.GetKind(),
		Namespace:  obj.GetNamespace(),
		Name:       obj.GetName(),
	}
}

// Unstructured returns a minimal object carrying only type and identity,
// enough to address the object for deletion.
func (r *ObjectRef) Unstructured() *unstructured.Unstructured {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion(r.APIVersion)
	obj.SetKind(r.Kind)
	obj.SetNamespace(r.Namespace)
	obj.SetName(r.Name)
	return obj
}

// String renders the reference as kind/namespace/name.
func (r *ObjectRef) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.Namespace, r.Name)
}

// Find returns the resource with urn.
func (s *State) Find(urn string) (Resource, bool) {
	i := slices.IndexFunc(s.Resources, func(r Resource) bool { return r.URN == urn })
	if i < 0 {
		return Resource{}, false
	}
	return s.Resources[i], true
}

// Has reports whether urn is recorded.
func (s *State) Has(urn string) bool {
	_, ok := s.Find(urn)
	return ok
}

// Empty reports whether nothing is recorded.
func (s *State) Empty() bool {
	return len(s.Resources) == 0 && len(s.Outputs) == 0
}

// Marshal encodes the state as YAML.
func Marshal(st *State) ([]byte, error) {
	data, err := yaml.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// Unmarshal decodes YAML state, rejecting unknown format versions.
func Unmarshal(data []byte) (*State, error) {
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if st.Version == 0 {
		st.Version = Version
	}
	if st.Version > Version {
		return nil, fmt.Errorf("state format version %d is newer than supported version %d", st.Version, Version)
	}
	return &st, nil
}
