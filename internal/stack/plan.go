package stack

import (
	"slices"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/state"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/naming"
)

// Op is a planned or executed operation.
type Op string

// Operations.
const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Step is one planned operation.
type Step struct {
	Op     Op     `json:"op" yaml:"op"`
	URN    string `json:"urn" yaml:"urn"`
	Type   string `json:"type" yaml:"type"`
	Name   string `json:"name" yaml:"name"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Plan is the ordered list of steps a run would perform.
type Plan struct {
	Stack string `json:"stack" yaml:"stack"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Count returns the number of steps with op.
func (p *Plan) Count(op Op) int {
	n := 0
	for _, s := range p.Steps {
		if s.Op == op {
			n++
		}
	}
	return n
}

// Empty reports whether the plan has no steps.
func (p *Plan) Empty() bool {
	return len(p.Steps) == 0
}

// Preview plans declaring resources as the complete desired set. Resources
// recorded in state but not declared, and not applied earlier in this run,
// are planned for deletion in reverse order.
func (s *Stack) Preview(resources []*Resource) (*Plan, error) {
	if err := s.validate(resources); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan := &Plan{Stack: s.name}
	declared := make(map[string]bool, len(resources))
	for _, r := range resources {
		urn := s.urn(r)
		declared[urn] = true

		op := OpCreate
		if s.prior.Has(urn) {
			op = OpUpdate
		}
		plan.Steps = append(plan.Steps, Step{
			Op:     op,
			URN:    urn,
			Type:   r.Type,
			Name:   r.Name,
			Parent: s.parentURN(r),
			Detail: r.Detail(),
		})
	}

	for _, res := range s.staleLocked(declared) {
		plan.Steps = append(plan.Steps, deleteStep(res))
	}
	return plan, nil
}

// PreviewDestroy plans deleting everything recorded in state.
func (s *Stack) PreviewDestroy() *Plan {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan := &Plan{Stack: s.name}
	for _, res := range slices.Backward(s.prior.Resources) {
		plan.Steps = append(plan.Steps, deleteStep(res))
	}
	return plan
}

func deleteStep(res state.Resource) Step {
	step := Step{
		Op:     OpDelete,
		URN:    res.URN,
		Type:   res.Type,
		Name:   naming.URNName(res.URN),
		Parent: res.Parent,
	}
	switch {
	case res.Object != nil:
		step.Detail = res.Object.String()
	case res.Record != nil:
		step.Detail = res.Record.String()
	}
	return step
}
