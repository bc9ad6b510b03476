package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
)

var opSymbols = map[stack.Op]string{
	stack.OpCreate: "+",
	stack.OpUpdate: "~",
	stack.OpDelete: "-",
}

func opStyle(op stack.Op) func(...string) string {
	switch op {
	case stack.OpCreate:
		return createStyle.Render
	case stack.OpDelete:
		return deleteStyle.Render
	default:
		return updateStyle.Render
	}
}

// RenderPlan writes plan as an indented tree: children below their parents,
// one line per step, followed by a summary.
func RenderPlan(w io.Writer, plan *stack.Plan) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render("Previewing stack "+plan.Stack))

	depth := make(map[string]int, len(plan.Steps))
	for _, step := range plan.Steps {
		d := 0
		if parent, ok := depth[step.Parent]; ok && step.Parent != "" {
			d = parent + 1
		}
		depth[step.URN] = d

		style := opStyle(step.Op)
		line := fmt.Sprintf("%s%s %-44s %s", strings.Repeat("    ", d), opSymbols[step.Op], step.Type, step.Name)
		fmt.Fprintf(&b, "  %s", style(line))
		if step.Detail != "" && step.Detail != step.Type {
			fmt.Fprintf(&b, "  %s", dimStyle.Render(step.Detail))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(Summary(plan))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Summary counts the steps of plan per operation.
func Summary(plan *stack.Plan) string {
	if plan.Empty() {
		return dimStyle.Render("No changes.")
	}
	var parts []string
	for _, op := range []stack.Op{stack.OpCreate, stack.OpUpdate, stack.OpDelete} {
		if n := plan.Count(op); n > 0 {
			parts = append(parts, opStyle(op)(fmt.Sprintf("%d to %s", n, op)))
		}
	}
	return "Resources: " + strings.Join(parts, ", ")
}
