// Package tui provides a Bubble Tea progress view for stack updates.
package tui

import "github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"

// PhaseMsg reports progress of an update phase.
type PhaseMsg struct {
	Phase string
	Done  bool
	Err   error
}

// EventMsg carries a per-resource engine event.
type EventMsg struct{ Event stack.Event }

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the update is complete.
type DoneMsg struct{ Outputs map[string]string }
