package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/stack"
)

// EventPrinter writes one line per finished or retried operation.
type EventPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewEventPrinter prints to w. Verbose also prints started operations.
func NewEventPrinter(w io.Writer, verbose bool) *EventPrinter {
	return &EventPrinter{w: w, verbose: verbose}
}

// Handle is a stack event handler.
func (p *EventPrinter) Handle(ev stack.Event) {
	if ev.Status == stack.StatusStarted && !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, FormatEvent(ev))
}

// FormatEvent renders ev as a single line.
func FormatEvent(ev stack.Event) string {
	subject := fmt.Sprintf("%s %s %s", opSymbols[ev.Op], ev.Type, ev.Name)

	switch ev.Status {
	case stack.StatusStarted:
		return dimStyle.Render(fmt.Sprintf("  %s %sing...", subject, verb(ev.Op)))
	case stack.StatusRetrying:
		return updateStyle.Render(fmt.Sprintf("  %s retrying (attempt %d): %v", subject, ev.Attempt, ev.Err))
	case stack.StatusFailed:
		return deleteStyle.Render(fmt.Sprintf("  %s failed: %v", subject, ev.Err))
	default:
		return opStyle(ev.Op)(fmt.Sprintf("  %s %sd", subject, verb(ev.Op))) +
			dimStyle.Render(fmt.Sprintf(" (%s)", ev.Duration.Round(10*time.Millisecond)))
	}
}

// verb drops the trailing "e" so that "creat"+"ing" and "creat"+"d" read well.
func verb(op stack.Op) string {
	s := string(op)
	if len(s) > 0 && s[len(s)-1] == 'e' {
		return s[:len(s)-1]
	}
	return s
}
