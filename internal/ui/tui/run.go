package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Reporter forwards progress from an update to the view.
type Reporter interface {
	Phase(key string, done bool)
	Send(msg tea.Msg)
}

type programReporter struct{ p *tea.Program }

func (r programReporter) Phase(key string, done bool) { r.p.Send(PhaseMsg{Phase: key, Done: done}) }

func (r programReporter) Send(msg tea.Msg) { r.p.Send(msg) }

// UpFunc performs an update, reporting progress through r, and returns the
// stack outputs.
type UpFunc func(ctx context.Context, r Reporter) (map[string]string, error)

// RunUp runs fn behind the update view. It returns only after fn has
// finished: quitting the view cancels fn's context and waits for it.
func RunUp(ctx context.Context, stackName string, fn UpFunc) error {
	return runUp(ctx, stackName, fn)
}

func runUp(ctx context.Context, stackName string, fn UpFunc, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewUpModel(stackName), opts...)

	var fnErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		outputs, err := fn(ctx, programReporter{p: p})
		if err != nil {
			fnErr = err
			p.Send(ErrMsg{Err: err})
			return
		}
		p.Send(DoneMsg{Outputs: outputs})
	}()

	finalModel, runErr := p.Run()

	cancel()
	<-done

	if runErr != nil {
		return errors.Join(fmt.Errorf("TUI error: %w", runErr), fnErr)
	}

	fm := finalModel.(Model)
	if fm.Err != nil {
		return fm.Err
	}
	if !fm.Done {
		if fnErr != nil {
			return fnErr
		}
		return context.Canceled
	}
	return nil
}
