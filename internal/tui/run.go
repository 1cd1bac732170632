package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned by RunWithWork when the user quits the table
// before the batch has finished.
var ErrInterrupted = errors.New("interrupted")

// RunWithWork shows model on out while work runs in the background. work
// receives a context that is cancelled when the user quits and a send
// function that forwards messages to the table. It returns only after work
// has returned, so results written by work are safe to read.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, work func(ctx context.Context, send func(tea.Msg))) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(model, tea.WithOutput(out))

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		work(ctx, func(msg tea.Msg) { p.Send(msg) })
		p.Send(WorkDoneMsg{})
	}()

	final, err := p.Run()
	cancel()
	<-finished
	if err != nil {
		return err
	}

	m, ok := final.(ProgressModel)
	switch {
	case !ok:
		return nil
	case m.Err() != nil:
		return m.Err()
	case m.Interrupted():
		return ErrInterrupted
	}
	return nil
}
