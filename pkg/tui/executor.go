// Package tui provides a terminal interface for browsing, playing and
// recording flows.
//
// The package is split into:
// - executor.go: program lifecycle and event forwarding
// - model.go: model state and messages
// - commands.go: backend calls wrapped as commands
// - update.go: message handling
// - view.go: rendering
// - styles.go: colors and styles
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/formflow/pkg/logging"
)

// Executor runs the TUI against a backend.
type Executor struct {
	backend   Backend
	tabID     string
	recordURL string
	logger    *logging.Logger
}

// NewExecutor creates a TUI executor that plays and records in tabID.
func NewExecutor(backend Backend, tabID string, logger *logging.Logger) *Executor {
	return &Executor{backend: backend, tabID: tabID, logger: logger}
}

// Record makes Run open in recording mode on pageURL.
func (e *Executor) Record(pageURL string) *Executor {
	e.recordURL = pageURL
	return e
}

// Run starts the TUI and blocks until the user exits. A recording still
// running on exit is stopped and discarded.
func (e *Executor) Run(ctx context.Context) error {
	m := newModel(ctx, e.backend, e.tabID, e.recordURL, e.logger)

	events, unsubscribe := e.backend.Subscribe()
	defer unsubscribe()

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		for ev := range events {
			program.Send(ev)
		}
	}()

	_, err := program.Run()
	if m.mode == modeRecording || m.mode == modeNaming {
		e.backend.StopRecording(context.Background())
		e.backend.DiscardRecording()
	}
	if err != nil {
		return fmt.Errorf("failed to run TUI program: %w", err)
	}
	return nil
}
