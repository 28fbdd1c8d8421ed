package tui

import (
	"bytes"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/formflow/pkg/flow"
	"github.com/entrhq/formflow/pkg/store"
)

func (m *model) loadFlows() tea.Cmd {
	return func() tea.Msg {
		flows, err := m.backend.ListFlows(m.ctx, store.ListOptions{Sort: store.SortRecent})
		return flowsLoadedMsg{flows: flows, err: err}
	}
}

func (m *model) startRecording() tea.Cmd {
	url := m.recordURL
	return func() tea.Msg {
		st, err := m.backend.StartRecording(m.ctx, m.tabID, url)
		return recordingStartedMsg{status: st, err: err}
	}
}

func (m *model) stopRecording() tea.Cmd {
	return func() tea.Msg {
		return recordingStoppedMsg{actions: m.backend.StopRecording(m.ctx)}
	}
}

func (m *model) saveRecording(name string) tea.Cmd {
	return func() tea.Msg {
		rec, err := m.backend.SaveRecording(m.ctx, name)
		return savedMsg{rec: rec, err: err}
	}
}

func (m *model) play(rec *flow.Record) tea.Cmd {
	return func() tea.Msg {
		report, err := m.backend.PlayFlow(m.ctx, m.tabID, rec.ID)
		return playFinishedMsg{rec: rec, report: report, err: err}
	}
}

func (m *model) deleteFlow(rec *flow.Record) tea.Cmd {
	return func() tea.Msg {
		err := m.backend.DeleteFlow(m.ctx, rec.ID)
		return opDoneMsg{message: fmt.Sprintf("Deleted %q", rec.Name), err: err, reload: true}
	}
}

func (m *model) duplicateFlow(rec *flow.Record) tea.Cmd {
	return func() tea.Msg {
		dup, err := m.backend.DuplicateFlow(m.ctx, rec.ID)
		if err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{message: fmt.Sprintf("Created %q", dup.Name), reload: true}
	}
}

// copyFlow puts rec on the clipboard as a one-flow export document, which
// the import command and endpoint accept.
func copyFlow(rec *flow.Record) tea.Cmd {
	return func() tea.Msg {
		var buf bytes.Buffer
		doc := flow.NewExport([]*flow.Record{rec})
		if err := doc.Encode(&buf); err != nil {
			return opDoneMsg{err: err}
		}
		if err := writeClipboard(buf.String()); err != nil {
			return opDoneMsg{err: fmt.Errorf("clipboard: %w", err)}
		}
		return opDoneMsg{message: fmt.Sprintf("Copied %q to the clipboard", rec.Name)}
	}
}
