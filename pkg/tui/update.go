package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/formflow/pkg/coordinator"
	"github.com/entrhq/formflow/pkg/flow"
)

// Init starts the spinner, loads the flow list and, in recording mode,
// starts the recording.
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.loadFlows()}
	if m.mode == modeRecording {
		cmds = append(cmds, m.startRecording())
	}
	return tea.Batch(cmds...)
}

// Update handles all state updates for the TUI model.
//
//nolint:gocyclo
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width, max(msg.Height-4, 1))
		m.progress.Width = max(msg.Width-8, 10)
		m.input.Width = max(msg.Width-8, 10)
		m.ready = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case flowsLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		return m, m.list.SetItems(toItems(msg.flows))

	case recordingStartedMsg:
		if msg.err != nil {
			m.mode = modeBrowse
			m.setError(fmt.Errorf("could not start recording: %w", msg.err))
			return m, nil
		}
		m.count = len(msg.status.Actions)
		m.setStatus("Recording " + msg.status.URL)
		return m, nil

	case recordingStoppedMsg:
		if len(msg.actions) == 0 {
			m.mode = modeBrowse
			m.setStatus("Nothing was recorded")
			return m, nil
		}
		m.mode = modeNaming
		m.count = len(msg.actions)
		m.input.Reset()
		m.setStatus(fmt.Sprintf("Recorded %d actions", len(msg.actions)))
		return m, m.input.Focus()

	case savedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.mode = modeBrowse
		m.input.Blur()
		m.setStatus(fmt.Sprintf("Saved %q", msg.rec.Name))
		return m, m.loadFlows()

	case playFinishedMsg:
		m.mode = modeBrowse
		m.playing = nil
		switch {
		case msg.err != nil:
			m.setError(msg.err)
		case msg.report.Rejected:
			m.setError(fmt.Errorf("a flow is already playing in this tab"))
		case msg.report.Completed:
			m.setStatus(fmt.Sprintf("%q completed: %d executed, %d skipped", msg.rec.Name, msg.report.Executed, msg.report.Skipped))
		default:
			m.setError(fmt.Errorf("%q failed: %s", msg.rec.Name, msg.report.Error))
		}
		return m, m.loadFlows()

	case opDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus(msg.message)
		if msg.reload {
			return m, m.loadFlows()
		}
		return m, nil

	case coordinator.Event:
		return m, m.handleEvent(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) handleEvent(ev coordinator.Event) tea.Cmd {
	switch ev.Type {
	case coordinator.EventActionRecorded:
		if m.mode != modeRecording {
			return nil
		}
		m.count = ev.Count
		if a, err := flow.UnmarshalAction(ev.Action); err == nil {
			if ev.Merged && len(m.recorded) > 0 {
				m.recorded[len(m.recorded)-1] = describe(a)
				return nil
			}
			m.recorded = append(m.recorded, describe(a))
			if len(m.recorded) > recentActions {
				m.recorded = m.recorded[len(m.recorded)-recentActions:]
			}
		}
	case coordinator.EventPlaybackProgress:
		if m.mode != modePlaying || ev.Total == 0 {
			return nil
		}
		m.step, m.total = ev.Index+1, ev.Total
		return m.progress.SetPercent(float64(m.step) / float64(m.total))
	case coordinator.EventFlowsChanged:
		if m.mode == modeBrowse {
			return m.loadFlows()
		}
	}
	return nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case modeRecording:
		switch msg.String() {
		case "enter", "s":
			return m, m.stopRecording()
		}
		return m, nil

	case modeNaming:
		switch msg.Type {
		case tea.KeyEnter:
			name := strings.TrimSpace(m.input.Value())
			if name == "" {
				m.setError(fmt.Errorf("a flow needs a name"))
				return m, nil
			}
			return m, m.saveRecording(name)
		case tea.KeyEsc:
			m.backend.DiscardRecording()
			m.mode = modeBrowse
			m.input.Blur()
			m.setStatus("Recording discarded")
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case modePlaying:
		return m, nil
	}

	// While the list filter is open every key belongs to it.
	if m.list.FilterState() != list.Filtering {
		rec := m.selected()
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "enter", "p":
			if rec == nil {
				return m, nil
			}
			m.mode = modePlaying
			m.playing = rec
			m.step, m.total = 0, len(rec.Actions)
			m.setStatus("Playing " + rec.Name)
			return m, tea.Batch(m.progress.SetPercent(0), m.play(rec))
		case "x":
			if rec != nil {
				return m, m.deleteFlow(rec)
			}
			return m, nil
		case "d":
			if rec != nil {
				return m, m.duplicateFlow(rec)
			}
			return m, nil
		case "y":
			if rec != nil {
				return m, copyFlow(rec)
			}
			return m, nil
		case "R":
			return m, m.loadFlows()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) selected() *flow.Record {
	it, ok := m.list.SelectedItem().(flowItem)
	if !ok {
		return nil
	}
	return it.rec
}

func (m *model) setStatus(s string) {
	m.status, m.statusErr = s, false
	m.logger.Debugf("%s", s)
}

func (m *model) setError(err error) {
	m.status, m.statusErr = err.Error(), true
	m.logger.Warnf("%v", err)
}

// describe renders one recorded action for the recording view.
func describe(a flow.Action) string {
	sel := a.Header().Selector
	switch v := a.(type) {
	case flow.Input:
		if v.FieldType == "password" {
			return fmt.Sprintf("input  %s = ••••", sel)
		}
		return fmt.Sprintf("input  %s = %q", sel, v.Value)
	case flow.Change:
		return fmt.Sprintf("change %s = %q", sel, v.Value)
	case flow.Click:
		if v.Text != "" {
			return fmt.Sprintf("click  %s (%s)", sel, v.Text)
		}
		return "click  " + sel
	case flow.Navigation:
		return "goto   " + v.URL
	default:
		return fmt.Sprintf("%-6s %s", a.Type(), sel)
	}
}
