package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI interface.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch m.mode {
	case modeRecording:
		body = m.recordingView()
	case modeNaming:
		body = m.namingView()
	case modePlaying:
		body = m.playingView()
	default:
		body = m.list.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.statusLine(),
		tipsStyle.Render("  "+m.tips()),
	)
}

func (m *model) recordingView() string {
	var b strings.Builder
	b.WriteString(recordingStyle.Render(fmt.Sprintf("%s Recording", m.spinner.View())))
	b.WriteString(tipsStyle.Render(fmt.Sprintf("  %d actions", m.count)))
	b.WriteString("\n\n")
	for _, line := range m.recorded {
		b.WriteString("  " + actionStyle.Render(line) + "\n")
	}
	return b.String()
}

func (m *model) namingView() string {
	return headerStyle.Render("Save flow") + "\n\n" +
		inputBoxStyle.Width(max(m.width-4, 10)).Render(m.input.View()) + "\n"
}

func (m *model) playingView() string {
	name := ""
	if m.playing != nil {
		name = m.playing.Name
	}
	return headerStyle.Render(fmt.Sprintf("%s Playing %s", m.spinner.View(), name)) + "\n\n" +
		"  " + m.progress.View() + "\n" +
		tipsStyle.Render(fmt.Sprintf("  step %d of %d", m.step, m.total)) + "\n"
}

func (m *model) statusLine() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return statusBarStyle.Render(errorStyle.Render("✗ " + m.status))
	}
	return statusBarStyle.Render(successStyle.Render("✓ " + m.status))
}

func (m *model) tips() string {
	switch m.mode {
	case modeRecording:
		return "Enter to stop • Ctrl+C to quit"
	case modeNaming:
		return "Enter to save • Esc to discard"
	case modePlaying:
		return "Ctrl+C to quit"
	default:
		return "Enter to play • d duplicate • x delete • y copy • / filter • q quit"
	}
}
