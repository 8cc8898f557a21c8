package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var fieldLabels = [fieldCount]string{"URL", "Width", "Height"}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("shutter"))
	b.WriteString("\n\n")

	rows := make([]string, 0, fieldCount)
	for i := range m.inputs {
		label := labelStyle.Render(fieldLabels[i])
		if i == m.focus {
			label = focusedLabelStyle.Render(fieldLabels[i])
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, label, m.inputs[i].View()))
	}
	b.WriteString(panelStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n\n")

	switch {
	case m.capturing:
		b.WriteString(m.spinner.View() + " " + m.status)
	case m.statusErr:
		b.WriteString(errorStyle.Render("✗ " + m.status))
	default:
		b.WriteString(okStyle.Render("✓ " + m.status))
	}
	b.WriteString("\n")

	if m.detail != "" {
		b.WriteString(mutedStyle.Render(m.detail))
		b.WriteString("\n")
	}

	if res := m.result; res != nil {
		line := fmt.Sprintf("Last: %s  %s", res.Request.URL, res.Filename())
		if res.Title != "" {
			line += "  " + res.Title
		}
		b.WriteString(mutedStyle.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab next field • enter capture • ctrl+s save • ctrl+y copy path • esc cancel/quit"))
	b.WriteString("\n")
	return b.String()
}
