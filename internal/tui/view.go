package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"vidfetch/internal/feedback"
	"vidfetch/internal/state"
)

const loadingText = "Fetching video info…"

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.th.title.Render("vidfetch"))
	if m.version != "" {
		b.WriteString(m.th.label.Render(" " + m.version))
	}
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.panel.Loading():
		b.WriteString(m.spin.View() + " " + loadingText + "\n")
	case m.panel.Metadata() != nil:
		b.WriteString(m.th.border.Render(m.renderMetadata()))
		b.WriteString("\n")
	}

	if m.filterOn || m.filterInput.Value() != "" {
		b.WriteString(m.filterInput.View() + "\n")
	}
	if m.showHistory {
		b.WriteString("\n" + m.renderHistory() + "\n")
	}
	if m.status != "" {
		st := m.th.ok
		if m.statusBad {
			st = m.th.bad
		}
		b.WriteString("\n" + st.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.th.footer.Render(m.helpLine()))
	return b.String()
}

func (m *Model) renderMetadata() string {
	md := m.panel.Metadata()
	lines := []string{
		m.th.head.Render(md.Title),
		m.th.label.Render("Duration: " + md.Duration.String()),
		"",
	}
	rows := m.visibleRows()
	if len(rows) == 0 {
		lines = append(lines, m.th.label.Render("no formats"))
	}
	width := 0
	for _, r := range rows {
		if w := lipgloss.Width(r.Format.Label()); w > width {
			width = w
		}
	}
	for i, r := range rows {
		lines = append(lines, m.renderRow(r, width, m.focusList && i == m.selected))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(r *feedback.Row, width int, selected bool) string {
	cursor := "  "
	st := m.th.row
	if selected {
		cursor = "› "
		st = m.th.rowSelected
	}
	line := cursor + st.Render(padRight(r.Format.Label(), width))
	if d := r.Format.Details(); d != "" {
		line += "  " + m.th.label.Render(d)
	}
	return line + "  " + m.th.renderButton(r.Button.Appearance())
}

func (m *Model) renderHistory() string {
	if len(m.history) == 0 {
		return m.th.label.Render("No downloads yet")
	}
	lines := []string{m.th.head.Render("Recent downloads")}
	for _, h := range m.history {
		lines = append(lines, historyLine(m.th, h))
	}
	return strings.Join(lines, "\n")
}

func historyLine(th Theme, h state.DownloadRow) string {
	when := humanize.Time(time.Unix(h.CreatedAt, 0))
	status := th.ok.Render(h.Status)
	if h.Status == state.StatusError {
		status = th.bad.Render(h.Status)
	}
	detail := truncateMiddle(h.Target, 48)
	if h.Bytes > 0 {
		detail += " " + humanize.Bytes(uint64(h.Bytes))
	}
	if h.LastError != "" {
		detail = h.LastError
	}
	return fmt.Sprintf("%-14s %s %-10s %s", when, status, h.Label, th.label.Render(detail))
}

func (m *Model) helpLine() string {
	switch {
	case m.filterOn:
		return "enter keep filter • esc clear"
	case m.focusList:
		return "j/k move • enter download • / filter • U copy target • h history • tab url • q quit"
	}
	return "enter fetch info • tab formats • ctrl+c quit"
}
