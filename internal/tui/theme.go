package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vidfetch/internal/feedback"
)

type Theme struct {
	border      lipgloss.Style
	title       lipgloss.Style
	label       lipgloss.Style
	row         lipgloss.Style
	rowSelected lipgloss.Style
	head        lipgloss.Style
	footer      lipgloss.Style
	ok          lipgloss.Style
	bad         lipgloss.Style
	busy        lipgloss.Style
	button      lipgloss.Style
}

func defaultTheme() Theme {
	b := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return Theme{
		border:      b.BorderForeground(lipgloss.Color("63")),
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		label:       lipgloss.NewStyle().Faint(true),
		row:         lipgloss.NewStyle(),
		rowSelected: lipgloss.NewStyle().Bold(true),
		head:        lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true),
		footer:      lipgloss.NewStyle().Faint(true),
		ok:          lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		bad:         lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		busy:        lipgloss.NewStyle().Faint(true).Italic(true),
		button:      lipgloss.NewStyle().Foreground(lipgloss.Color("219")),
	}
}

// buttonStyle maps a feedback style to colors.
func (th Theme) buttonStyle(s feedback.Style) lipgloss.Style {
	switch s {
	case feedback.StyleBusy:
		return th.busy
	case feedback.StyleSuccess:
		return th.ok
	case feedback.StyleError:
		return th.bad
	default:
		return th.button
	}
}

func (th Theme) renderButton(a feedback.Appearance) string {
	return th.buttonStyle(a.Style).Render("[ " + a.Label + " ]")
}

// String utilities

func truncateMiddle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 7 {
		return s[:max]
	}
	left := (max - 3) / 2
	right := max - 3 - left
	return s[:left] + "..." + s[len(s)-right:]
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
