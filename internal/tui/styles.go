package tui

import "github.com/charmbracelet/lipgloss"

var styles = newPalette("#C2185B", "#04B575", "#FF5F56", "#626262")

type palette struct {
	title    lipgloss.Style
	tumbler  lipgloss.Style
	selected lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	muted    lipgloss.Style
}

func newPalette(accent, ok, bad, muted string) *palette {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		MarginRight(1)
	return &palette{
		title:    lipgloss.NewStyle().Foreground(lipgloss.Color(accent)).Bold(true).MarginBottom(1),
		tumbler:  box.BorderForeground(lipgloss.Color(muted)),
		selected: box.BorderForeground(lipgloss.Color(accent)).Bold(true),
		ok:       lipgloss.NewStyle().Foreground(lipgloss.Color(ok)).Bold(true),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color(bad)),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(muted)).Italic(true),
	}
}
