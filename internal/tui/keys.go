package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	left  key.Binding
	right key.Binding
	up    key.Binding
	down  key.Binding
	next  key.Binding
	prev  key.Binding
	enter key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous tumbler"),
		),
		right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next tumbler"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "turn up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "turn down"),
		),
		next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next track"),
		),
		prev: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous track"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "play"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) lockHelp() []key.Binding {
	return []key.Binding{k.left, k.right, k.up, k.down, k.quit}
}

func (k keyMap) cardHelp() []key.Binding {
	return []key.Binding{k.next, k.prev, k.enter, k.quit}
}
