package tui

import "github.com/charmbracelet/bubbles/key"

type timerKeyMap struct {
	Toggle key.Binding
	Reset  key.Binding
	Mode   key.Binding
	Quit   key.Binding
}

var timerKeys = timerKeyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "start/pause"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Mode: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "focus/pomodoro"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k timerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Reset, k.Mode, k.Quit}
}

func (k timerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Toggle, k.Reset}, {k.Mode, k.Quit}}
}
