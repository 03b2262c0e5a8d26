package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Answer   key.Binding
	Continue key.Binding
	Abandon  key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Answer: key.NewBinding(
			key.WithKeys("1", "2", "3", "4"),
			key.WithHelp("1-4", "answer"),
		),
		Continue: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "continue"),
		),
		Abandon: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "end session"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Answer, k.Continue, k.Abandon, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
