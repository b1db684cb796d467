package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the key bindings for the download view.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements [help.KeyMap]
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

// FullHelp implements [help.KeyMap]
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.quit}}
}
