package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the review screen's keyboard shortcuts.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Home        key.Binding
	End         key.Binding
	Approve     key.Binding
	Reject      key.Binding
	ApproveAuto key.Binding
	Filter      key.Binding
	Help        key.Binding
	Done        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "first"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "last"),
		),
		Approve: key.NewBinding(
			key.WithKeys("a", "y"),
			key.WithHelp("a/y", "approve"),
		),
		Reject: key.NewBinding(
			key.WithKeys("r", "n"),
			key.WithHelp("r/n", "reject"),
		),
		ApproveAuto: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "approve all auto-fixable"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle severity filter"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Done: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "finish and apply approved"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q/Esc", "quit without applying"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "abort"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Approve, k.Reject, k.ApproveAuto, k.Done, k.Help}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Home, k.End},
		{k.Approve, k.Reject, k.ApproveAuto, k.Filter},
		{k.Done, k.Quit, k.ForceQuit, k.Help},
	}
}
