package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists every binding of the ideas browser.
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Open        key.Binding
	Back        key.Binding
	More        key.Binding
	Direction   key.Binding
	Winner      key.Binding
	Search      key.Binding
	Performance key.Binding
	Order       key.Binding
	Reset       key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:        key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		More:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
		Direction:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "long/short")),
		Winner:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "winners")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Performance: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "has perf")),
		Order:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort order")),
		Reset:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.More, k.Direction, k.Winner, k.Search, k.Performance, k.Order, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Back},
		{k.More, k.Direction, k.Winner, k.Search},
		{k.Performance, k.Order, k.Reset, k.Quit},
	}
}
