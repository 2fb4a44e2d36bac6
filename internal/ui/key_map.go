package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	tab    key.Binding
	filter key.Binding
	add    key.Binding
	remove key.Binding
	reload key.Binding
	enter  key.Binding
	back   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "movies/series")),
		filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		remove: key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "remove")),
		reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.tab, k.filter},
		{k.add, k.remove, k.reload},
		{k.enter, k.back, k.quit},
	}
}
