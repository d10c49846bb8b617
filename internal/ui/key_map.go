package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	toggle   key.Binding
	next     key.Binding
	prev     key.Binding
	back5    key.Binding
	forward5 key.Binding
	volUp    key.Binding
	volDown  key.Binding
	like     key.Binding
	add      key.Binding
	search   key.Binding
	tab      key.Binding
	cancel   key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		back5:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5s")),
		forward5: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5s")),
		volUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		like:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to playlist")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.next, k.prev, k.search, k.tab, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.toggle, k.next, k.prev},
		{k.back5, k.forward5, k.volUp, k.volDown},
		{k.like, k.add, k.search},
		{k.tab, k.cancel, k.quit},
	}
}
