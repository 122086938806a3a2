package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	qq      key.Binding
	wx      key.Binding
	abandon key.Binding
	status  key.Binding
	refresh key.Binding
	info    key.Binding
	help    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		qq:      key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "qq login")),
		wx:      key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "wechat login")),
		abandon: key.NewBinding(key.WithKeys("esc", "a"), key.WithHelp("esc", "abandon")),
		status:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		info:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "info")),
		help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.qq, k.wx, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.qq, k.wx, k.abandon},
		{k.status, k.refresh, k.info},
		{k.help, k.quit},
	}
}
