package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/qmc/internal/login"
	"github.com/desertthunder/qmc/internal/panel"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionUpdate MsgKind = iota
	MsgLoginStarted
	MsgPanelResult
	MsgUpdatesClosed
)

// sessionUpdateMsg is the constructor for [MsgSessionUpdate]
func sessionUpdateMsg(s login.Session) Msg {
	return Msg{kind: MsgSessionUpdate, data: s}
}

// loginStartedMsg is the constructor for [MsgLoginStarted]
func loginStartedMsg(s login.Session, err error) Msg {
	return Msg{
		kind: MsgLoginStarted,
		data: struct {
			session login.Session
			err     error
		}{s, err},
	}
}

// panelResultMsg is the constructor for [MsgPanelResult]
func panelResultMsg(r panel.Result) Msg {
	return Msg{kind: MsgPanelResult, data: r}
}

// updatesClosedMsg is the constructor for [MsgUpdatesClosed]
func updatesClosedMsg() Msg {
	return Msg{kind: MsgUpdatesClosed}
}
