// Package ui implements an interactive terminal credential panel using bubbletea's Elm architecture.
//
// One screen shows the login QR code (drawn with half-block characters) above the session status line, followed by the
// result of the last credential action:
//   - 1 / 2 : start a QQ or WeChat QR login; starting again replaces the current attempt
//   - esc : abandon the current attempt
//   - s / r / i : check, refresh or show the stored credential
//
// The [Model] subscribes to the [login.Poller] when created; session snapshots arrive as messages through a
// blocking tea.Cmd that re-arms itself after every update. Polling keeps running server-side of the model: the TUI
// only renders what the poller publishes.
//
// The refresh key is ignored while a refresh is in flight, mirroring the disabled button of the web panel.
package ui
