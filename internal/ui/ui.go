package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/qmc/internal/login"
	"github.com/desertthunder/qmc/internal/panel"
	"github.com/desertthunder/qmc/internal/qr"
)

// Poller is the subset of [login.Poller] the TUI drives.
type Poller interface {
	StartLogin(ctx context.Context, method login.Method) (login.Session, error)
	Abandon()
	Snapshot() login.Session
	Subscribe(buffer int) (<-chan login.Session, func())
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	poller      Poller
	panel       *panel.Panel
	updates     <-chan login.Session
	unsubscribe func()
	session     login.Session
	qrView      string
	qrFailed    bool
	result      *panel.Result
	width       int
	height      int
	spinner     spinner.Model
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model and subscribes it to poller.
func NewModel(ctx context.Context, poller Poller, p *panel.Panel) *Model {
	updates, unsubscribe := poller.Subscribe(16)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.warn

	m := &Model{
		ctx:         ctx,
		poller:      poller,
		panel:       p,
		updates:     updates,
		unsubscribe: unsubscribe,
		spinner:     s,
		help:        help.New(),
		keys:        newKeyMap(),
	}
	m.setSession(poller.Snapshot())
	return m
}

// Init starts the spinner and begins listening for session updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionUpdate:
		m.setSession(msg.data.(login.Session))
		return m, m.waitForSession()

	case MsgLoginStarted:
		data := msg.data.(struct {
			session login.Session
			err     error
		})
		// The subscription may already have delivered a later state of the same attempt.
		if !m.session.Newer(data.session) {
			m.setSession(data.session)
		}
		return m, nil

	case MsgPanelResult:
		r := msg.data.(panel.Result)
		m.result = &r
		return m, nil

	case MsgUpdatesClosed:
		m.updates = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.unsubscribe()
		return m, tea.Quit
	case key.Matches(msg, m.keys.qq):
		return m, m.startLogin(login.MethodQQ)
	case key.Matches(msg, m.keys.wx):
		return m, m.startLogin(login.MethodWX)
	case key.Matches(msg, m.keys.abandon):
		m.poller.Abandon()
		m.setSession(m.poller.Snapshot())
		return m, nil
	case key.Matches(msg, m.keys.status):
		return m, m.run(m.panel.CheckStatus)
	case key.Matches(msg, m.keys.refresh):
		if !m.panel.RefreshEnabled() {
			return m, nil
		}
		return m, m.run(m.panel.RefreshCredential)
	case key.Matches(msg, m.keys.info):
		return m, m.run(m.panel.CredentialInfo)
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

// setSession records s and re-renders the QR block when the image changed.
func (m *Model) setSession(s login.Session) {
	if s.QRBase64 != m.session.QRBase64 || s.Generation != m.session.Generation {
		m.qrView, m.qrFailed = "", false
		if s.HasQR() {
			view, err := qr.Render(s.QRImage, qr.RenderOptions{})
			if err != nil {
				m.qrFailed = true
			} else {
				m.qrView = view
			}
		}
	}
	m.session = s
}

func (m *Model) startLogin(method login.Method) tea.Cmd {
	return func() tea.Msg {
		s, err := m.poller.StartLogin(m.ctx, method)
		return loginStartedMsg(s, err)
	}
}

// run shows the loading line and performs action in the background.
func (m *Model) run(action func(context.Context) panel.Result) tea.Cmd {
	loading := m.panel.Loading()
	m.result = &loading
	return func() tea.Msg {
		return panelResultMsg(action(m.ctx))
	}
}

func (m *Model) waitForSession() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		if updates == nil {
			return nil
		}
		s, ok := <-updates
		if !ok {
			return updatesClosedMsg()
		}
		return sessionUpdateMsg(s)
	}
}

// View renders the QR block, the session status line and the last action result.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("QQ Music Credential"))
	b.WriteString("\n")

	if m.session.Method != "" {
		fmt.Fprintf(&b, "%s · %s", m.session.Method.Label(), m.session.Status)
		if m.session.Ticks > 0 {
			fmt.Fprintf(&b, " · %d checks", m.session.Ticks)
		}
		b.WriteString("\n\n")
	}

	if m.qrView != "" && m.session.Status == login.AwaitingScan {
		b.WriteString(styles.qr.Render(strings.TrimRight(m.qrView, "\n")))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderResult(m.statusLine()))
	b.WriteString("\n")

	if m.result != nil {
		b.WriteString("\n")
		b.WriteString(m.renderResult(*m.result))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) statusLine() panel.Result {
	if m.qrFailed && m.session.Status == login.AwaitingScan {
		return m.panel.QRLoadFailed()
	}
	return m.panel.QRView(m.session)
}

func (m *Model) renderResult(r panel.Result) string {
	text := styles.Kind(r.Kind).Render(r.Text)
	if r.Kind == panel.KindLoading {
		text = m.spinner.View() + " " + text
	}
	if len(r.Fields) == 0 {
		return text
	}

	width := 0
	for _, f := range r.Fields {
		width = max(width, len(f.Key))
	}

	lines := make([]string, 0, len(r.Fields)+1)
	if r.Text != "" {
		lines = append(lines, text)
	}
	for _, f := range r.Fields {
		lines = append(lines, fmt.Sprintf("%s  %s", styles.info.Render(fmt.Sprintf("%-*s", width, f.Key)), f.Value))
	}
	return strings.Join(lines, "\n")
}
