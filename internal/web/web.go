// Package web serves the credential control panel in a browser.
//
// # Routes
//
//	GET    /                    → control panel page
//	POST   /login/{method}      → start a QR login (qq or wx), returns the session
//	DELETE /login               → abandon the current attempt
//	GET    /session             → current session
//	GET    /qrcode.png          → current QR image
//	GET    /ws                  → websocket stream of session and refresh-control events
//	GET    /credential/status   → panel result
//	POST   /credential/refresh  → panel result
//	GET    /credential/info     → panel result with sorted fields
//
// The page holds no polling logic of its own: the [login.Poller] runs server-side and every state change is pushed
// over the websocket through the [Hub]. Closing the last tab does not stop polling; DELETE /login does.
package web

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qmc/internal/login"
	"github.com/desertthunder/qmc/internal/panel"
	"github.com/desertthunder/qmc/internal/qr"
	"github.com/desertthunder/qmc/internal/server"
	"github.com/desertthunder/qmc/internal/shared"
)

//go:embed templates/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// Poller is the subset of [login.Poller] the web panel drives.
type Poller interface {
	StartLogin(ctx context.Context, method login.Method) (login.Session, error)
	Abandon()
	Snapshot() login.Session
	Subscribe(buffer int) (<-chan login.Session, func())
}

// SessionView is the JSON shape of a session: the snapshot plus its rendered status line.
type SessionView struct {
	ID         string       `json:"id,omitempty"`
	Generation uint64       `json:"generation"`
	Method     login.Method `json:"method,omitempty"`
	Status     login.Status `json:"status"`
	Rank       int          `json:"rank"` // status order within one attempt
	Ticks      int          `json:"ticks"`
	QR         string       `json:"qr,omitempty"` // data URI
	View       panel.Result `json:"view"`
	Elapsed    string       `json:"elapsed,omitempty"`
}

// App wires the poller and panel to HTTP handlers.
type App struct {
	poller Poller
	panel  *panel.Panel
	hub    *Hub
	logger *log.Logger
}

// NewApp creates the web panel.
func NewApp(poller Poller, p *panel.Panel, hub *Hub, logger *log.Logger) *App {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &App{
		poller: poller,
		panel:  p,
		hub:    hub,
		logger: shared.WithLogger(logger, "component", "web"),
	}
}

// View projects a session for the page.
func (a *App) View(s login.Session) *SessionView {
	v := &SessionView{
		ID:         s.ID,
		Generation: s.Generation,
		Method:     s.Method,
		Status:     s.Status,
		Rank:       int(s.Status),
		Ticks:      s.Ticks,
		View:       a.panel.QRView(s),
	}
	if s.QRBase64 != "" {
		v.QR = qr.DataURI(s.QRBase64)
	}
	if s.Elapsed() > 0 {
		v.Elapsed = s.Elapsed().Round(time.Second).String()
	}
	return v
}

// SessionEvent wraps a session for the hub.
func (a *App) SessionEvent(s login.Session) Event {
	return Event{Type: "session", Session: a.View(s)}
}

// Router builds the route table with logging, recovery and no-store middleware.
func (a *App) Router() *server.BasicRouter {
	r := server.NewBasicRouter()
	r.Use(server.Recoverer(a.logger), server.RequestLogger(a.logger), server.NoStore)

	r.HandleFunc(http.MethodGet, "/", a.handleIndex)
	r.HandleFunc(http.MethodPost, "/login/{method}", a.handleStartLogin)
	r.HandleFunc(http.MethodDelete, "/login", a.handleAbandon)
	r.HandleFunc(http.MethodGet, "/session", a.handleSession)
	r.HandleFunc(http.MethodGet, "/qrcode.png", a.handleQRCode)
	r.HandleFunc(http.MethodGet, "/credential/status", a.handleStatus)
	r.HandleFunc(http.MethodPost, "/credential/refresh", a.handleRefresh)
	r.HandleFunc(http.MethodGet, "/credential/info", a.handleInfo)
	r.Handler(NewWSHandler(a.hub, func() Event { return a.SessionEvent(a.poller.Snapshot()) }))

	return r
}

// Run pushes poller updates and refresh-control changes to websocket clients until ctx is done.
func (a *App) Run(ctx context.Context) {
	a.panel.OnRefreshChange(func(enabled bool) {
		a.hub.Publish(Event{Type: "refresh", RefreshEnabled: &enabled})
	})

	updates, unsubscribe := a.poller.Subscribe(16)
	defer unsubscribe()

	Forward(ctx, updates, a.hub, a.SessionEvent)
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Messages panel.Messages
		Session  *SessionView
	}{a.panel.Messages(), a.View(a.poller.Snapshot())}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		a.logger.Error("failed to render page", "err", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (a *App) handleStartLogin(w http.ResponseWriter, r *http.Request) {
	method, err := login.ParseMethod(server.Vars(r)["method"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := a.poller.StartLogin(r.Context(), method)
	if latest := a.poller.Snapshot(); latest.Newer(session) && latest.Generation == session.Generation {
		session = latest
	}
	switch {
	case errors.Is(err, login.ErrSuperseded):
		writeJSON(w, http.StatusConflict, a.View(a.poller.Snapshot()))
	case errors.Is(err, login.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	case err != nil:
		writeJSON(w, http.StatusBadGateway, a.View(session))
	default:
		writeJSON(w, http.StatusOK, a.View(session))
	}
}

func (a *App) handleAbandon(w http.ResponseWriter, r *http.Request) {
	a.poller.Abandon()
	writeJSON(w, http.StatusOK, a.View(a.poller.Snapshot()))
}

func (a *App) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.View(a.poller.Snapshot()))
}

func (a *App) handleQRCode(w http.ResponseWriter, r *http.Request) {
	s := a.poller.Snapshot()
	if !s.HasQR() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(s.QRImage))
	w.Write(s.QRImage)
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.panel.CheckStatus(r.Context()))
}

func (a *App) handleRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.panel.RefreshCredential(r.Context()))
}

func (a *App) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.panel.CredentialInfo(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
