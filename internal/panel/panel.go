// package panel turns plugin calls and login sessions into the short results shown by the CLI, TUI and web front ends.
package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qmc/internal/formatter"
	"github.com/desertthunder/qmc/internal/login"
	"github.com/desertthunder/qmc/internal/services"
	"github.com/desertthunder/qmc/internal/shared"
)

// Kind classifies a result for styling.
type Kind int

const (
	KindInfo Kind = iota
	KindLoading
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return ""
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind := KindInfo; kind <= KindError; kind++ {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: unknown result kind %q", shared.ErrInvalidArgument, text)
}

// Result is what a front end displays after an action.
type Result struct {
	Kind   Kind              `json:"kind"`
	Text   string            `json:"text"`
	Fields []formatter.Field `json:"fields,omitempty"`
}

// Client is the subset of the plugin client the panel calls.
type Client interface {
	CredentialValid(ctx context.Context) (bool, error)
	RefreshCredential(ctx context.Context) (*services.RefreshResult, error)
	CredentialInfo(ctx context.Context) (map[string]any, error)
}

// Panel performs credential actions and renders their outcome in the configured language.
//
// Every action recovers from failure locally: errors become [KindError] results, never returned errors.
type Panel struct {
	client Client
	msgs   Messages
	logger *log.Logger

	mu         sync.Mutex
	refreshing bool
	onRefresh  func(enabled bool)
}

// New creates a panel over client using the [Catalog] for locale.
func New(client Client, locale string, logger *log.Logger) *Panel {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Panel{
		client: client,
		msgs:   Catalog(locale),
		logger: shared.WithLogger(logger, "component", "panel"),
	}
}

// Messages returns the catalog in use.
func (p *Panel) Messages() Messages {
	return p.msgs
}

// Loading is the placeholder shown while a request is in flight.
func (p *Panel) Loading() Result {
	return Result{Kind: KindLoading, Text: p.msgs.Loading}
}

// CheckStatus fetches credential validity. Nothing is cached: each call is a fresh request.
func (p *Panel) CheckStatus(ctx context.Context) Result {
	valid, err := p.client.CredentialValid(ctx)
	if err != nil {
		p.logger.Error("failed to check credential status", "err", err)
		return Result{Kind: KindError, Text: fmt.Sprintf(p.msgs.StatusFailedF, statusText(err))}
	}

	if valid {
		return Result{Kind: KindSuccess, Text: p.msgs.CredentialValid}
	}
	return Result{Kind: KindError, Text: p.msgs.CredentialInvalid}
}

// RefreshEnabled reports whether the refresh control accepts input.
func (p *Panel) RefreshEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.refreshing
}

// OnRefreshChange registers fn to be called when the refresh control is disabled or re-enabled.
func (p *Panel) OnRefreshChange(fn func(enabled bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRefresh = fn
}

// RefreshCredential asks the plugin to refresh the stored credential.
//
// The refresh control is disabled for the duration of the request and re-enabled afterwards whatever the outcome.
// A call made while disabled returns immediately without a request.
func (p *Panel) RefreshCredential(ctx context.Context) Result {
	if !p.setRefreshing(true) {
		return Result{Kind: KindInfo, Text: p.msgs.RefreshBusy}
	}
	defer p.setRefreshing(false)

	result, err := p.client.RefreshCredential(ctx)
	if err != nil {
		p.logger.Error("failed to refresh credential", "err", err)
		return Result{Kind: KindError, Text: fmt.Sprintf(p.msgs.RefreshFailedF, refreshCause(err))}
	}

	text := p.msgs.Refreshed
	if result != nil && result.Message != "" {
		text = result.Message
	}
	p.logger.Info("credential refreshed")
	return Result{Kind: KindSuccess, Text: text}
}

// setRefreshing flips the busy flag and reports whether it changed.
func (p *Panel) setRefreshing(busy bool) bool {
	p.mu.Lock()
	if p.refreshing == busy {
		p.mu.Unlock()
		return false
	}
	p.refreshing = busy
	fn := p.onRefresh
	p.mu.Unlock()

	if fn != nil {
		fn(!busy)
	}
	return true
}

// CredentialInfo fetches the stored credential and lists its fields sorted by key.
func (p *Panel) CredentialInfo(ctx context.Context) Result {
	info, err := p.client.CredentialInfo(ctx)
	switch {
	case errors.Is(err, shared.ErrCredentialNotFound):
		return Result{Kind: KindError, Text: fmt.Sprintf(p.msgs.InfoFailedF, p.msgs.CredentialMissing)}
	case err != nil:
		p.logger.Error("failed to get credential info", "err", err)
		return Result{Kind: KindError, Text: fmt.Sprintf(p.msgs.InfoFailedF, statusText(err))}
	}

	return Result{Kind: KindInfo, Fields: formatter.Fields(info)}
}

// QRView projects a login session onto the status line shown under the QR code.
func (p *Panel) QRView(s login.Session) Result {
	switch s.Status {
	case login.GeneratingQR:
		return Result{Kind: KindLoading, Text: p.msgs.GeneratingQR}
	case login.AwaitingScan:
		return Result{Kind: KindInfo, Text: p.msgs.ScanPrompt}
	case login.LoggedIn:
		return Result{Kind: KindSuccess, Text: p.msgs.LoginSucceeded}
	case login.Failed:
		if errors.Is(s.Err, shared.ErrTimeout) {
			return Result{Kind: KindError, Text: p.msgs.ScanTimedOut}
		}
		reason := s.Message
		if s.Err != nil {
			reason = statusText(s.Err)
		}
		return Result{Kind: KindError, Text: fmt.Sprintf(p.msgs.QRFailedF, reason)}
	default:
		return Result{Kind: KindInfo, Text: p.msgs.ChooseMethod}
	}
}

// QRLoadFailed is shown when a fetched QR payload cannot be rendered as an image.
func (p *Panel) QRLoadFailed() Result {
	return Result{Kind: KindError, Text: p.msgs.QRLoadFailed}
}

// refreshCause prefers the plugin's detail; the message already says the refresh failed.
func refreshCause(err error) string {
	var httpErr *services.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	return strings.TrimPrefix(err.Error(), shared.ErrRefreshFailed.Error()+": ")
}

// statusText reduces plugin HTTP errors to their status code; other errors keep their message.
func statusText(err error) string {
	var httpErr *services.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("HTTP error! status: %d", httpErr.StatusCode)
	}
	return err.Error()
}
