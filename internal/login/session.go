package login

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/qmc/internal/shared"
)

// Method selects the account type used to scan the QR code.
type Method string

const (
	MethodQQ Method = "qq"
	MethodWX Method = "wx"
)

// ParseMethod accepts "qq" or "wx" (case-insensitive, surrounding whitespace ignored).
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: login method must be qq or wx, got %q", shared.ErrInvalidArgument, s)
	}
	return m, nil
}

// Valid reports whether m is a method the plugin understands.
func (m Method) Valid() bool {
	return m == MethodQQ || m == MethodWX
}

// Label is the human-readable account type.
func (m Method) Label() string {
	switch m {
	case MethodQQ:
		return "QQ"
	case MethodWX:
		return "WeChat"
	default:
		return string(m)
	}
}

// Status is the login session state.
type Status int

const (
	Idle Status = iota
	GeneratingQR
	AwaitingScan
	LoggedIn
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case GeneratingQR:
		return "generating_qr"
	case AwaitingScan:
		return "awaiting_scan"
	case LoggedIn:
		return "logged_in"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// MarshalText encodes the status by name so JSON consumers see "awaiting_scan" rather than 2.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of [Status.MarshalText].
func (s *Status) UnmarshalText(text []byte) error {
	for st := Idle; st <= Failed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("%w: unknown login status %q", shared.ErrInvalidArgument, text)
}

// Terminal reports whether no further transitions happen without a new attempt.
func (s Status) Terminal() bool {
	return s == LoggedIn || s == Failed
}

// Active reports whether the session holds (or is about to hold) a poll task.
func (s Status) Active() bool {
	return s == GeneratingQR || s == AwaitingScan
}

// Session is a snapshot of one login attempt.
//
// Snapshots are values; QRImage is replaced on each attempt and never mutated, so sharing it is safe.
type Session struct {
	ID         string    `json:"id,omitempty"`
	Generation uint64    `json:"generation"`
	Method     Method    `json:"method,omitempty"`
	Status     Status    `json:"status"`
	QRImage    []byte    `json:"-"`
	QRBase64   string    `json:"qr_base64,omitempty"`
	Err        error     `json:"-"`
	Message    string    `json:"message,omitempty"`
	Ticks      int       `json:"ticks"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

// HasQR reports whether the session carries a displayable QR image.
func (s Session) HasQR() bool {
	return len(s.QRImage) > 0
}

// Newer reports whether s is a later state than other.
//
// Attempts are ordered by generation. Within one attempt the status only moves forward and ticks only grow,
// so a snapshot delivered late (e.g. the QR result arriving after the first tick's LoggedIn) compares older.
func (s Session) Newer(other Session) bool {
	if s.Generation != other.Generation {
		return s.Generation > other.Generation
	}
	if s.Status != other.Status {
		return s.Status > other.Status
	}
	return s.Ticks > other.Ticks
}

// Elapsed is the time between the start of the attempt and its last update.
func (s Session) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return s.UpdatedAt.Sub(s.StartedAt)
}
