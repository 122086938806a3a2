package login

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/qmc/internal/shared"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in   string
		want Method
		err  bool
	}{
		{"qq", MethodQQ, false},
		{" WX ", MethodWX, false},
		{"email", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethod(tt.in)
			if tt.err {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseMethod(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestStatusText(t *testing.T) {
	for _, st := range []Status{Idle, GeneratingQR, AwaitingScan, LoggedIn, Failed} {
		data, err := json.Marshal(st)
		if err != nil {
			t.Fatalf("marshal %v: %v", st, err)
		}
		var back Status
		if err := json.Unmarshal(data, &back); err != nil || back != st {
			t.Errorf("%s: got %v, %v", data, back, err)
		}
	}

	var st Status
	if err := st.UnmarshalText([]byte("scanning")); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSessionElapsed(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Session{StartedAt: start, UpdatedAt: start.Add(9 * time.Second)}
	if s.Elapsed() != 9*time.Second {
		t.Errorf("expected 9s, got %v", s.Elapsed())
	}
	if (Session{}).Elapsed() != 0 {
		t.Error("zero session should have no elapsed time")
	}
}

func TestSessionNewer(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Session
		newer bool
	}{
		{"later generation", Session{Generation: 2, Status: GeneratingQR}, Session{Generation: 1, Status: LoggedIn}, true},
		{"earlier generation", Session{Generation: 1, Status: LoggedIn}, Session{Generation: 2}, false},
		{"logged in after awaiting", Session{Generation: 1, Status: LoggedIn, Ticks: 1}, Session{Generation: 1, Status: AwaitingScan}, true},
		{"awaiting after logged in", Session{Generation: 1, Status: AwaitingScan}, Session{Generation: 1, Status: LoggedIn, Ticks: 1}, false},
		{"more ticks", Session{Generation: 1, Status: AwaitingScan, Ticks: 3}, Session{Generation: 1, Status: AwaitingScan, Ticks: 2}, true},
		{"same state", Session{Generation: 1, Status: AwaitingScan, Ticks: 2}, Session{Generation: 1, Status: AwaitingScan, Ticks: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Newer(tt.b); got != tt.newer {
				t.Errorf("Newer() = %v, want %v", got, tt.newer)
			}
		})
	}
}
