// package models defines the persisted data model for qmc
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/qmc/internal/shared"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// LoginAttempt is the stored outcome of one QR login attempt.
type LoginAttempt struct {
	id         string
	sequence   int
	method     string
	status     string
	message    string
	ticks      int
	startedAt  time.Time
	updatedAt  time.Time
	finishedAt *time.Time
}

// NewLoginAttempt creates an attempt for method that started at startedAt.
func NewLoginAttempt(id, method string, startedAt time.Time) *LoginAttempt {
	return &LoginAttempt{
		id:        id,
		method:    method,
		status:    "generating_qr",
		startedAt: startedAt,
		updatedAt: startedAt,
	}
}

func (a *LoginAttempt) ID() string               { return a.id }
func (a *LoginAttempt) Sequence() int            { return a.sequence }
func (a *LoginAttempt) Method() string           { return a.method }
func (a *LoginAttempt) Status() string           { return a.status }
func (a *LoginAttempt) Message() string          { return a.message }
func (a *LoginAttempt) Ticks() int               { return a.ticks }
func (a *LoginAttempt) CreatedAt() time.Time     { return a.startedAt }
func (a *LoginAttempt) UpdatedAt() time.Time     { return a.updatedAt }
func (a *LoginAttempt) FinishedAt() *time.Time   { return a.finishedAt }
func (a *LoginAttempt) SetID(id string)          { a.id = id }
func (a *LoginAttempt) SetSequence(sequence int) { a.sequence = sequence }

// Record applies the latest observed state. finished marks the attempt as settled at the given time.
func (a *LoginAttempt) Record(status, message string, ticks int, at time.Time, finished bool) {
	a.status = status
	a.message = message
	a.ticks = ticks
	a.updatedAt = at
	if finished {
		a.finishedAt = &at
	}
}

// SetFinishedAt restores the settle time when loading from storage.
func (a *LoginAttempt) SetFinishedAt(t *time.Time) { a.finishedAt = t }

// Duration is how long the attempt ran, up to its last update.
func (a *LoginAttempt) Duration() time.Duration {
	end := a.updatedAt
	if a.finishedAt != nil {
		end = *a.finishedAt
	}
	return end.Sub(a.startedAt)
}

// Validate checks required fields and that the method is one the plugin supports.
func (a *LoginAttempt) Validate() error {
	if a.id == "" {
		return fmt.Errorf("%w: login attempt id is required", shared.ErrInvalidInput)
	}
	if a.method != "qq" && a.method != "wx" {
		return fmt.Errorf("%w: login method must be qq or wx, got %q", shared.ErrInvalidInput, a.method)
	}
	if a.status == "" {
		return fmt.Errorf("%w: login attempt status is required", shared.ErrInvalidInput)
	}
	if a.startedAt.IsZero() {
		return fmt.Errorf("%w: login attempt start time is required", shared.ErrInvalidInput)
	}
	return nil
}

// MarshalJSON exposes the private fields for `qmc history --json`.
func (a *LoginAttempt) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string     `json:"id"`
		Sequence   int        `json:"sequence"`
		Method     string     `json:"method"`
		Status     string     `json:"status"`
		Message    string     `json:"message,omitempty"`
		Ticks      int        `json:"ticks"`
		StartedAt  time.Time  `json:"started_at"`
		UpdatedAt  time.Time  `json:"updated_at"`
		FinishedAt *time.Time `json:"finished_at,omitempty"`
	}{a.id, a.sequence, a.method, a.status, a.message, a.ticks, a.startedAt, a.updatedAt, a.finishedAt})
}
