package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/qmc/internal/models"
	"github.com/desertthunder/qmc/internal/shared"
)

var _ models.Repository[*models.LoginAttempt] = (*LoginAttemptRepository)(nil)

// LoginAttemptRepository implements [models.Repository] for [models.LoginAttempt] persistence.
type LoginAttemptRepository struct {
	db *sql.DB
}

// NewLoginAttemptRepository creates a new [LoginAttemptRepository] with the given database connection
func NewLoginAttemptRepository(db *sql.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

const loginAttemptColumns = `id, sequence, method, status, message, ticks, started_at, updated_at, finished_at`

// Create inserts a new attempt with the next sequence number. An empty ID is replaced with a generated one.
func (r *LoginAttemptRepository) Create(attempt *models.LoginAttempt) error {
	if attempt.ID() == "" {
		attempt.SetID(shared.GenerateID())
	}

	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "login_attempts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	attempt.SetSequence(sequence)

	query := `
		INSERT INTO login_attempts (` + loginAttemptColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		attempt.ID(), sequence, attempt.Method(), attempt.Status(), attempt.Message(), attempt.Ticks(),
		attempt.CreatedAt(), attempt.UpdatedAt(), nullTime(attempt.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}

	return nil
}

// Get retrieves an attempt by ID
func (r *LoginAttemptRepository) Get(id string) (*models.LoginAttempt, error) {
	query := `SELECT ` + loginAttemptColumns + ` FROM login_attempts WHERE id = ?`

	attempt, err := scanLoginAttempt(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: login attempt %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempt: %w", err)
	}

	return attempt, nil
}

// Update stores the attempt's current status, message, tick count and times
func (r *LoginAttemptRepository) Update(attempt *models.LoginAttempt) error {
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE login_attempts
		SET status = ?, message = ?, ticks = ?, updated_at = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		attempt.Status(), attempt.Message(), attempt.Ticks(), attempt.UpdatedAt(), nullTime(attempt.FinishedAt()), attempt.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update login attempt: %w", err)
	}

	return expectRow(result, attempt.ID())
}

// Delete removes an attempt by ID
func (r *LoginAttemptRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM login_attempts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete login attempt: %w", err)
	}

	return expectRow(result, id)
}

// List retrieves attempts newest first.
//
// Supported criteria: "method" (string), "status" (string) and "limit" (int, 0 for all).
func (r *LoginAttemptRepository) List(criteria map[string]any) ([]*models.LoginAttempt, error) {
	query := `SELECT ` + loginAttemptColumns + ` FROM login_attempts WHERE 1 = 1`
	args := []any{}

	if method, ok := criteria["method"].(string); ok && method != "" {
		query += " AND method = ?"
		args = append(args, method)
	}
	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.LoginAttempt
	for rows.Next() {
		attempt, err := scanLoginAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return attempts, nil
}

// Prune deletes all but the newest keep attempts and returns how many rows were removed.
func (r *LoginAttemptRepository) Prune(keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must not be negative", shared.ErrInvalidArgument)
	}

	query := `
		DELETE FROM login_attempts
		WHERE id NOT IN (SELECT id FROM login_attempts ORDER BY sequence DESC LIMIT ?)
	`

	result, err := r.db.Exec(query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune login attempts: %w", err)
	}

	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoginAttempt(row rowScanner) (*models.LoginAttempt, error) {
	var (
		id         string
		sequence   int
		method     string
		status     string
		message    string
		ticks      int
		startedAt  time.Time
		updatedAt  time.Time
		finishedAt sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &method, &status, &message, &ticks, &startedAt, &updatedAt, &finishedAt); err != nil {
		return nil, err
	}

	attempt := models.NewLoginAttempt(id, method, startedAt)
	attempt.SetSequence(sequence)
	attempt.Record(status, message, ticks, updatedAt, false)
	if finishedAt.Valid {
		attempt.SetFinishedAt(&finishedAt.Time)
	}

	return attempt, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: login attempt %s", shared.ErrRecordNotFound, id)
	}
	return nil
}
