package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qmc/internal/formatter"
	"github.com/desertthunder/qmc/internal/login"
	"github.com/desertthunder/qmc/internal/models"
	"github.com/desertthunder/qmc/internal/repositories"
	"github.com/desertthunder/qmc/internal/shared"
	"github.com/urfave/cli/v3"
)

// Final statuses recorded for attempts that never reached logged_in or failed.
const (
	statusAbandoned  = "abandoned"
	statusSuperseded = "superseded"
	statusClosed     = "closed"
)

var timeNow = time.Now

// historyRecorder mirrors poller sessions into login_attempts rows.
type historyRecorder struct {
	repo    *repositories.LoginAttemptRepository
	logger  *log.Logger
	current *models.LoginAttempt
}

func newHistoryRecorder(repo *repositories.LoginAttemptRepository, logger *log.Logger) *historyRecorder {
	return &historyRecorder{repo: repo, logger: shared.WithLogger(logger, "component", "history")}
}

// Run records every session from updates until the channel closes or ctx is done.
// An attempt still open at that point is closed out.
func (h *historyRecorder) Run(ctx context.Context, updates <-chan login.Session) {
	defer h.finish(statusClosed, "")

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			h.record(s)
		}
	}
}

func (h *historyRecorder) record(s login.Session) {
	if s.Status == login.Idle || s.ID == "" {
		h.finish(statusAbandoned, "")
		return
	}

	if h.current == nil || h.current.ID() != s.ID {
		h.finish(statusSuperseded, "")

		attempt := models.NewLoginAttempt(s.ID, string(s.Method), s.StartedAt)
		attempt.Record(s.Status.String(), s.Message, s.Ticks, s.UpdatedAt, s.Status.Terminal())
		if err := h.repo.Create(attempt); err != nil {
			h.logger.Warn("failed to record login attempt", "id", s.ID, "err", err)
			return
		}
		h.current = attempt
		return
	}

	h.current.Record(s.Status.String(), s.Message, s.Ticks, s.UpdatedAt, s.Status.Terminal())
	if err := h.repo.Update(h.current); err != nil {
		h.logger.Warn("failed to update login attempt", "id", s.ID, "err", err)
	}
}

// finish closes out the open attempt with status unless it already settled.
func (h *historyRecorder) finish(status, message string) {
	if h.current == nil {
		return
	}
	attempt := h.current
	h.current = nil

	if attempt.FinishedAt() != nil {
		return
	}

	attempt.Record(status, message, attempt.Ticks(), timeNow(), true)
	if err := h.repo.Update(attempt); err != nil {
		h.logger.Warn("failed to close login attempt", "id", attempt.ID(), "err", err)
	}
}

// History lists recorded login attempts, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewLoginAttemptRepository(db)

	if cmd.IsSet("prune") {
		removed, err := repo.Prune(cmd.Int("prune"))
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		r.logger.Info("pruned login history", "removed", removed, "kept", cmd.Int("prune"))
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if m := cmd.String("method"); m != "" {
		method, err := login.ParseMethod(m)
		if err != nil {
			return err
		}
		criteria["method"] = string(method)
	}
	if s := cmd.String("status"); s != "" {
		criteria["status"] = strings.ToLower(strings.TrimSpace(s))
	}

	attempts, err := repo.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list login history: %w", err)
	}

	data, err := formatter.ExportHistory(attempts, format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" && path != "-" {
		if err := formatter.WriteExport(path, data); err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "count", len(attempts))
		return nil
	}

	_, err = r.output.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
