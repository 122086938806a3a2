package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/qmc/internal/shared"
	"github.com/desertthunder/qmc/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal credential panel.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	poller, err := r.newPoller(cmd)
	if err != nil {
		return err
	}
	defer poller.Close()

	if !cmd.Bool("no-history") {
		stop := r.recordHistory(ctx, poller)
		defer stop()
	}

	model := ui.NewModel(ctx, poller, r.newPanel())
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
