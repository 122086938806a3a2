package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/qmc/internal/formatter"
	"github.com/desertthunder/qmc/internal/panel"
	"github.com/desertthunder/qmc/internal/shared"
	"github.com/urfave/cli/v3"
)

// CredentialStatus reports whether the stored credential is valid. Nothing is cached between runs.
func (r *Runner) CredentialStatus(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("json") {
		svc, err := r.service()
		if err != nil {
			return err
		}
		status, err := svc.CredentialStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to check credential status: %w", err)
		}
		return r.writeJSON(status, false)
	}

	return r.writeResult(r.newPanel().CheckStatus(ctx))
}

// CredentialRefresh asks the plugin to refresh the stored credential.
func (r *Runner) CredentialRefresh(ctx context.Context, cmd *cli.Command) error {
	return r.writeResult(r.newPanel().RefreshCredential(ctx))
}

// CredentialInfo prints the stored credential's fields in the requested format.
func (r *Runner) CredentialInfo(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	info, err := svc.CredentialInfo(ctx)
	if err != nil {
		msgs := panel.Catalog(r.config.Locale)
		if errors.Is(err, shared.ErrCredentialNotFound) {
			return fmt.Errorf("%s: %w", fmt.Sprintf(msgs.InfoFailedF, msgs.CredentialMissing), err)
		}
		return fmt.Errorf("failed to get credential info: %w", err)
	}

	data, err := formatter.ExportCredentialInfo(info, format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" && path != "-" {
		if err := formatter.WriteExport(path, data); err != nil {
			return err
		}
		r.logger.Info("credential info exported", "path", path, "format", format)
		return nil
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeResult prints a panel result; error results become the command's error.
func (r *Runner) writeResult(res panel.Result) error {
	if res.Kind == panel.KindError {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, res.Text)
	}

	if res.Text != "" {
		if err := r.writePlain("%s\n", res.Text); err != nil {
			return err
		}
	}
	if len(res.Fields) > 0 {
		if _, err := r.output.Write(formatter.ExportToText(res.Fields)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
