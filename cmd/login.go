package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/qmc/internal/login"
	"github.com/desertthunder/qmc/internal/qr"
	"github.com/desertthunder/qmc/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login runs one QR login: fetch the code, show it, and poll until the credential is valid.
//
// Ctrl-C cancels the wait; the attempt is recorded as closed in the history.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("method")
	if arg == "" {
		arg = string(login.MethodQQ)
	}
	method, err := login.ParseMethod(arg)
	if err != nil {
		return err
	}

	poller, err := r.newPoller(cmd)
	if err != nil {
		return err
	}
	defer poller.Close()

	if !cmd.Bool("no-history") {
		stop := r.recordHistory(ctx, poller)
		defer stop()
	}

	p := r.newPanel()
	asJSON := cmd.Bool("json")

	if !asJSON {
		r.writePlainHeader(method.Label() + " QR login")
		r.writePlain("%s\n", p.QRView(login.Session{Status: login.GeneratingQR}).Text)
	}

	session, err := poller.StartLogin(ctx, method)
	if err != nil {
		if asJSON {
			r.writeJSON(session, true)
		} else if session.Status == login.Failed {
			r.writePlain("%s\n", p.QRView(session).Text)
		}
		return fmt.Errorf("failed to generate %s QR code: %w", method.Label(), err)
	}

	if path := cmd.String("save-qr"); path != "" {
		if err := qr.Save(session.QRImage, path); err != nil {
			return fmt.Errorf("failed to save QR code: %w", err)
		}
		r.logger.Info("QR code saved", "path", path)
	}

	if !asJSON {
		if err := r.showQR(session, cmd.Bool("open"), cmd.Bool("invert")); err != nil {
			r.logger.Warn("failed to show QR code", "err", err)
			r.writePlain("%s\n", p.QRLoadFailed().Text)
		}
		r.writePlain("%s\n", p.QRView(session).Text)
	}

	final, err := poller.Wait(ctx)
	if asJSON {
		if werr := r.writeJSON(final, true); werr != nil {
			return werr
		}
	}

	switch {
	case err == nil:
		if !asJSON {
			r.writePlain("%s\n", p.QRView(final).Text)
		}
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case final.Status == login.Failed:
		return fmt.Errorf("%s: %w", p.QRView(final).Text, err)
	default:
		return err
	}
}

// showQR draws the QR code in the terminal, or opens it with the system image viewer when open is set.
func (r *Runner) showQR(session login.Session, open, invert bool) error {
	if open {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("qmc-%s.png", session.ID))
		if err := qr.Save(session.QRImage, path); err != nil {
			return err
		}
		r.logger.Debug("opening QR code", "path", path)
		return shared.OpenBrowser(path)
	}

	view, err := qr.Render(session.QRImage, qr.RenderOptions{Invert: invert})
	if err != nil {
		return err
	}
	r.writePlain("\n%s\n", view)
	return nil
}
