package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/qmc/internal/server"
	"github.com/desertthunder/qmc/internal/shared"
	"github.com/desertthunder/qmc/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the browser control panel until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := r.config.Server.Addr()
	if cmd.IsSet("addr") {
		addr = cmd.String("addr")
	}
	if _, port, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%w: --addr %q: %v", shared.ErrInvalidFlag, addr, err)
	} else if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("%w: --addr %q: port must be numeric", shared.ErrInvalidFlag, addr)
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

	hub := web.NewHub(r.logger)
	defer hub.Close()

	app := web.NewApp(poller, r.newPanel(), hub, r.logger)
	go app.Run(ctx)

	srv := server.New(addr, app.Router())

	if cmd.Bool("open") {
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(300 * time.Millisecond):
				if err := shared.OpenBrowser("http://" + addr); err != nil {
					r.logger.Warn("failed to open browser", "err", err)
				}
			}
		}()
	}

	r.logger.Info("control panel listening", "url", "http://"+addr, "plugin", r.plugin.BaseURL())
	return server.ListenAndServe(ctx, srv, r.logger)
}
