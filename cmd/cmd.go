// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/qmc/internal/shared"
	"github.com/urfave/cli/v3"
)

func pollFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Time between credential status checks",
			Value: shared.DefaultPollInterval,
		},
		&cli.DurationFlag{
			Name:  "max-wait",
			Usage: "Give up waiting for a scan after this long (0 waits forever)",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record the attempt in the login history",
		},
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: plain, json, csv, markdown",
			Value:   "plain",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to file instead of stdout",
		},
	}
}

// loginCommand starts a QR login from the command line
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in by scanning a QR code with QQ or WeChat (method: qq or wx, default qq)",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "method",
			},
		},
		Flags: append(pollFlags(),
			&cli.StringFlag{
				Name:  "save-qr",
				Usage: "Also save the QR code image to this path (.png, .jpg, .gif)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the QR code in the system image viewer instead of drawing it",
			},
			&cli.BoolFlag{
				Name:  "invert",
				Usage: "Swap dark and light modules, for dark terminal backgrounds",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the final session as JSON",
			},
		),
		Action: r.Login,
	}
}

// credentialCommand handles stored credential operations
func credentialCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "credential",
		Aliases: []string{"cred"},
		Usage:   "Inspect and refresh the stored credential",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Check whether the credential is valid",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CredentialStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the credential",
				Action: r.CredentialRefresh,
			},
			{
				Name:   "info",
				Usage:  "Show the stored credential's fields",
				Flags:  formatFlags(),
				Action: r.CredentialInfo,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive credential panel.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal panel",
		Flags: append(pollFlags(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI is running",
				Value: "./tmp/qmc-tui.log",
			},
		),
		Action: r.TUI,
	}
}

// serveCommand runs the browser control panel
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the control panel in the browser",
		Flags: append(pollFlags(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from server.host and server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the panel in the default browser",
			},
		),
		Action: r.Serve,
	}
}

// historyCommand lists recorded login attempts
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past login attempts",
		Flags: append(formatFlags(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of attempts to list (0 for all)",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "method",
				Usage: "Only attempts for qq or wx",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only attempts with this final status",
			},
			&cli.IntFlag{
				Name:  "prune",
				Usage: "Delete all but the newest N attempts before listing",
			},
		),
		Action: r.History,
	}
}

// setupCommand handles setup operations for configuration and the history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config file using the current settings",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Plugin port",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the latest migration after migrating",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// apiCommand handles direct plugin API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the plugin router",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a plugin path, prints the response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST to a plugin path with an optional JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body to send",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
