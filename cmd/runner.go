package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/qmc/internal/login"
	"github.com/desertthunder/qmc/internal/panel"
	"github.com/desertthunder/qmc/internal/repositories"
	"github.com/desertthunder/qmc/internal/services"
	"github.com/desertthunder/qmc/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	plugin     *services.PluginService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	scheduler  login.Scheduler
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Plugin     *services.PluginService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Scheduler  login.Scheduler
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		plugin:     opts.Plugin,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		scheduler:  opts.Scheduler,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		loginCommand, credentialCommand, tuiCommand, serveCommand, historyCommand, setupCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "ip",
			Usage: "Plugin host (overrides QMC_HOST and plugin.host)",
		},
		&cli.StringFlag{
			Name:  "locale",
			Usage: "Message language (zh or en)",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// Before loads configuration and builds the plugin client ahead of any command action.
//
// Precedence, lowest first: embedded defaults, config file, QMC_* environment, command line flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		config, err := shared.LoadConfig(r.configPath)
		switch {
		case err == nil:
			r.config = config
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		default:
			return ctx, err
		}
	}

	if err := r.config.ApplyEnv(); err != nil {
		return ctx, err
	}
	if ip := cmd.String("ip"); ip != "" {
		r.config.Plugin.Host = ip
	}
	if locale := cmd.String("locale"); locale != "" {
		r.config.Locale = locale
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	if r.plugin == nil {
		client := r.httpClient
		if client == http.DefaultClient && r.config.Client.Timeout > 0 {
			client = &http.Client{Timeout: r.config.Client.Timeout}
		}
		r.plugin = services.NewPluginService(r.config.Plugin.BaseURL(), client, services.NewLimiter(r.config.Client.RateLimit))
	}
	r.logger.Debug("plugin configured", "base_url", r.plugin.BaseURL())

	return ctx, nil
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) service() (*services.PluginService, error) {
	if r.plugin == nil {
		return nil, fmt.Errorf("%w: plugin client not initialized", shared.ErrServiceUnavailable)
	}
	return r.plugin, nil
}

func (r *Runner) newPanel() *panel.Panel {
	return panel.New(r.plugin, r.config.Locale, r.logger)
}

// newPoller builds a poller from config, with --interval and --max-wait taking precedence when set.
func (r *Runner) newPoller(cmd *cli.Command) (*login.Poller, error) {
	svc, err := r.service()
	if err != nil {
		return nil, err
	}

	interval := r.config.Poll.Interval
	maxWait := r.config.Poll.MaxWait
	if cmd != nil {
		if cmd.IsSet("interval") {
			interval = cmd.Duration("interval")
		}
		if cmd.IsSet("max-wait") {
			maxWait = cmd.Duration("max-wait")
		}
	}
	if interval < 0 || maxWait < 0 {
		return nil, fmt.Errorf("%w: durations must not be negative", shared.ErrInvalidFlag)
	}

	return login.NewPoller(svc, login.Options{
		Interval:  interval,
		MaxWait:   maxWait,
		Scheduler: r.scheduler,
		Logger:    r.logger,
	}), nil
}

// openDatabase opens the history database and brings its schema up to date.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// recordHistory stores poller sessions as login attempts until the returned function is called.
//
// History is best effort: when the database cannot be opened the login proceeds unrecorded.
func (r *Runner) recordHistory(ctx context.Context, poller *login.Poller) func() {
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("login history disabled", "err", err)
		return func() {}
	}

	updates, unsubscribe := poller.Subscribe(32)
	rec := newHistoryRecorder(repositories.NewLoginAttemptRepository(db), r.logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Run(ctx, updates)
	}()

	return func() {
		unsubscribe()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			r.logger.Warn("history recorder did not stop in time")
		}
		db.Close()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
