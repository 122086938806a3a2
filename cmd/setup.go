package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/qmc/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes a config file, seeded from the embedded example and the current overrides.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%w: config file already exists at %s (use --force to overwrite)", shared.ErrInvalidArgument, path)
	}

	if cmd.IsSet("port") {
		port := cmd.Int("port")
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%w: --port %d", shared.ErrInvalidFlag, port)
		}
		r.config.Plugin.Port = port
	}

	if err := shared.SaveConfig(path, r.config); err != nil {
		return err
	}

	r.logger.Info("config file written", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlain("Plugin: %s\n", r.config.Plugin.BaseURL())
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'qmc setup database' to create the login history\n")
	r.writePlain("2. Run 'qmc credential status' to check the plugin is reachable\n")
	return nil
}

// SetupDatabase initializes the history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}
