package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/ytmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing and runs database migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}

		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
		r.config = config
		r.writePlain("✓ Created %s\n", configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to set up database: %w", err)
		}
		r.db = db
	} else if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)

	if err := r.config.Validate(); err != nil {
		r.writePlain("\nNext steps:\n")
		r.writePlain("1. Set credentials.google.client_id and exchange.base_url in %s\n", configPath)
		r.writePlain("2. Run 'ytmix auth login'\n")
		return nil
	}

	r.writePlain("\nRun 'ytmix auth login' to authorize.\n")
	return nil
}
