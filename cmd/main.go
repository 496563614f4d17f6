package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/desertthunder/termsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath()
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warnf("failed to load config, using defaults %v", err)
		}
	}

	var db *sql.DB
	if config.Database.Path != "" {
		if _, err := os.Stat(config.Database.Path); err == nil {
			if db, err = shared.NewDatabase(config.Database.Path); err != nil {
				logger.Warnf("failed to open database %v", err)
				db = nil
			} else {
				shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
				defer db.Close()
			}
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		DB:         db,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "termsync",
		Usage:   "Reconcile payment terms between spreadsheets & QuickBooks",
		Version: "0.5.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   configPath,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output machine-readable JSON",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

// defaultConfigPath returns ~/.config/termsync/termsync.toml, falling back to
// the working directory when the home directory cannot be resolved.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "termsync.toml"
	}
	return filepath.Join(home, ".config", "termsync", "termsync.toml")
}
