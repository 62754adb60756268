package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/switchboard/internal/core/config"
	"github.com/solatis/switchboard/internal/core/db"
	"github.com/solatis/switchboard/internal/logging"
	"github.com/solatis/switchboard/internal/rules"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the release reported by the server at startup.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard feature switch manager",
	Long: `Switchboard stores feature switches and their conditions, serves them over a
gRPC admin API, and moves them between installations as armored switch blocks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration and applies the --db-url override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logging.New(logLevel, logFormat)
}

// openDatabase connects and, when requireSchema is set, refuses to continue
// until the latest migration is applied.
func openDatabase(ctx context.Context, cfg *config.Config, requireSchema bool) (*sqlx.DB, *db.Queries, error) {
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("--db-url or database.url required")
	}
	database, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	if requireSchema {
		applied, err := db.IsApplied(ctx, database, db.LatestMigration)
		if err != nil {
			database.Close()
			return nil, nil, err
		}
		if !applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'switchboard migrate' first", db.LatestMigration)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

// registries builds the operator and argument registries once at startup.
func registries(cfg *config.Config) (*rules.OperatorRegistry, *rules.ArgumentRegistry, error) {
	arguments, err := cfg.ArgumentRegistry()
	if err != nil {
		return nil, nil, err
	}
	return rules.NewOperatorRegistry(rules.DefaultOperators()...), arguments, nil
}
