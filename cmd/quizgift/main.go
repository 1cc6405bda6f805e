package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kkkkikiki/quizgift/internal/config"
	"github.com/kkkkikiki/quizgift/internal/database"
)

// cfg is loaded once for every command
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "quizgift",
	Short: "Quiz campaign manager: admin pages, schema migration and system checks",
	Long: `quizgift manages quiz campaigns, gifts and participants stored in a
WordPress database, and migrates the pre-2.0 quiz tables to the current schema.

Configuration is read from the environment (and a .env file when present).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(cmd.Context())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default slog logger: JSON in production, text otherwise
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.App.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler).With("env", cfg.App.Environment))
}

// openDB connects to the configured database
func openDB(ctx context.Context) (*database.DB, error) {
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		slog.Error("error closing database connection", "error", err)
	}
}
