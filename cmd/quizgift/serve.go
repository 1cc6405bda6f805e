package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kkkkikiki/quizgift/internal/admin"
	"github.com/kkkkikiki/quizgift/internal/migration"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/requirements"
	"github.com/kkkkikiki/quizgift/internal/scheduler"
	"github.com/kkkkikiki/quizgift/internal/service"
	"github.com/kkkkikiki/quizgift/internal/settings"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin server and the maintenance scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	slog.Info("starting quizgift", "mode", cfg.App.Environment)
	if err := cfg.App.CheckAdminAccess(); err != nil {
		return err
	}
	if !cfg.App.AdminAuthEnabled() {
		slog.Warn("admin pages are served without authentication")
	}

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB(db)

	// Problems are reported, not fatal: the admin pages show them too.
	for _, problem := range requirements.NewChecker(cfg, db).Run(ctx) {
		slog.Warn("system requirement not met", "problem", problem)
	}
	if state, err := migration.New(db, migration.Options{DefaultCampaignID: cfg.App.DefaultCampaignID}).State(ctx); err != nil {
		slog.Warn("could not inspect schema", "error", err)
	} else if state.Pending() {
		slog.Warn("schema migration pending", "version", state.Version, "want", migration.SchemaVersion)
	}

	store, err := settings.NewStore(db.Conn, repository.NewOptionRepository(db.Tables))
	if err != nil {
		return err
	}
	handler, err := admin.NewHandler(cfg, db, store)
	if err != nil {
		return err
	}

	if cfg.App.SchedulerEnabled {
		sched, err := scheduler.New(ctx, &scheduler.Jobs{
			Campaigns:    service.NewCampaignService(db),
			Participants: service.NewParticipantService(db),
			Gifts:        service.NewGiftService(db),
			Settings:     store,
			AbandonAfter: cfg.App.AbandonAfter,
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Error("scheduler shutdown failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
		// Use h2c so we can serve HTTP/2 without TLS behind a proxy
		Handler: h2c.NewHandler(handler.Routes(), &http2.Server{}),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin server listening", "addr", server.Addr, "auth", cfg.App.AdminAuthEnabled())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal to gracefully shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("server exited gracefully")
	return nil
}
