package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/tenderscope/api"
	"github.com/use-agent/tenderscope/api/handler"
	"github.com/use-agent/tenderscope/auth"
	"github.com/use-agent/tenderscope/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		slog.Info("tenderscope starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
		)
		if cfg.Auth.Enabled && cfg.Auth.Secret == "changeme" {
			slog.Warn("TENDERSCOPE_SECRET_KEY is the default; tokens are forgeable")
		}

		a, err := newApp(cfg, cfg.Store.OutputDir)
		if err != nil {
			return err
		}
		defer a.Close()

		jobs := handler.NewJobs(time.Hour)
		defer jobs.Close()

		router := api.NewRouter(api.Deps{
			Config:    cfg,
			Sessions:  a.scraper,
			Store:     a.store,
			Generator: a.runner,
			Jobs:      jobs,
			Issuer:    auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL),
			Notifier:  webhook.NewNotifier(cfg.Webhook),
			StartTime: time.Now(),
		})

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("HTTP server error: %w", err)
		case <-ctx.Done():
			slog.Info("shutdown signal received")
		}

		// Give in-flight requests 5 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}

		slog.Info("tenderscope stopped")
		return nil
	},
}
