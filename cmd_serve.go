package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/akinalp/emocircle/config"
	"github.com/akinalp/emocircle/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	Long: `Run the emocircle server.

Configuration comes from the environment (a .env file is read first when
present). AUTH_SECRET is required.

Examples:
  emocircle serve
  SERVER_PORT=8080 DATABASE_PATH=/var/lib/emocircle.db emocircle serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: os.Stderr})
	mainLog := logger.For(log, "main")
	mainLog.Info("emocircle server starting",
		"version", version,
		"port", cfg.Server.Port,
		"code_reuse", cfg.Session.CodeReuse,
		"include_zero_emotions", cfg.Session.IncludeZeroEmotions,
		"sender_policy", cfg.Session.SenderPolicy,
	)

	app, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			mainLog.Error("failed to close app", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		mainLog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	mainLog.Info("shutting down...")

	// WebSocket clients first, so they see the close frame; then stop
	// accepting requests and drain the in-flight ones.
	app.StopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	mainLog.Info("server stopped gracefully")
	return nil
}
