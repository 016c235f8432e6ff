package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"github.com/akinalp/emocircle/config"
	"github.com/akinalp/emocircle/database"
	"github.com/akinalp/emocircle/middleware"
	"github.com/akinalp/emocircle/pkg/logger"
	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/ws"
)

// App is the wired server: storage, hub, services and the HTTP handler.
type App struct {
	DB       *database.DB
	Hub      *ws.Hub
	Metrics  *metrics.Metrics
	Services *Services
	Handler  http.Handler

	limiters *RateLimiters
	stopHub  context.CancelFunc
	hubDone  chan struct{}
}

// buildApp wires every layer:
//  1. database (embedded migrations)
//  2. metrics registry
//  3. WebSocket hub, started in its own goroutine
//  4. services and rate limiters
//  5. handlers, routes, middleware chain and CORS
func buildApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := database.New(cfg.Database.Path, database.Migrations(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.New()

	hub := ws.NewHub(log, m)
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(hubCtx)
	}()

	svcs, limiters, err := initServices(db.Conn, hub, m, cfg)
	if err != nil {
		stopHub()
		<-hubDone
		db.Close()
		return nil, err
	}

	h := initHandlers(db, svcs, limiters, hub, cfg, log)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Identity, m)

	var handler http.Handler = mux
	handler = middleware.Observe(mux, logger.For(log, "http"), m)(handler)
	handler = middleware.RequestID(handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
	})
	handler = corsHandler.Handler(handler)

	return &App{
		DB:       db,
		Hub:      hub,
		Metrics:  m,
		Services: svcs,
		Handler:  handler,
		limiters: limiters,
		stopHub:  stopHub,
		hubDone:  hubDone,
	}, nil
}

// StopHub closes every WebSocket and waits for the hub loop to exit.
// Safe to call more than once.
func (a *App) StopHub() {
	a.stopHub()
	<-a.hubDone
}

// Close stops the hub and background workers, then the database. The HTTP
// server must already be shut down.
func (a *App) Close() error {
	a.StopHub()
	a.limiters.Stop()
	a.Services.Sync.Close()
	return a.DB.Close()
}
