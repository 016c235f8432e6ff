// Package main: handler layer wiring.
//
// Handlers are thin: parse the request, call a service, write the envelope.
package main

import (
	"log/slog"
	"net/http"

	"github.com/akinalp/emocircle/config"
	"github.com/akinalp/emocircle/database"
	"github.com/akinalp/emocircle/handlers"
	"github.com/akinalp/emocircle/ws"
)

// Handlers holds every handler instance.
type Handlers struct {
	Health  *handlers.HealthHandler
	Session *handlers.SessionHandler
	Message *handlers.MessageHandler
	Emotion *handlers.EmotionHandler
	WS      *ws.Handler
}

func initHandlers(db *database.DB, svcs *Services, limiters *RateLimiters, hub *ws.Hub, cfg *config.Config, log *slog.Logger) *Handlers {
	return &Handlers{
		Health:  handlers.NewHealthHandler(db, cfg.Session.PollInterval),
		Session: handlers.NewSessionHandler(svcs.Session, svcs.Sync, limiters.Join, cfg.RateLimit.TrustProxyHeaders),
		Message: handlers.NewMessageHandler(svcs.Message, limiters.Message, cfg.RateLimit.TrustProxyHeaders),
		Emotion: handlers.NewEmotionHandler(svcs.Emotion),
		WS:      ws.NewHandler(hub, svcs.Sync, originChecker(cfg.Server.AllowedOrigins), log),
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browser requests from the configured origins. "*" allows all.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return nil
		}
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
