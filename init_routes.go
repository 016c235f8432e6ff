// Package main: HTTP route registration.
//
// initRoutes binds every endpoint to the mux. Facilitator routes go through
// the auth middleware; member routes are open and identified by session id
// or code only.
package main

import (
	"net/http"

	"github.com/akinalp/emocircle/middleware"
	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/services"
)

// initRoutes registers the endpoints.
//
// Literal paths ("/api/sessions/history", "/api/sessions/join") are more
// specific than "/api/sessions/{id}", so the mux prefers them.
func initRoutes(mux *http.ServeMux, h *Handlers, identity services.IdentityService, m *metrics.Metrics) {
	authMw := middleware.NewAuthMiddleware(identity)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}

	// Health and metrics
	mux.HandleFunc("GET /api/health", h.Health.Check)
	mux.Handle("GET /metrics", m.Handler())

	// Sessions: facilitator
	mux.Handle("POST /api/sessions", auth(h.Session.Create))
	mux.Handle("GET /api/sessions", auth(h.Session.List))
	mux.Handle("GET /api/sessions/history", auth(h.Session.History))
	mux.Handle("PUT /api/sessions/{id}/end", auth(h.Session.End))

	// Sessions: members and polling
	mux.HandleFunc("GET /api/sessions/by-code", h.Session.ByCode)
	mux.HandleFunc("POST /api/sessions/join", h.Session.Join)
	mux.HandleFunc("GET /api/sessions/{id}", h.Session.Detail)
	mux.HandleFunc("GET /api/sessions/{id}/participants", h.Session.Participants)

	// Messages
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.Message.List)
	mux.HandleFunc("POST /api/sessions/{id}/messages", h.Message.Create)
	mux.HandleFunc("POST /api/messages/{id}/replies", h.Message.Reply)

	// Emotions
	mux.HandleFunc("PUT /api/sessions/{id}/participants/{pid}/emotion", h.Emotion.Report)
	mux.HandleFunc("GET /api/sessions/{id}/emotions", h.Emotion.Summary)
	mux.HandleFunc("GET /api/emotions/categories", h.Emotion.Categories)

	// WebSocket push channel; the polling routes above remain the fallback.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
