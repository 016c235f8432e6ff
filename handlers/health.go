package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akinalp/emocircle/pkg"
)

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /api/health. The poll interval is advertised so
// polling clients can follow the server's cadence.
type HealthHandler struct {
	db           Pinger
	pollInterval time.Duration
}

// NewHealthHandler builds the handler.
func NewHealthHandler(db Pinger, pollInterval time.Duration) *HealthHandler {
	return &HealthHandler{db: db, pollInterval: pollInterval}
}

// HealthStatus is the health response body.
type HealthStatus struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	PollIntervalMS int64  `json:"poll_interval_ms"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		pkg.ErrorWithMessage(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	pkg.JSON(w, http.StatusOK, HealthStatus{
		Status:         "ok",
		Service:        "emocircle",
		PollIntervalMS: h.pollInterval.Milliseconds(),
	})
}
