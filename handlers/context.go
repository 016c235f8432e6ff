// Package handlers holds the thin HTTP layer: decode the request, call a
// service, encode the result. Business rules live in services.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/akinalp/emocircle/pkg"
)

type contextKey string

// FacilitatorContextKey carries the authenticated facilitator id, set by
// middleware.AuthMiddleware.
const FacilitatorContextKey contextKey = "facilitator_id"

// FacilitatorFromContext returns the facilitator id set by the auth middleware.
func FacilitatorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(FacilitatorContextKey).(string)
	return id, ok && id != ""
}

// WithFacilitator stores id in ctx.
func WithFacilitator(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, FacilitatorContextKey, id)
}

// pathID parses a positive numeric path value, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func requireFacilitator(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := FacilitatorFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "facilitator not found in context")
	}
	return id, ok
}
