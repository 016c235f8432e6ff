package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
	"github.com/akinalp/emocircle/pkg/logger"
)

// DetailProvider loads the session view sent as "ready".
type DetailProvider interface {
	GetSessionDetail(ctx context.Context, sessionID int64) (*models.SessionDetail, error)
}

// Handler upgrades subscription requests.
type Handler struct {
	hub      *Hub
	details  DetailProvider
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler builds the handler. checkOrigin decides browser origins; nil
// accepts any.
func NewHandler(hub *Hub, details DetailProvider, checkOrigin func(r *http.Request) bool, log *slog.Logger) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Handler{
		hub:     hub,
		details: details,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: logger.For(log, "ws"),
	}
}

// HandleConnection serves GET /ws?session_id=N.
//
// The session is checked before the upgrade so unknown ids get a plain 404.
// Blocks until the connection closes.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.URL.Query().Get("session_id"), 10, 64)
	if err != nil || sessionID <= 0 {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid session_id")
		return
	}

	if _, err := h.details.GetSessionDetail(r.Context(), sessionID); err != nil {
		pkg.Error(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", "session_id", sessionID, "error", err)
		return
	}

	client := newClient(h.hub, conn, uuid.NewString(), sessionID)

	// The request context ends with the handler; the snapshot needs its own.
	err = h.hub.Subscribe(context.Background(), client, func(ctx context.Context) (any, bool, error) {
		detail, err := h.details.GetSessionDetail(ctx, sessionID)
		if err != nil {
			return nil, false, err
		}
		return detail, !detail.Session.IsActive(), nil
	})
	if err != nil {
		if !errors.Is(err, pkg.ErrNotFound) {
			h.log.Error("failed to load snapshot", "session_id", sessionID, "error", err)
		}
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
