package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
	"github.com/akinalp/emocircle/pkg/ratelimit"
	"github.com/akinalp/emocircle/services"
)

// SessionHandler serves the session lifecycle and the sync read views.
type SessionHandler struct {
	sessions    services.SessionService
	sync        services.SyncService
	joinLimiter *ratelimit.AttemptLimiter
	trustProxy  bool
}

// NewSessionHandler builds the handler. joinLimiter guards code lookups and
// joins; nil disables it. trustProxy is passed to ratelimit.ExtractIP.
func NewSessionHandler(sessions services.SessionService, sync services.SyncService, joinLimiter *ratelimit.AttemptLimiter, trustProxy bool) *SessionHandler {
	return &SessionHandler{sessions: sessions, sync: sync, joinLimiter: joinLimiter, trustProxy: trustProxy}
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	facilitatorID, ok := requireFacilitator(w, r)
	if !ok {
		return
	}

	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessions.Create(r.Context(), facilitatorID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, session)
}

// List handles GET /api/sessions?status=active|closed.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	facilitatorID, ok := requireFacilitator(w, r)
	if !ok {
		return
	}

	status, err := models.ParseSessionStatus(r.URL.Query().Get("status"))
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions, err := h.sessions.List(r.Context(), facilitatorID, status)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, sessions)
}

// History handles GET /api/sessions/history.
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	facilitatorID, ok := requireFacilitator(w, r)
	if !ok {
		return
	}

	sessions, err := h.sessions.History(r.Context(), facilitatorID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, sessions)
}

// ByCode handles GET /api/sessions/by-code?code=.
func (h *SessionHandler) ByCode(w http.ResponseWriter, r *http.Request) {
	if !h.allowAttempt(w, r) {
		return
	}

	view, err := h.sync.GetSessionByCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, view)
}

// Join handles POST /api/sessions/join.
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	if !h.allowAttempt(w, r) {
		return
	}

	var req models.JoinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.sessions.Join(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, result)
}

// Detail handles GET /api/sessions/{id}.
func (h *SessionHandler) Detail(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.sync.GetSessionDetail(r.Context(), sessionID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, detail)
}

// Participants handles GET /api/sessions/{id}/participants.
func (h *SessionHandler) Participants(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	participants, err := h.sync.GetParticipants(r.Context(), sessionID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, participants)
}

// End handles PUT /api/sessions/{id}/end.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	facilitatorID, ok := requireFacilitator(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	session, err := h.sessions.End(r.Context(), facilitatorID, sessionID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, session)
}

func (h *SessionHandler) allowAttempt(w http.ResponseWriter, r *http.Request) bool {
	if h.joinLimiter == nil {
		return true
	}

	ip := ratelimit.ExtractIP(r, h.trustProxy)
	if h.joinLimiter.Allow(ip) {
		return true
	}

	retry := h.joinLimiter.RetryAfterSeconds(ip)
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
		"too many attempts, try again in "+ratelimit.FormatRetryMessage(retry))
	return false
}
