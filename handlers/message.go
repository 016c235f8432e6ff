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

// MessageHandler serves messages and replies.
type MessageHandler struct {
	messages   services.MessageService
	limiter    *ratelimit.MessageRateLimiter
	trustProxy bool
}

// NewMessageHandler builds the handler; a nil limiter disables throttling.
func NewMessageHandler(messages services.MessageService, limiter *ratelimit.MessageRateLimiter, trustProxy bool) *MessageHandler {
	return &MessageHandler{messages: messages, limiter: limiter, trustProxy: trustProxy}
}

// List handles GET /api/sessions/{id}/messages.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	messages, err := h.messages.List(r.Context(), sessionID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, messages)
}

// Create handles POST /api/sessions/{id}/messages.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !h.allow(w, r) {
		return
	}

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.messages.Post(r.Context(), sessionID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, msg)
}

// Reply handles POST /api/messages/{id}/replies.
func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !h.allow(w, r) {
		return
	}

	var req models.CreateReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.messages.Reply(r.Context(), messageID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, reply)
}

// allow applies the per-client spam limit shared by posts and replies.
func (h *MessageHandler) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}

	key := ratelimit.ExtractIP(r, h.trustProxy)
	if h.limiter.Allow(key) {
		return true
	}

	cooldown := h.limiter.CooldownSeconds(key)
	w.Header().Set("Retry-After", strconv.Itoa(cooldown))
	pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
		"too many messages, try again in "+ratelimit.FormatRetryMessage(cooldown))
	return false
}
