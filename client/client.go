// Package client is a Go client for the emocircle HTTP API, plus the two
// polling loops the browser screens run: the facilitator's blind poll and the
// member's refetch-after-write session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
)

const (
	JSONContentType = "application/json"

	defaultTimeout = 10 * time.Second
)

// APIError is a non-2xx response. It unwraps to the matching domain
// sentinel, so errors.Is(err, pkg.ErrNotFound) works on the client side too.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return pkg.ErrValidation
	case http.StatusNotFound:
		return pkg.ErrNotFound
	case http.StatusConflict:
		return pkg.ErrInvalidState
	case http.StatusUnauthorized:
		return pkg.ErrUnauthorized
	case http.StatusForbidden:
		return pkg.ErrForbidden
	case http.StatusTooManyRequests:
		return pkg.ErrRateLimited
	}
	if e.Status >= http.StatusInternalServerError {
		return pkg.ErrInternal
	}
	return nil
}

// IsTransient reports whether a retry on the next poll cycle may succeed:
// transport failures and 5xx responses. Cancellation is not transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}

// Client calls the API at a base URL such as "http://localhost:5000".
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the facilitator bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends one request and decodes the envelope's data into out (nil skips it).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", JSONContentType)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", JSONContentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if res.StatusCode >= 300 {
			return &APIError{Status: res.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if res.StatusCode >= 300 || !env.Success {
		return &APIError{Status: res.StatusCode, Message: env.Error}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func sessionPath(sessionID int64, suffix string) string {
	return "/api/sessions/" + strconv.FormatInt(sessionID, 10) + suffix
}

// Health is the /api/health body.
type Health struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	PollIntervalMS int64  `json:"poll_interval_ms"`
}

// PollInterval is the cadence the server advertises, or 0 when unset.
func (h *Health) PollInterval() time.Duration {
	return time.Duration(h.PollIntervalMS) * time.Millisecond
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateSession starts a session owned by the token's facilitator.
func (c *Client) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", models.CreateSessionRequest{Name: name}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions lists the facilitator's sessions; an empty status lists all.
func (c *Client) ListSessions(ctx context.Context, status models.SessionStatus) ([]models.SessionSummary, error) {
	path := "/api/sessions"
	if status != "" {
		path += "?status=" + url.QueryEscape(strings.ToLower(string(status)))
	}
	var out []models.SessionSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History lists the facilitator's closed sessions with their final emotions.
func (c *Client) History(ctx context.Context) ([]models.SessionSummary, error) {
	var out []models.SessionSummary
	if err := c.do(ctx, http.MethodGet, "/api/sessions/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SessionByCode(ctx context.Context, code string) (*models.SessionJoinView, error) {
	var v models.SessionJoinView
	if err := c.do(ctx, http.MethodGet, "/api/sessions/by-code?code="+url.QueryEscape(code), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) Join(ctx context.Context, code, name string) (*models.JoinResult, error) {
	var res models.JoinResult
	if err := c.do(ctx, http.MethodPost, "/api/sessions/join", models.JoinSessionRequest{Code: code, Name: name}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SessionDetail(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
	var d models.SessionDetail
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Participants(ctx context.Context, sessionID int64) ([]models.Participant, error) {
	var out []models.Participant
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/participants"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID int64) (*models.Session, error) {
	var s models.Session
	if err := c.do(ctx, http.MethodPut, sessionPath(sessionID, "/end"), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Messages(ctx context.Context, sessionID int64) ([]models.Message, error) {
	var out []models.Message
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/messages"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PostMessage(ctx context.Context, sessionID int64, content string) (*models.Message, error) {
	var m models.Message
	if err := c.do(ctx, http.MethodPost, sessionPath(sessionID, "/messages"), models.CreateMessageRequest{Content: content}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// PostReply answers a message. sender may be nil.
func (c *Client) PostReply(ctx context.Context, messageID int64, content string, sender *string) (*models.Reply, error) {
	path := "/api/messages/" + strconv.FormatInt(messageID, 10) + "/replies"
	var r models.Reply
	if err := c.do(ctx, http.MethodPost, path, models.CreateReplyRequest{Content: content, Sender: sender}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ReportEmotion overwrites a participant's emotion. label may be empty for
// emoji codes the server knows.
func (c *Client) ReportEmotion(ctx context.Context, sessionID, participantID int64, emotion, label string) (*models.Participant, error) {
	path := sessionPath(sessionID, "/participants/"+strconv.FormatInt(participantID, 10)+"/emotion")
	var p models.Participant
	if err := c.do(ctx, http.MethodPut, path, models.ReportEmotionRequest{Emotion: emotion, Label: label}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) EmotionSummary(ctx context.Context, sessionID int64) ([]models.EmotionSummary, error) {
	var out []models.EmotionSummary
	if err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/emotions"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Categories(ctx context.Context) ([]models.EmotionCategory, error) {
	var out []models.EmotionCategory
	if err := c.do(ctx, http.MethodGet, "/api/emotions/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
