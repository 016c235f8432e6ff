package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", JSONContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

func TestClientSendsTokenAndDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sessions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req models.CreateSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Retro", req.Name)

		writeData(w, http.StatusCreated, models.Session{ID: 3, Name: req.Name, Code: "ABC123", Status: models.SessionActive})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithToken("tok"))
	s, err := c.CreateSession(context.Background(), "Retro")
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.ID)
	assert.Equal(t, "ABC123", s.Code)
	assert.True(t, s.IsActive())
}

func TestListSessionsStatusQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "closed", r.URL.Query().Get("status"))
		writeData(w, http.StatusOK, []models.SessionSummary{{Session: models.Session{ID: 1}}})
	}))
	defer srv.Close()

	list, err := New(srv.URL).ListSessions(context.Background(), models.SessionClosed)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAPIErrorsMapToDomainErrors(t *testing.T) {
	cases := []struct {
		status    int
		sentinel  error
		transient bool
	}{
		{http.StatusBadRequest, pkg.ErrValidation, false},
		{http.StatusNotFound, pkg.ErrNotFound, false},
		{http.StatusConflict, pkg.ErrInvalidState, false},
		{http.StatusUnauthorized, pkg.ErrUnauthorized, false},
		{http.StatusTooManyRequests, pkg.ErrRateLimited, false},
		{http.StatusServiceUnavailable, pkg.ErrInternal, true},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeFailure(w, tc.status, "nope")
			}))
			defer srv.Close()

			_, err := New(srv.URL).SessionDetail(context.Background(), 1)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, "nope", apiErr.Message)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Equal(t, tc.transient, IsTransient(err))
		})
	}
}

func TestTransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Participants(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.Canceled))
}

// fakeSession serves the detail and participants endpoints of session 1 from
// a scripted sequence of statuses; 0 means "fail with 500".
type fakeSession struct {
	mu       sync.Mutex
	statuses []models.SessionStatus
	polls    int
	posts    atomic.Int32
}

func (f *fakeSession) next() models.SessionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.polls++
	return f.statuses[i]
}

func (f *fakeSession) current() models.SessionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[len(f.statuses)-1]
}

func (f *fakeSession) handler() http.Handler {
	mux := http.NewServeMux()
	participants := []models.Participant{{ID: 5, SessionID: 1, Name: "Ana", Emotion: "😊", EmotionLabel: "Happy"}}

	mux.HandleFunc("GET /api/sessions/1", func(w http.ResponseWriter, r *http.Request) {
		status := f.next()
		if status == "" {
			writeFailure(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeData(w, http.StatusOK, models.SessionDetail{
			Session:      models.Session{ID: 1, Status: status},
			Participants: participants,
		})
	})
	mux.HandleFunc("GET /api/sessions/1/participants", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, participants)
	})
	mux.HandleFunc("POST /api/sessions/join", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusCreated, models.JoinResult{SessionID: 1, Participant: participants[0], Participants: participants})
	})
	mux.HandleFunc("POST /api/sessions/1/messages", func(w http.ResponseWriter, r *http.Request) {
		f.posts.Add(1)
		if f.current() != models.SessionActive {
			writeFailure(w, http.StatusConflict, "invalid state: session is closed")
			return
		}
		writeData(w, http.StatusCreated, models.Message{ID: 1, SessionID: 1, Content: "hi"})
	})
	return mux
}

func TestWatcherKeepsStaleStateAndFiresClosedOnce(t *testing.T) {
	fake := &fakeSession{statuses: []models.SessionStatus{models.SessionActive, "", models.SessionClosed}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	w := NewFacilitatorWatcher(New(srv.URL), 1, time.Millisecond, nil)
	var closedCalls atomic.Int32
	w.OnClosed = func(s models.Session) {
		closedCalls.Add(1)
		assert.Equal(t, models.SessionClosed, s.Status)
	}
	ctx := context.Background()

	snap, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Stale)
	assert.Len(t, snap.Participants, 1)

	snap, err = w.Poll(ctx)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.True(t, snap.Stale)
	require.NotNil(t, snap.Detail)
	assert.Equal(t, models.SessionActive, snap.Detail.Session.Status)

	latest, ok := w.Latest()
	require.True(t, ok)
	assert.False(t, latest.Stale)

	_, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, w.Closed())

	// Closed stays the last state; Run returns after one more poll.
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, int32(1), closedCalls.Load())
}

func TestWatcherRunSurvivesTransientErrors(t *testing.T) {
	fake := &fakeSession{statuses: []models.SessionStatus{"", "", models.SessionActive, models.SessionClosed}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	w := NewFacilitatorWatcher(New(srv.URL), 1, time.Millisecond, nil)
	var updates atomic.Int32
	w.OnUpdate = func(Snapshot) { updates.Add(1) }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, w.Run(ctx))
	assert.True(t, w.Closed())
	// Failures before the first success have nothing to report.
	assert.Equal(t, int32(2), updates.Load())
}

func TestWatcherRunStopsOnUnknownSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "not found: session 9")
	}))
	defer srv.Close()

	w := NewFacilitatorWatcher(New(srv.URL), 9, time.Millisecond, nil)
	err := w.Run(context.Background())
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestMemberSessionRefusesWritesOnceClosed(t *testing.T) {
	fake := &fakeSession{statuses: []models.SessionStatus{models.SessionActive}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	ctx := context.Background()
	m, err := JoinSession(ctx, New(srv.URL), "abc123", "Ana")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.SessionID())
	assert.Equal(t, int64(5), m.Participant().ID)
	assert.False(t, m.Closed())

	view, err := m.Post(ctx, "hi")
	require.NoError(t, err)
	assert.True(t, view.Session.IsActive())

	// The facilitator ends the session between two member actions.
	fake.mu.Lock()
	fake.statuses = []models.SessionStatus{models.SessionClosed}
	fake.mu.Unlock()

	_, err = m.Post(ctx, "late")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, err, pkg.ErrInvalidState)
	assert.True(t, m.Closed())
	assert.Equal(t, int32(2), fake.posts.Load())

	_, err = m.Post(ctx, "later")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, int32(2), fake.posts.Load(), "no request after the session is known closed")
}
