package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/akinalp/emocircle/database"
	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/repository"
	"github.com/akinalp/emocircle/ws"
)

// codeAlphabet is the join code character set; codes are upper-case only.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxCodeAttempts bounds retries when a generated code is taken.
const maxCodeAttempts = 10

// CodeGenerator returns a random join code of length n.
type CodeGenerator func(n int) (string, error)

// RandomCode draws n characters of codeAlphabet from crypto/rand.
func RandomCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate session code: %w", err)
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// SessionService manages the session lifecycle: creation, joining, ending
// and code lookup.
type SessionService interface {
	Create(ctx context.Context, facilitatorID string, req *models.CreateSessionRequest) (*models.Session, error)
	// List returns the facilitator's sessions newest first; an empty status
	// returns all of them.
	List(ctx context.Context, facilitatorID string, status models.SessionStatus) ([]models.SessionSummary, error)
	// History returns Closed sessions with their final emotion summary.
	History(ctx context.Context, facilitatorID string) ([]models.SessionSummary, error)
	// FindByCode resolves an Active session, ignoring case.
	FindByCode(ctx context.Context, code string) (*models.Session, error)
	// End closes an Active session owned by facilitatorID.
	End(ctx context.Context, facilitatorID string, sessionID int64) (*models.Session, error)
	Join(ctx context.Context, req *models.JoinSessionRequest) (*models.JoinResult, error)
}

// SessionOptions carries the lifecycle choices from configuration.
type SessionOptions struct {
	CodeLength int
	// CodeReuse lets a Closed session's code be issued again. When false,
	// codes are unique across all sessions ever created.
	CodeReuse           bool
	IncludeZeroEmotions bool
	// GenerateCode defaults to RandomCode.
	GenerateCode CodeGenerator
}

type sessionService struct {
	db    *sql.DB
	repos *repository.Repos
	feed  *ChangeFeed
	opts  SessionOptions
	now   func() time.Time
}

// NewSessionService builds the service. db opens the join transaction.
func NewSessionService(db *sql.DB, repos *repository.Repos, feed *ChangeFeed, opts SessionOptions) SessionService {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 6
	}
	if opts.GenerateCode == nil {
		opts.GenerateCode = RandomCode
	}
	return &sessionService{
		db:    db,
		repos: repos,
		feed:  feed,
		opts:  opts,
		now:   utcNow,
	}
}

// Create draws codes until one is free. The repository checks uniqueness in
// the insert itself, so two concurrent creates never share a code.
func (s *sessionService) Create(ctx context.Context, facilitatorID string, req *models.CreateSessionRequest) (*models.Session, error) {
	if strings.TrimSpace(facilitatorID) == "" {
		return nil, fmt.Errorf("%w: facilitator id is required", pkg.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.opts.GenerateCode(s.opts.CodeLength)
		if err != nil {
			return nil, err
		}

		session := &models.Session{
			FacilitatorID: facilitatorID,
			Name:          req.Name,
			Code:          code,
			CreatedAt:     s.now(),
		}

		err = s.repos.Sessions.Create(ctx, session, !s.opts.CodeReuse)
		if errors.Is(err, pkg.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.feed.Committed(session.ID, metrics.EventSessionCreated, nil)
		return session, nil
	}

	return nil, fmt.Errorf("failed to allocate a free session code after %d attempts", maxCodeAttempts)
}

func (s *sessionService) List(ctx context.Context, facilitatorID string, status models.SessionStatus) ([]models.SessionSummary, error) {
	sessions, err := s.repos.Sessions.ListByFacilitator(ctx, facilitatorID, status)
	if err != nil {
		return nil, err
	}

	if sessions == nil {
		sessions = []models.SessionSummary{}
	}
	for i := range sessions {
		decorateSummary(&sessions[i])
	}
	return sessions, nil
}

func (s *sessionService) History(ctx context.Context, facilitatorID string) ([]models.SessionSummary, error) {
	sessions, err := s.List(ctx, facilitatorID, models.SessionClosed)
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		participants, err := s.repos.Participants.ListBySession(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Emotions = SummarizeEmotions(participants, s.opts.IncludeZeroEmotions)
	}
	return sessions, nil
}

func (s *sessionService) FindByCode(ctx context.Context, code string) (*models.Session, error) {
	code = models.NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: session code is required", pkg.ErrValidation)
	}

	session, err := s.repos.Sessions.GetActiveByCode(ctx, code)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid session code", pkg.ErrNotFound)
	}
	return session, err
}

func (s *sessionService) End(ctx context.Context, facilitatorID string, sessionID int64) (*models.Session, error) {
	current, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.FacilitatorID != facilitatorID {
		return nil, fmt.Errorf("%w: session belongs to another facilitator", pkg.ErrForbidden)
	}

	// End only matches an Active row, so a concurrent second end fails here.
	ended, err := s.repos.Sessions.End(ctx, sessionID, s.now())
	if err != nil {
		return nil, err
	}

	s.feed.Closed(sessionID, ws.Event{Op: ws.OpSessionEnd, Data: ended})
	return ended, nil
}

func (s *sessionService) Join(ctx context.Context, req *models.JoinSessionRequest) (*models.JoinResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}

	session, err := s.FindByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	participant := &models.Participant{
		SessionID:        session.ID,
		Name:             req.Name,
		Emotion:          models.DefaultEmotion.Emoji,
		EmotionLabel:     models.DefaultEmotion.Label,
		EmotionUpdatedAt: now,
		JoinedAt:         now,
	}

	// Create re-checks Active in the insert. A session closed after the lookup
	// above makes it fail with InvalidState, which is reported as the same
	// NotFound a closed session's code gets, never as a late join. The roster
	// is read in the same transaction so it always contains the new participant.
	var participants []models.Participant
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repos := repository.NewSQLiteRepos(tx)
		if err := repos.Participants.Create(ctx, participant); err != nil {
			return err
		}
		list, err := repos.Participants.ListBySession(ctx, session.ID)
		if err != nil {
			return err
		}
		participants = list
		return nil
	})
	if errors.Is(err, pkg.ErrInvalidState) {
		return nil, fmt.Errorf("%w: invalid session code", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.feed.Committed(session.ID, metrics.EventJoin, &ws.Event{
		Op: ws.OpParticipantJoin,
		Data: ws.ParticipantEventData{
			Participant: *participant,
			Emotions:    SummarizeEmotions(participants, s.opts.IncludeZeroEmotions),
		},
	})

	return &models.JoinResult{
		SessionID:    session.ID,
		Participant:  *participant,
		Participants: participants,
	}, nil
}

// decorateSummary fills the display fields of a list row.
func decorateSummary(sum *models.SessionSummary) {
	local := sum.CreatedAt.Local()
	sum.Date = local.Format("02/01/2006")
	sum.Time = local.Format("15:04:05")
	sum.Age = humanize.Time(sum.CreatedAt)
}
