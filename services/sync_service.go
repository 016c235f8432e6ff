package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/akinalp/emocircle/database"
	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg/cache"
	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/repository"
)

const (
	detailCacheTTL     = 30 * time.Second
	detailCacheCleanup = time.Minute
)

// SyncService serves the read views polling clients and new subscribers use.
// Every view is side-effect free.
type SyncService interface {
	// GetSessionDetail returns session, participants, messages with nested
	// replies and the emotion summary, read from one snapshot.
	GetSessionDetail(ctx context.Context, sessionID int64) (*models.SessionDetail, error)
	GetParticipants(ctx context.Context, sessionID int64) ([]models.Participant, error)
	// GetSessionByCode is the join-time view of an Active session.
	GetSessionByCode(ctx context.Context, code string) (*models.SessionJoinView, error)
	Close()
}

type cachedDetail struct {
	version int64
	detail  *models.SessionDetail
}

type syncService struct {
	db          *sql.DB
	repos       *repository.Repos
	sessions    SessionService
	feed        *ChangeFeed
	cache       *cache.TTLCache[int64, cachedDetail]
	metrics     *metrics.Metrics
	includeZero bool
}

// NewSyncService builds the service. db opens the snapshot transactions for
// detail reads.
func NewSyncService(
	db *sql.DB,
	repos *repository.Repos,
	sessions SessionService,
	feed *ChangeFeed,
	m *metrics.Metrics,
	includeZero bool,
) SyncService {
	return &syncService{
		db:          db,
		repos:       repos,
		sessions:    sessions,
		feed:        feed,
		cache:       cache.New[int64, cachedDetail](detailCacheTTL, detailCacheCleanup),
		metrics:     m,
		includeZero: includeZero,
	}
}

// GetSessionDetail reuses a cached view only while the session's version is
// unchanged. The version is read before loading, so a write that lands during
// the load leaves the entry already stale.
func (s *syncService) GetSessionDetail(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
	version := s.feed.Version(sessionID)
	if cached, ok := s.cache.Get(sessionID); ok && cached.version == version {
		s.metrics.CacheLookup(true)
		return cached.detail, nil
	}
	s.metrics.CacheLookup(false)

	var detail *models.SessionDetail
	err := database.WithReadTx(ctx, s.db, func(tx *sql.Tx) error {
		repos := repository.NewSQLiteRepos(tx)

		session, err := repos.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		participants, err := repos.Participants.ListBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		messages, err := repos.Messages.ListBySession(ctx, sessionID)
		if err != nil {
			return err
		}

		if participants == nil {
			participants = []models.Participant{}
		}
		if messages == nil {
			messages = []models.Message{}
		}
		detail = &models.SessionDetail{
			Session:      *session,
			Participants: participants,
			Messages:     messages,
			Emotions:     SummarizeEmotions(participants, s.includeZero),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(sessionID, cachedDetail{version: version, detail: detail})
	return detail, nil
}

func (s *syncService) GetParticipants(ctx context.Context, sessionID int64) ([]models.Participant, error) {
	if _, err := s.repos.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	participants, err := s.repos.Participants.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if participants == nil {
		participants = []models.Participant{}
	}
	return participants, nil
}

func (s *syncService) GetSessionByCode(ctx context.Context, code string) (*models.SessionJoinView, error) {
	session, err := s.sessions.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	participants, err := s.GetParticipants(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &models.SessionJoinView{Session: *session, Participants: participants}, nil
}

func (s *syncService) Close() {
	s.cache.Close()
}
