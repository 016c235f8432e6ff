// Package main: service layer wiring.
//
// initServices builds every service from the repositories. The change feed
// is shared: every write service bumps session versions and publishes through
// it, and the sync service reads those versions for its cache.
package main

import (
	"database/sql"
	"fmt"

	"github.com/akinalp/emocircle/config"
	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/pkg/ratelimit"
	"github.com/akinalp/emocircle/repository"
	"github.com/akinalp/emocircle/services"
	"github.com/akinalp/emocircle/ws"
)

// Services holds every service instance.
type Services struct {
	Identity services.IdentityService
	Session  services.SessionService
	Message  services.MessageService
	Emotion  services.EmotionService
	Sync     services.SyncService
}

// RateLimiters holds every rate limiter instance.
type RateLimiters struct {
	Join    *ratelimit.AttemptLimiter
	Message *ratelimit.MessageRateLimiter
}

// Stop ends the limiters' cleanup goroutines.
func (l *RateLimiters) Stop() {
	l.Join.Stop()
	l.Message.Stop()
}

func initServices(db *sql.DB, hub ws.EventPublisher, m *metrics.Metrics, cfg *config.Config) (*Services, *RateLimiters, error) {
	policy, err := services.ParseSenderPolicy(cfg.Session.SenderPolicy)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid sender policy: %w", err)
	}

	repos := repository.NewSQLiteRepos(db)
	feed := services.NewChangeFeed(hub, m)

	sessionService := services.NewSessionService(db, repos, feed, services.SessionOptions{
		CodeLength:          cfg.Session.CodeLength,
		CodeReuse:           cfg.Session.CodeReuse,
		IncludeZeroEmotions: cfg.Session.IncludeZeroEmotions,
	})

	svcs := &Services{
		Identity: services.NewIdentityService(cfg.Auth.Secret, cfg.Auth.TokenExpiry),
		Session:  sessionService,
		Message:  services.NewMessageService(repos, feed, policy),
		Emotion:  services.NewEmotionService(repos, feed, cfg.Session.IncludeZeroEmotions),
		Sync:     services.NewSyncService(db, repos, sessionService, feed, m, cfg.Session.IncludeZeroEmotions),
	}

	limiters := &RateLimiters{
		Join:    ratelimit.NewAttemptLimiter(cfg.RateLimit.JoinAttempts, cfg.RateLimit.JoinWindow),
		Message: ratelimit.NewMessageRateLimiter(cfg.RateLimit.Messages, cfg.RateLimit.Window, cfg.RateLimit.Cooldown),
	}

	return svcs, limiters, nil
}
