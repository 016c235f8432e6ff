package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/repository"
	"github.com/akinalp/emocircle/ws"
)

// EmotionService records emotion reports and derives group summaries.
type EmotionService interface {
	// Report overwrites a participant's emotion snapshot.
	Report(ctx context.Context, sessionID, participantID int64, req *models.ReportEmotionRequest) (*models.Participant, error)
	// Summarize derives the session's current summary.
	Summarize(ctx context.Context, sessionID int64) ([]models.EmotionSummary, error)
	Categories() []models.EmotionCategory
}

type emotionService struct {
	repos       *repository.Repos
	feed        *ChangeFeed
	includeZero bool
	now         func() time.Time
}

// NewEmotionService builds the service. includeZero keeps zero-count
// categories in summaries with 0%.
func NewEmotionService(repos *repository.Repos, feed *ChangeFeed, includeZero bool) EmotionService {
	return &emotionService{
		repos:       repos,
		feed:        feed,
		includeZero: includeZero,
		now:         utcNow,
	}
}

func (s *emotionService) Report(ctx context.Context, sessionID, participantID int64, req *models.ReportEmotionRequest) (*models.Participant, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrValidation, err)
	}

	p, err := s.repos.Participants.UpdateEmotion(ctx, sessionID, participantID, req.Emotion, req.Label, s.now())
	if err != nil {
		return nil, err
	}

	var event *ws.Event
	if s.feed.HasSubscribers(sessionID) {
		if participants, err := s.repos.Participants.ListBySession(ctx, sessionID); err == nil {
			event = &ws.Event{Op: ws.OpEmotionUpdate, Data: ws.ParticipantEventData{
				Participant: *p,
				Emotions:    SummarizeEmotions(participants, s.includeZero),
			}}
		}
	}
	s.feed.Committed(sessionID, metrics.EventEmotion, event)

	return p, nil
}

func (s *emotionService) Summarize(ctx context.Context, sessionID int64) ([]models.EmotionSummary, error) {
	if _, err := s.repos.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}

	participants, err := s.repos.Participants.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return SummarizeEmotions(participants, s.includeZero), nil
}

func (s *emotionService) Categories() []models.EmotionCategory {
	out := make([]models.EmotionCategory, len(models.EmotionCategories))
	copy(out, models.EmotionCategories)
	return out
}

// SummarizeEmotions derives the summary from a participant snapshot.
//
// Categories are walked in table order. Each percentage is rounded on its own
// (round half away from zero), so the total may drift from 100. Participants
// whose emotion matches no category count toward the total only. The result
// is empty, never nil, when there are no participants.
func SummarizeEmotions(participants []models.Participant, includeZero bool) []models.EmotionSummary {
	summaries := []models.EmotionSummary{}
	total := len(participants)
	if total == 0 {
		return summaries
	}

	counts := make(map[string]int, len(models.EmotionCategories))
	for _, p := range participants {
		if cat, ok := models.CategoryOf(p.Emotion, p.EmotionLabel); ok {
			counts[cat.Key]++
		}
	}

	for _, cat := range models.EmotionCategories {
		count := counts[cat.Key]
		if count == 0 && !includeZero {
			continue
		}
		summaries = append(summaries, models.EmotionSummary{
			Emotion:    cat.Label,
			Percentage: int(math.Round(100 * float64(count) / float64(total))),
			Count:      count,
			Color:      cat.Color,
			Emoji:      cat.Emoji,
		})
	}
	return summaries
}

func utcNow() time.Time {
	return time.Now().UTC()
}
