package repository

import (
	"context"
	"time"

	"github.com/akinalp/emocircle/models"
)

// SessionRepository persists sessions.
//
// Create and End are single conditional statements so the uniqueness and
// status checks cannot race a concurrent writer.
type SessionRepository interface {
	// Create inserts s with a fresh id. It fails with pkg.ErrAlreadyExists when
	// the code is taken: among Active sessions, or by any session when
	// globalUnique is set.
	Create(ctx context.Context, s *models.Session, globalUnique bool) error
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	// GetActiveByCode matches code case-insensitively against Active sessions.
	GetActiveByCode(ctx context.Context, code string) (*models.Session, error)
	// ListByFacilitator returns the facilitator's sessions newest first,
	// filtered by status unless status is empty.
	ListByFacilitator(ctx context.Context, facilitatorID string, status models.SessionStatus) ([]models.SessionSummary, error)
	// End moves an Active session to Closed. pkg.ErrInvalidState if it is
	// already Closed, pkg.ErrNotFound if it does not exist.
	End(ctx context.Context, id int64, endedAt time.Time) (*models.Session, error)
}
