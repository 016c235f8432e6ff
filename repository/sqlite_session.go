package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/emocircle/database"
	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
)

type sqliteSessionRepo struct {
	db database.TxQuerier
}

// NewSQLiteSessionRepo returns a SessionRepository over a pool or a transaction.
func NewSQLiteSessionRepo(db database.TxQuerier) SessionRepository {
	return &sqliteSessionRepo{db: db}
}

const sessionColumns = `id, facilitator_id, name, code, status, created_at, ended_at`

func (r *sqliteSessionRepo) Create(ctx context.Context, s *models.Session, globalUnique bool) error {
	s.Code = models.NormalizeCode(s.Code)
	s.Status = models.SessionActive

	// The partial unique index guards Active codes; the NOT EXISTS guard adds
	// global uniqueness in the same statement when codes must never repeat.
	query := `
		INSERT INTO sessions (facilitator_id, name, code, status, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE NOT ? OR NOT EXISTS (SELECT 1 FROM sessions WHERE code = ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		s.FacilitatorID, s.Name, s.Code, s.Status, s.CreatedAt,
		globalUnique, s.Code,
	).Scan(&s.ID)

	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return fmt.Errorf("%w: session code %s is taken", pkg.ErrAlreadyExists, s.Code)
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sqliteSessionRepo) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}
	return s, nil
}

func (r *sqliteSessionRepo) GetActiveByCode(ctx context.Context, code string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE code = ? AND status = 'Active'`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, models.NormalizeCode(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by code: %w", err)
	}
	return s, nil
}

func (r *sqliteSessionRepo) ListByFacilitator(ctx context.Context, facilitatorID string, status models.SessionStatus) ([]models.SessionSummary, error) {
	query := `
		SELECT s.id, s.facilitator_id, s.name, s.code, s.status, s.created_at, s.ended_at,
		       (SELECT COUNT(*) FROM participants p WHERE p.session_id = s.id),
		       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
		FROM sessions s
		WHERE s.facilitator_id = ? AND (? = '' OR s.status = ?)
		ORDER BY s.created_at DESC, s.id DESC`

	rows, err := r.db.QueryContext(ctx, query, facilitatorID, status, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		if err := rows.Scan(
			&sum.ID, &sum.FacilitatorID, &sum.Name, &sum.Code, &sum.Status, &sum.CreatedAt, &sum.EndedAt,
			&sum.ParticipantCount, &sum.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

func (r *sqliteSessionRepo) End(ctx context.Context, id int64, endedAt time.Time) (*models.Session, error) {
	query := `
		UPDATE sessions SET status = 'Closed', ended_at = ?
		WHERE id = ? AND status = 'Active'
		RETURNING ` + sessionColumns

	s, err := scanSession(r.db.QueryRowContext(ctx, query, endedAt, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sessionWriteRejected(ctx, r.db, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	s := &models.Session{}
	if err := row.Scan(&s.ID, &s.FacilitatorID, &s.Name, &s.Code, &s.Status, &s.CreatedAt, &s.EndedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// sessionWriteRejected explains why a write guarded by "status = 'Active'"
// touched no row: the session is missing or it is Closed.
func sessionWriteRejected(ctx context.Context, db database.TxQuerier, sessionID int64) error {
	var status models.SessionStatus
	err := db.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, sessionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: session %d", pkg.ErrNotFound, sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to check session status: %w", err)
	}
	if status != models.SessionActive {
		return fmt.Errorf("%w: session %d is closed", pkg.ErrInvalidState, sessionID)
	}
	// Active again means the guarded row itself was missing.
	return pkg.ErrNotFound
}

// isUniqueViolation reports a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
