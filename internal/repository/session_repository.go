package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/raveone/lms-api/internal/models"
)

const sessionColumns = `id, batch_id, title, session_date, start_time, end_time, meeting_url, created_at`

// SessionRepository persists live batch sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = NewID("SESS")
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO batch_sessions (` + sessionColumns + `)
VALUES (:id, :batch_id, :title, :session_date, :start_time, :end_time, :meeting_url, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// ListByBatchAndDate returns the sessions of a batch on one calendar day ordered by start time.
func (r *SessionRepository) ListByBatchAndDate(ctx context.Context, batchID string, day time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM batch_sessions
WHERE batch_id = $1 AND session_date = $2
ORDER BY start_time`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, batchID, day.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
