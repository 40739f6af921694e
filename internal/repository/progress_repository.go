package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/raveone/lms-api/internal/models"
)

// ProgressRepository stores lesson completions.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Record appends a completion and touches the enrollment's last_accessed in
// one transaction. A repeated completion keeps the first record and reports
// created=false.
func (r *ProgressRepository) Record(ctx context.Context, progress *models.Progress) (created bool, err error) {
	if progress.ID == "" {
		progress.ID = NewID("PROG")
	}
	if progress.CompletedAt.IsZero() {
		progress.CompletedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin progress transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO student_progress (id, student_id, enrollment_id, lesson_id, completed_at)
VALUES ($1, $2, $3, $4, $5) ON CONFLICT (enrollment_id, lesson_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, insertQuery, progress.ID, progress.StudentID, progress.EnrollmentID, progress.LessonID, progress.CompletedAt)
	if err != nil {
		return false, fmt.Errorf("insert progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert progress: %w", err)
	}

	const touchQuery = `UPDATE enrollments SET last_accessed = $2, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, touchQuery, progress.EnrollmentID, progress.CompletedAt); err != nil {
		return false, fmt.Errorf("touch enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit progress: %w", err)
	}
	return affected > 0, nil
}

// Find returns the completion of a lesson within an enrollment.
func (r *ProgressRepository) Find(ctx context.Context, enrollmentID, lessonID string) (*models.Progress, error) {
	const query = `SELECT id, student_id, enrollment_id, lesson_id, completed_at FROM student_progress WHERE enrollment_id = $1 AND lesson_id = $2`
	var progress models.Progress
	if err := r.db.GetContext(ctx, &progress, query, enrollmentID, lessonID); err != nil {
		return nil, err
	}
	return &progress, nil
}

// ListByEnrollment returns all completions of an enrollment.
func (r *ProgressRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Progress, error) {
	const query = `SELECT id, student_id, enrollment_id, lesson_id, completed_at FROM student_progress WHERE enrollment_id = $1 ORDER BY completed_at ASC`
	var list []models.Progress
	if err := r.db.SelectContext(ctx, &list, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return list, nil
}
