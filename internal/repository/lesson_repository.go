package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/raveone/lms-api/internal/models"
)

// LessonRepository reads published lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// ListByProgram returns lessons of a program in calendar order.
func (r *LessonRepository) ListByProgram(ctx context.Context, programID string) ([]models.Lesson, error) {
	const query = `SELECT id, program_id, term, week, title, content_ref, created_at FROM lessons WHERE program_id = $1 ORDER BY term ASC, week ASC, id ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, programID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// FindByID returns a lesson by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	const query = `SELECT id, program_id, term, week, title, content_ref, created_at FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}
