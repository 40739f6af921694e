package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/raveone/lms-api/internal/models"
)

const enrollmentColumns = `id, student_id, program_id, batch_id, enrollment_date, current_term, current_week, status, last_accessed, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByStudentAndProgram returns the student's enrollment in a program.
func (r *EnrollmentRepository) FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND program_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, programID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FirstByStudent returns the student's oldest enrollment.
func (r *EnrollmentRepository) FirstByStudent(ctx context.Context, studentID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 ORDER BY created_at ASC, id ASC LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns every enrollment of a student, oldest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 ORDER BY created_at ASC, id ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByProgram returns all enrollments in a program.
func (r *EnrollmentRepository) ListByProgram(ctx context.Context, programID string) ([]models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE program_id = $1 ORDER BY student_id ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, programID); err != nil {
		return nil, fmt.Errorf("list program enrollments: %w", err)
	}
	return enrollments, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = NewID("ENR")
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, student_id, program_id, batch_id, enrollment_date, current_term, current_week, status, last_accessed, created_at, updated_at)
        VALUES (:id, :student_id, :program_id, :batch_id, :enrollment_date, :current_term, :current_week, :status, :last_accessed, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdatePosition overwrites the cached term/week and status.
func (r *EnrollmentRepository) UpdatePosition(ctx context.Context, id string, term, week int, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET current_term = $2, current_week = $3, status = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, term, week, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment position: %w", err)
	}
	return nil
}
