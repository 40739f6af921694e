package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/raveone/lms-api/internal/models"
)

const gradeRecordColumns = `id, student_id, program_id, assignment_id, workbook_grade, weighted_grade, exam_grade, feedback, graded_by, graded_at`

const insertGradeRecordQuery = `INSERT INTO grade_records (id, student_id, program_id, assignment_id, workbook_grade, weighted_grade, exam_grade, feedback, graded_by, graded_at)
VALUES (:id, :student_id, :program_id, :assignment_id, :workbook_grade, :weighted_grade, :exam_grade, :feedback, :graded_by, :graded_at)`

// GradeRepository reads and appends to the grade ledger.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByStudentProgram returns ledger entries oldest first.
func (r *GradeRepository) ListByStudentProgram(ctx context.Context, studentID, programID string) ([]models.GradeRecord, error) {
	query := `SELECT ` + gradeRecordColumns + ` FROM grade_records WHERE student_id = $1 AND program_id = $2 ORDER BY graded_at ASC, id ASC`
	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, programID); err != nil {
		return nil, fmt.Errorf("list grade records: %w", err)
	}
	return records, nil
}

// FindExamScore returns the exam entry of a student in a program.
func (r *GradeRepository) FindExamScore(ctx context.Context, studentID, programID string) (*models.GradeRecord, error) {
	query := `SELECT ` + gradeRecordColumns + ` FROM grade_records WHERE student_id = $1 AND program_id = $2 AND exam_grade IS NOT NULL ORDER BY graded_at ASC LIMIT 1`
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, programID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create appends a ledger entry. A second exam score for the same
// student/program trips the partial unique index.
func (r *GradeRepository) Create(ctx context.Context, record *models.GradeRecord) error {
	if record.ID == "" {
		record.ID = NewID("GRADE")
	}
	if record.GradedAt.IsZero() {
		record.GradedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, insertGradeRecordQuery, record); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create grade record: %w", err)
	}
	return nil
}
