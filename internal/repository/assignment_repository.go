package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/raveone/lms-api/internal/models"
)

const assignmentColumns = `id, student_id, program_id, course_id, term, week, file_ref, status, score, feedback, graded_by, submitted_at, graded_at`

// AssignmentRepository persists assignment submissions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID returns an assignment by ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindBySlot returns the live assignment for (student, course, term, week).
func (r *AssignmentRepository) FindBySlot(ctx context.Context, studentID, courseID string, term, week int) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE student_id = $1 AND course_id = $2 AND term = $3 AND week = $4`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, studentID, courseID, term, week); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByStudent returns a student's submissions newest first.
func (r *AssignmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE student_id = $1 ORDER BY submitted_at DESC`
	var list []models.Assignment
	if err := r.db.SelectContext(ctx, &list, query, studentID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return list, nil
}

// CountForProgram returns submitted and graded counts of a student in a program.
func (r *AssignmentRepository) CountForProgram(ctx context.Context, studentID, programID string) (submitted, graded int, err error) {
	const query = `SELECT COUNT(*) AS submitted, COUNT(*) FILTER (WHERE status = $3) AS graded
FROM assignments WHERE student_id = $1 AND program_id = $2`
	var counts struct {
		Submitted int `db:"submitted"`
		Graded    int `db:"graded"`
	}
	if err := r.db.GetContext(ctx, &counts, query, studentID, programID, models.AssignmentStatusGraded); err != nil {
		return 0, 0, fmt.Errorf("count assignments: %w", err)
	}
	return counts.Submitted, counts.Graded, nil
}

// Create inserts a first submission.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = NewID("ASSIGN")
	}
	if assignment.SubmittedAt.IsZero() {
		assignment.SubmittedAt = time.Now().UTC()
	}
	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusSubmitted
	}
	const query = `INSERT INTO assignments (id, student_id, program_id, course_id, term, week, file_ref, status, submitted_at)
VALUES (:id, :student_id, :program_id, :course_id, :term, :week, :file_ref, :status, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Resubmit replaces the file of an existing assignment and marks it resubmitted.
func (r *AssignmentRepository) Resubmit(ctx context.Context, id, fileRef string, submittedAt time.Time) (*models.Assignment, error) {
	query := `UPDATE assignments SET file_ref = $2, status = $3, submitted_at = $4 WHERE id = $1 RETURNING ` + assignmentColumns
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id, fileRef, models.AssignmentStatusResubmitted, submittedAt); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Grade marks the assignment graded and appends its ledger entry in one
// transaction. record.StudentID and record.ProgramID are filled from the
// updated row.
func (r *AssignmentRepository) Grade(ctx context.Context, id string, score float64, feedback *string, graderID string, record *models.GradeRecord) (assignment *models.Assignment, err error) {
	if record.ID == "" {
		record.ID = NewID("GRADE")
	}
	if record.GradedAt.IsZero() {
		record.GradedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin grading transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updateQuery := `UPDATE assignments SET status = $2, score = $3, feedback = $4, graded_by = $5, graded_at = $6 WHERE id = $1 RETURNING ` + assignmentColumns
	var updated models.Assignment
	if err = tx.GetContext(ctx, &updated, updateQuery, id, models.AssignmentStatusGraded, score, feedback, graderID, record.GradedAt); err != nil {
		return nil, err
	}

	record.StudentID = updated.StudentID
	record.ProgramID = updated.ProgramID
	record.AssignmentID = &updated.ID
	if _, err = tx.NamedExecContext(ctx, insertGradeRecordQuery, record); err != nil {
		return nil, fmt.Errorf("insert grade record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit grading: %w", err)
	}
	return &updated, nil
}
