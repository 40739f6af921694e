package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveone/lms-api/internal/models"
)

func TestAssignmentRepositoryGradeWritesLedgerInTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignmentRepository(db)

	score := 80.0
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assignments SET status = $2, score = $3")).
		WithArgs("ASSIGN-1", models.AssignmentStatusGraded, score, nil, "INS-1", sqlmock.AnyArg()).
		WillReturnRows(assignmentRows().AddRow("ASSIGN-1", "STU-1", "PROG-1", "COURSE-1", 1, 2, "ref", models.AssignmentStatusGraded, score, nil, "INS-1", fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	weighted := 56.0
	record := &models.GradeRecord{WorkbookGrade: &score, WeightedGrade: &weighted, GradedBy: "INS-1"}
	assignment, err := repo.Grade(context.Background(), "ASSIGN-1", score, nil, "INS-1", record)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusGraded, assignment.Status)
	assert.Equal(t, "STU-1", record.StudentID)
	assert.Equal(t, "PROG-1", record.ProgramID)
	require.NotNil(t, record.AssignmentID)
	assert.Equal(t, "ASSIGN-1", *record.AssignmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryGradeMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assignments SET status")).
		WillReturnRows(assignmentRows())
	mock.ExpectRollback()

	_, err := repo.Grade(context.Background(), "nope", 50, nil, "INS-1", &models.GradeRecord{})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryGradeLedgerFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assignments SET status")).
		WillReturnRows(assignmentRows().AddRow("ASSIGN-1", "STU-1", "PROG-1", "COURSE-1", 1, 2, "ref", models.AssignmentStatusGraded, 50.0, nil, "INS-1", fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_records")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Grade(context.Background(), "ASSIGN-1", 50, nil, "INS-1", &models.GradeRecord{})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryResubmit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assignments SET file_ref = $2, status = $3, submitted_at = $4 WHERE id = $1")).
		WithArgs("ASSIGN-1", "ref-2", models.AssignmentStatusResubmitted, fixedNow).
		WillReturnRows(assignmentRows().AddRow("ASSIGN-1", "STU-1", "PROG-1", "COURSE-1", 1, 2, "ref-2", models.AssignmentStatusResubmitted, nil, nil, nil, fixedNow, nil))

	assignment, err := repo.Resubmit(context.Background(), "ASSIGN-1", "ref-2", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "ASSIGN-1", assignment.ID)
	assert.Equal(t, models.AssignmentStatusResubmitted, assignment.Status)
}

func TestAssignmentRepositoryCountForProgram(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE status = $3)")).
		WithArgs("STU-1", "PROG-1", models.AssignmentStatusGraded).
		WillReturnRows(sqlmock.NewRows([]string{"submitted", "graded"}).AddRow(5, 3))

	submitted, graded, err := repo.CountForProgram(context.Background(), "STU-1", "PROG-1")
	require.NoError(t, err)
	assert.Equal(t, 5, submitted)
	assert.Equal(t, 3, graded)
}

func TestAssignmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).WillReturnError(uniqueViolation)

	err := repo.Create(context.Background(), &models.Assignment{StudentID: "STU-1", CourseID: "C", Term: 1, Week: 1, FileRef: "f"})
	assert.ErrorIs(t, err, ErrUniqueViolation)
}
