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

func TestEnrollmentRepositoryFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "program_id", "batch_id", "enrollment_date", "current_term", "current_week", "status", "last_accessed", "created_at", "updated_at"}).
		AddRow("ENR-1", "STU-1", "PROG-1", nil, fixedNow, 2, 3, models.EnrollmentStatusActive, nil, fixedNow, fixedNow)
	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE id = $1")).
		WithArgs("ENR-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByID(context.Background(), "ENR-1")
	require.NoError(t, err)
	assert.Equal(t, "STU-1", enrollment.StudentID)
	assert.Equal(t, 2, enrollment.CurrentTerm)
	assert.Equal(t, 3, enrollment.CurrentWeek)
	assert.Nil(t, enrollment.BatchID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(uniqueViolation)

	err := repo.Create(context.Background(), &models.Enrollment{StudentID: "STU-1", ProgramID: "PROG-1", EnrollmentDate: fixedNow, CurrentTerm: 1, CurrentWeek: 1})
	assert.ErrorIs(t, err, ErrUniqueViolation)
}

func TestEnrollmentRepositoryCreateAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{StudentID: "STU-1", ProgramID: "PROG-1", EnrollmentDate: fixedNow, CurrentTerm: 1, CurrentWeek: 1}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.Regexp(t, `^ENR-`, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdatePosition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET current_term = $2, current_week = $3, status = $4")).
		WithArgs("ENR-1", 3, 6, models.EnrollmentStatusCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePosition(context.Background(), "ENR-1", 3, 6, models.EnrollmentStatusCompleted))
	require.NoError(t, mock.ExpectationsWereMet())
}
