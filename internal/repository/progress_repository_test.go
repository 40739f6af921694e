package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveone/lms-api/internal/models"
)

func TestProgressRepositoryRecord(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProgressRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_progress")).
		WithArgs(sqlmock.AnyArg(), "STU-1", "ENR-1", "LES-1", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET last_accessed = $2")).
		WithArgs("ENR-1", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.Record(context.Background(), &models.Progress{StudentID: "STU-1", EnrollmentID: "ENR-1", LessonID: "LES-1", CompletedAt: fixedNow})
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepositoryRecordRepeat(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProgressRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (enrollment_id, lesson_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET last_accessed")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := repo.Record(context.Background(), &models.Progress{StudentID: "STU-1", EnrollmentID: "ENR-1", LessonID: "LES-1"})
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}
