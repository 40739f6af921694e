package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() {
		_ = sqlxDB.Close()
	})
	return sqlxDB, mock
}

var uniqueViolation = &pq.Error{Code: pqUniqueViolation, Message: "duplicate key value violates unique constraint"}

var fixedNow = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "program_id", "batch_id", "exam_date", "start_time", "end_time", "max_slots", "booked_slots", "status", "meet_url", "proctor_instructions", "created_at"})
}

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "exam_id", "student_id", "verification_code", "status", "booked_at", "cancelled_at"})
}

func assignmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "program_id", "course_id", "term", "week", "file_ref", "status", "score", "feedback", "graded_by", "submitted_at", "graded_at"})
}
