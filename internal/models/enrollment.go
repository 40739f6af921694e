package models

import (
	"time"

	"github.com/raveone/lms-api/pkg/calendar"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment places a student in a program. EnrollmentDate is immutable;
// CurrentTerm and CurrentWeek are a cache of the calendar position.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ProgramID      string           `db:"program_id" json:"program_id"`
	BatchID        *string          `db:"batch_id" json:"batch_id,omitempty"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	CurrentTerm    int              `db:"current_term" json:"current_term"`
	CurrentWeek    int              `db:"current_week" json:"current_week"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	LastAccessed   *time.Time       `db:"last_accessed" json:"last_accessed,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// CachedPosition returns the stored term/week as a calendar position.
func (e Enrollment) CachedPosition() calendar.Position {
	return calendar.Position{
		Term:      e.CurrentTerm,
		Week:      e.CurrentWeek,
		Completed: e.Status == EnrollmentStatusCompleted,
	}
}

// CreateEnrollmentRequest enrolls a student into a program.
type CreateEnrollmentRequest struct {
	StudentID      string     `json:"student_id" validate:"required"`
	ProgramID      string     `json:"program_id" validate:"required"`
	BatchID        *string    `json:"batch_id,omitempty"`
	EnrollmentDate *time.Time `json:"enrollment_date,omitempty"`
}
