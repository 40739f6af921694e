package models

import (
	"time"

	"github.com/raveone/lms-api/pkg/calendar"
)

// Progress is a write-once lesson completion.
type Progress struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	LessonID     string    `db:"lesson_id" json:"lesson_id"`
	CompletedAt  time.Time `db:"completed_at" json:"completed_at"`
}

// ProgressSummary is the learner dashboard view of an enrollment.
type ProgressSummary struct {
	Enrollment         Enrollment        `json:"enrollment"`
	Position           calendar.Position `json:"position"`
	Lessons            []AvailableLesson `json:"lessons"`
	CompletedLessonIDs []string          `json:"completed_lesson_ids"`
	TotalLessons       int               `json:"total_lessons"`
	CompletedCount     int               `json:"completed_count"`
}
