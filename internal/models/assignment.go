package models

import "time"

// AssignmentStatus tracks submission and grading state.
type AssignmentStatus string

const (
	AssignmentStatusSubmitted   AssignmentStatus = "SUBMITTED"
	AssignmentStatusResubmitted AssignmentStatus = "RESUBMITTED"
	AssignmentStatusGraded      AssignmentStatus = "GRADED"
)

// Assignment is the single live submission for a (student, course, term, week).
type Assignment struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	ProgramID   string           `db:"program_id" json:"program_id"`
	CourseID    string           `db:"course_id" json:"course_id"`
	Term        int              `db:"term" json:"term"`
	Week        int              `db:"week" json:"week"`
	FileRef     string           `db:"file_ref" json:"file_ref"`
	Status      AssignmentStatus `db:"status" json:"status"`
	Score       *float64         `db:"score" json:"score,omitempty"`
	Feedback    *string          `db:"feedback" json:"feedback,omitempty"`
	GradedBy    *string          `db:"graded_by" json:"graded_by,omitempty"`
	SubmittedAt time.Time        `db:"submitted_at" json:"submitted_at"`
	GradedAt    *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
}

// SubmitAssignmentRequest is the submission payload.
type SubmitAssignmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ProgramID string `json:"program_id,omitempty"`
	CourseID  string `json:"course_id" validate:"required"`
	Term      int    `json:"term" validate:"required,min=1"`
	Week      int    `json:"week" validate:"required,min=1"`
	FileRef   string `json:"file_ref" validate:"required"`
}

// GradeAssignmentRequest scores a submission on a 0-100 scale.
type GradeAssignmentRequest struct {
	Score    float64 `json:"score" validate:"min=0,max=100"`
	Feedback string  `json:"feedback" validate:"max=4000"`
	GraderID string  `json:"-" validate:"required"`
}

// UploadedFile is returned after storing a submission file.
type UploadedFile struct {
	FileRef   string    `json:"file_ref"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}
