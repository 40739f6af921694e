package models

import "time"

// GradeRecord is an append-only ledger entry. Assignment grades carry
// WorkbookGrade with its pre-weighted WeightedGrade; exam scores carry ExamGrade.
type GradeRecord struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	ProgramID     string    `db:"program_id" json:"program_id"`
	AssignmentID  *string   `db:"assignment_id" json:"assignment_id,omitempty"`
	WorkbookGrade *float64  `db:"workbook_grade" json:"workbook_grade,omitempty"`
	WeightedGrade *float64  `db:"weighted_grade" json:"weighted_grade,omitempty"`
	ExamGrade     *float64  `db:"exam_grade" json:"exam_grade,omitempty"`
	Feedback      *string   `db:"feedback" json:"feedback,omitempty"`
	GradedBy      string    `db:"graded_by" json:"graded_by"`
	GradedAt      time.Time `db:"graded_at" json:"graded_at"`
}

// FinalGrade is the aggregated result for a student in a program.
type FinalGrade struct {
	StudentID            string    `json:"student_id"`
	ProgramID            string    `json:"program_id"`
	WorkbookAverage      float64   `json:"workbook_average"`
	ExamScore            *float64  `json:"exam_score,omitempty"`
	ExamWeighted         float64   `json:"exam_weighted"`
	FinalGrade           float64   `json:"final_grade"`
	Letter               string    `json:"letter"`
	Passed               bool      `json:"passed"`
	AssignmentsSubmitted int       `json:"assignments_submitted"`
	AssignmentsGraded    int       `json:"assignments_graded"`
	TotalAssignments     int       `json:"total_assignments"`
	ComputedAt           time.Time `json:"computed_at"`
}

// RecordExamScoreRequest stores the single exam score of a student in a program.
type RecordExamScoreRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	ProgramID string  `json:"program_id" validate:"required"`
	Score     float64 `json:"score" validate:"min=0,max=100"`
	GraderID  string  `json:"-" validate:"required"`
}
