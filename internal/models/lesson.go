package models

import "time"

// Lesson is published content positioned at a term/week of a program.
type Lesson struct {
	ID         string    `db:"id" json:"id"`
	ProgramID  string    `db:"program_id" json:"program_id"`
	Term       int       `db:"term" json:"term"`
	Week       int       `db:"week" json:"week"`
	Title      string    `db:"title" json:"title"`
	ContentRef string    `db:"content_ref" json:"content_ref,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AvailableLesson is an eligible lesson with its unlock instant.
type AvailableLesson struct {
	Lesson
	AvailableFrom time.Time `json:"available_from"`
	IsAvailable   bool      `json:"is_available"`
}
