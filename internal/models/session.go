package models

import "time"

// SessionClockLayout is the wall-clock format of session start and end times.
const SessionClockLayout = "15:04"

// Session is a scheduled live class of a batch.
type Session struct {
	ID          string    `db:"id" json:"id"`
	BatchID     string    `db:"batch_id" json:"batch_id"`
	Title       string    `db:"title" json:"title"`
	SessionDate time.Time `db:"session_date" json:"session_date"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	MeetingURL  string    `db:"meeting_url" json:"meeting_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SessionView is a session annotated for the student dashboard.
type SessionView struct {
	Session
	IsLive  bool `json:"is_live"`
	CanJoin bool `json:"can_join"`
}

// CreateSessionRequest schedules a live class for a batch.
type CreateSessionRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	SessionDate time.Time `json:"session_date" validate:"required"`
	StartTime   string    `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string    `json:"end_time" validate:"required,datetime=15:04"`
	MeetingURL  string    `json:"meeting_url" validate:"omitempty,url"`
}
