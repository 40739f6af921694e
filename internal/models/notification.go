package models

import "time"

// NotificationEvent names the message delivered to a user.
type NotificationEvent string

const (
	EventAssignmentSubmitted NotificationEvent = "assignment_submitted"
	EventAssignmentGraded    NotificationEvent = "assignment_graded"
	EventExamBooked          NotificationEvent = "exam_booked"
	EventExamCancelled       NotificationEvent = "exam_cancelled"
	EventExamScoreRecorded   NotificationEvent = "exam_score_recorded"
)

// Notification is the message published for a user.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Event     NotificationEvent      `json:"event"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
