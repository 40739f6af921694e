package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded after a committed mutation.
const (
	AuditActionEnroll           = "ENROLL_CREATE"
	AuditActionLessonComplete   = "LESSON_COMPLETE"
	AuditActionAssignmentSubmit = "ASSIGNMENT_SUBMIT"
	AuditActionAssignmentGrade  = "ASSIGNMENT_GRADE"
	AuditActionExamScore        = "EXAM_SCORE_RECORD"
	AuditActionExamBook         = "EXAM_BOOK"
	AuditActionExamCancel       = "EXAM_CANCEL"
	AuditActionExamSlotsCreate  = "EXAM_SLOTS_CREATE"
	AuditActionBatchCreate      = "BATCH_CREATE"
	AuditActionSessionCreate    = "SESSION_CREATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   string          `db:"entity_id" json:"entity_id"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}
