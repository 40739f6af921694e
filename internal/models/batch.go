package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raveone/lms-api/pkg/calendar"
)

// BatchType distinguishes weekday and weekend cohorts.
type BatchType string

const (
	BatchTypeWeekday BatchType = "weekday"
	BatchTypeWeekend BatchType = "weekend"
)

// BatchWindows stores the dated term/break windows of a batch as JSONB.
type BatchWindows []calendar.Window

// Value marshals windows to JSON for persistence.
func (w BatchWindows) Value() (driver.Value, error) {
	if w == nil {
		w = BatchWindows{}
	}
	data, err := json.Marshal([]calendar.Window(w))
	if err != nil {
		return nil, fmt.Errorf("marshal batch windows: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the windows slice.
func (w *BatchWindows) Scan(value interface{}) error {
	if value == nil {
		*w = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for BatchWindows", value)
	}
	if len(data) == 0 {
		*w = nil
		return nil
	}
	var out []calendar.Window
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal batch windows: %w", err)
	}
	*w = out
	return nil
}

// Batch is a cohort starting a program on a common date.
type Batch struct {
	ID          string       `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Type        BatchType    `db:"type" json:"type"`
	ProgramID   string       `db:"program_id" json:"program_id"`
	StartDate   time.Time    `db:"start_date" json:"start_date"`
	EndDate     time.Time    `db:"end_date" json:"end_date"`
	MaxStudents int          `db:"max_students" json:"max_students"`
	Windows     BatchWindows `db:"windows" json:"windows"`
	Status      string       `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// CreateBatchRequest opens a new cohort.
type CreateBatchRequest struct {
	Name        string    `json:"name" validate:"required,max=120"`
	Type        BatchType `json:"type" validate:"required,oneof=weekday weekend"`
	ProgramID   string    `json:"program_id" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	MaxStudents int       `json:"max_students" validate:"min=0"`
}
