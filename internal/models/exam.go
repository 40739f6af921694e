package models

import "time"

// ExamSlotStatus is the booking state of a slot.
type ExamSlotStatus string

const (
	ExamSlotAvailable ExamSlotStatus = "AVAILABLE"
	ExamSlotFull      ExamSlotStatus = "FULL"
	ExamSlotClosed    ExamSlotStatus = "CLOSED"
)

// BookingStatus is the state of an exam booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// ExamSlot is a capacity-bounded exam window. BookedSlots never exceeds MaxSlots.
type ExamSlot struct {
	ID                  string         `db:"id" json:"id"`
	ProgramID           string         `db:"program_id" json:"program_id"`
	BatchID             string         `db:"batch_id" json:"batch_id"`
	ExamDate            time.Time      `db:"exam_date" json:"exam_date"`
	StartTime           string         `db:"start_time" json:"start_time"`
	EndTime             string         `db:"end_time" json:"end_time"`
	MaxSlots            int            `db:"max_slots" json:"max_slots"`
	BookedSlots         int            `db:"booked_slots" json:"booked_slots"`
	Status              ExamSlotStatus `db:"status" json:"status"`
	MeetURL             string         `db:"meet_url" json:"meet_url"`
	ProctorInstructions string         `db:"proctor_instructions" json:"proctor_instructions"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// ExamBooking reserves one seat of a slot for a student.
type ExamBooking struct {
	ID               string        `db:"id" json:"id"`
	ExamID           string        `db:"exam_id" json:"exam_id"`
	StudentID        string        `db:"student_id" json:"student_id"`
	VerificationCode string        `db:"verification_code" json:"verification_code"`
	Status           BookingStatus `db:"status" json:"status"`
	BookedAt         time.Time     `db:"booked_at" json:"booked_at"`
	CancelledAt      *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// BookingResult is returned to the student after a successful booking.
type BookingResult struct {
	BookingID        string    `json:"booking_id"`
	VerificationCode string    `json:"verification_code"`
	ExamID           string    `json:"exam_id"`
	ExamDate         time.Time `json:"exam_date"`
	StartTime        string    `json:"start_time"`
	MeetURL          string    `json:"meet_url"`
}

// SlotWindow is one time range inside a CreateExamSlotsRequest.
type SlotWindow struct {
	StartTime     string `json:"start_time" validate:"required"`
	EndTime       string `json:"end_time" validate:"required"`
	MaxCandidates int    `json:"max_candidates" validate:"required,min=1"`
}

// CreateExamSlotsRequest opens slots for a program batch on one date.
type CreateExamSlotsRequest struct {
	ProgramID string       `json:"program_id" validate:"required"`
	BatchID   string       `json:"batch_id" validate:"required"`
	ExamDate  time.Time    `json:"exam_date" validate:"required"`
	Slots     []SlotWindow `json:"slots" validate:"required,min=1,dive"`
}

// ExamSlotFilter narrows slot listings.
type ExamSlotFilter struct {
	ProgramID string
	BatchID   string
	Status    ExamSlotStatus
}
