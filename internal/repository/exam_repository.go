package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/raveone/lms-api/internal/models"
)

const examSlotColumns = `id, program_id, batch_id, exam_date, start_time, end_time, max_slots, booked_slots, status, meet_url, proctor_instructions, created_at`

const examBookingColumns = `id, exam_id, student_id, verification_code, status, booked_at, cancelled_at`

// ExamRepository owns exam slots and their bookings.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// CreateSlots inserts a set of slots atomically.
func (r *ExamRepository) CreateSlots(ctx context.Context, slots []models.ExamSlot) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exam slot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO exam_slots (id, program_id, batch_id, exam_date, start_time, end_time, max_slots, booked_slots, status, meet_url, proctor_instructions, created_at)
VALUES (:id, :program_id, :batch_id, :exam_date, :start_time, :end_time, :max_slots, :booked_slots, :status, :meet_url, :proctor_instructions, :created_at)`
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = NewID("EXAM")
		}
		if slots[i].CreatedAt.IsZero() {
			slots[i].CreatedAt = time.Now().UTC()
		}
		if _, err = tx.NamedExecContext(ctx, query, &slots[i]); err != nil {
			return fmt.Errorf("insert exam slot: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit exam slots: %w", err)
	}
	return nil
}

// FindSlot returns a slot by ID.
func (r *ExamRepository) FindSlot(ctx context.Context, id string) (*models.ExamSlot, error) {
	query := `SELECT ` + examSlotColumns + ` FROM exam_slots WHERE id = $1`
	var slot models.ExamSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListSlots returns slots matching the filter in chronological order.
func (r *ExamRepository) ListSlots(ctx context.Context, filter models.ExamSlotFilter) ([]models.ExamSlot, error) {
	var conditions []string
	var args []interface{}
	if filter.ProgramID != "" {
		conditions = append(conditions, fmt.Sprintf("program_id = $%d", len(args)+1))
		args = append(args, filter.ProgramID)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := `SELECT ` + examSlotColumns + ` FROM exam_slots` + clause + ` ORDER BY exam_date ASC, start_time ASC`

	var slots []models.ExamSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list exam slots: %w", err)
	}
	return slots, nil
}

// FindBooking returns a booking by ID.
func (r *ExamRepository) FindBooking(ctx context.Context, id string) (*models.ExamBooking, error) {
	query := `SELECT ` + examBookingColumns + ` FROM exam_bookings WHERE id = $1`
	var booking models.ExamBooking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindActiveBooking returns the confirmed booking of a student for a slot.
func (r *ExamRepository) FindActiveBooking(ctx context.Context, examID, studentID string) (*models.ExamBooking, error) {
	query := `SELECT ` + examBookingColumns + ` FROM exam_bookings WHERE exam_id = $1 AND student_id = $2 AND status = $3`
	var booking models.ExamBooking
	if err := r.db.GetContext(ctx, &booking, query, examID, studentID, models.BookingConfirmed); err != nil {
		return nil, err
	}
	return &booking, nil
}

// CreateBooking increments the slot counter and inserts the booking as one
// unit. The increment is a guarded compare-and-swap: it only applies while
// the slot is AVAILABLE and below capacity, and flips it to FULL on the last
// seat. ErrSlotUnavailable means the guard failed; ErrUniqueViolation means
// the student already holds a confirmed booking.
func (r *ExamRepository) CreateBooking(ctx context.Context, booking *models.ExamBooking) (slot *models.ExamSlot, err error) {
	if booking.ID == "" {
		booking.ID = NewID("BOOK")
	}
	if booking.BookedAt.IsZero() {
		booking.BookedAt = time.Now().UTC()
	}
	booking.Status = models.BookingConfirmed

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	incrementQuery := `UPDATE exam_slots
SET booked_slots = booked_slots + 1,
    status = CASE WHEN booked_slots + 1 >= max_slots THEN $3 ELSE status END
WHERE id = $1 AND status = $2 AND booked_slots < max_slots
RETURNING ` + examSlotColumns
	var updated models.ExamSlot
	if err = tx.GetContext(ctx, &updated, incrementQuery, booking.ExamID, models.ExamSlotAvailable, models.ExamSlotFull); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrSlotUnavailable
			return nil, err
		}
		return nil, fmt.Errorf("increment slot: %w", err)
	}

	const insertQuery = `INSERT INTO exam_bookings (id, exam_id, student_id, verification_code, status, booked_at)
VALUES (:id, :exam_id, :student_id, :verification_code, :status, :booked_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, booking); err != nil {
		if isUniqueViolation(err) {
			err = ErrUniqueViolation
			return nil, err
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return &updated, nil
}

// CancelBooking marks a confirmed booking cancelled and releases its seat,
// flipping a FULL slot back to AVAILABLE. sql.ErrNoRows means the booking
// is missing or already cancelled.
func (r *ExamRepository) CancelBooking(ctx context.Context, bookingID string, at time.Time) (booking *models.ExamBooking, slot *models.ExamSlot, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin cancel transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cancelQuery := `UPDATE exam_bookings SET status = $2, cancelled_at = $3 WHERE id = $1 AND status = $4 RETURNING ` + examBookingColumns
	var cancelled models.ExamBooking
	if err = tx.GetContext(ctx, &cancelled, cancelQuery, bookingID, models.BookingCancelled, at, models.BookingConfirmed); err != nil {
		return nil, nil, err
	}

	releaseQuery := `UPDATE exam_slots
SET booked_slots = booked_slots - 1,
    status = CASE WHEN status = $2 THEN $3 ELSE status END
WHERE id = $1 AND booked_slots > 0
RETURNING ` + examSlotColumns
	var updated models.ExamSlot
	if err = tx.GetContext(ctx, &updated, releaseQuery, cancelled.ExamID, models.ExamSlotFull, models.ExamSlotAvailable); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("release slot %s: counter already zero", cancelled.ExamID)
		}
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit cancel: %w", err)
	}
	return &cancelled, &updated, nil
}
