package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/moby/locker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/internal/repository"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/tracing"
)

type examRepository interface {
	CreateSlots(ctx context.Context, slots []models.ExamSlot) error
	FindSlot(ctx context.Context, id string) (*models.ExamSlot, error)
	ListSlots(ctx context.Context, filter models.ExamSlotFilter) ([]models.ExamSlot, error)
	FindBooking(ctx context.Context, id string) (*models.ExamBooking, error)
	FindActiveBooking(ctx context.Context, examID, studentID string) (*models.ExamBooking, error)
	CreateBooking(ctx context.Context, booking *models.ExamBooking) (*models.ExamSlot, error)
	CancelBooking(ctx context.Context, bookingID string, at time.Time) (*models.ExamBooking, *models.ExamSlot, error)
}

const (
	verificationAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	verificationCodeLength = 6
)

// ExamServiceConfig configures slot defaults.
type ExamServiceConfig struct {
	MeetingURLTemplate  string
	ProctorInstructions string
}

// ExamService coordinates exam slot creation and seat booking. Bookings of
// the same slot are serialised in-process; the repository guard keeps the
// counter consistent across instances.
type ExamService struct {
	repo      examRepository
	cfg       ExamServiceConfig
	locks     *locker.Locker
	notifier  *NotificationService
	audit     *AuditService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	codes     func() (string, error)
}

// NewExamService constructs ExamService.
func NewExamService(repo examRepository, cfg ExamServiceConfig, notifier *NotificationService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{
		repo:      repo,
		cfg:       cfg,
		locks:     locker.New(),
		notifier:  notifier,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		codes:     verificationCode,
	}
}

// CreateSlots opens AVAILABLE slots on one exam date.
func (s *ExamService) CreateSlots(ctx context.Context, req models.CreateExamSlotsRequest, actorID string) ([]models.ExamSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	slots := make([]models.ExamSlot, 0, len(req.Slots))
	for _, w := range req.Slots {
		slots = append(slots, models.ExamSlot{
			ID:                  repository.NewID("EXAM"),
			ProgramID:           req.ProgramID,
			BatchID:             req.BatchID,
			ExamDate:            req.ExamDate,
			StartTime:           w.StartTime,
			EndTime:             w.EndTime,
			MaxSlots:            w.MaxCandidates,
			Status:              models.ExamSlotAvailable,
			ProctorInstructions: s.cfg.ProctorInstructions,
		})
	}
	for i := range slots {
		slots[i].MeetURL = s.meetURL(slots[i].ID)
	}

	if err := s.repo.CreateSlots(ctx, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam slots")
	}

	ids := make([]string, len(slots))
	for i, slot := range slots {
		ids[i] = slot.ID
	}
	s.audit.Record(ctx, actorID, models.AuditActionExamSlotsCreate, "exam_slot", req.BatchID, map[string]interface{}{
		"program_id": req.ProgramID,
		"exam_date":  req.ExamDate,
		"slot_ids":   ids,
	})
	return slots, nil
}

// ListSlots lists exam slots matching filter.
func (s *ExamService) ListSlots(ctx context.Context, filter models.ExamSlotFilter) ([]models.ExamSlot, error) {
	slots, err := s.repo.ListSlots(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam slots")
	}
	if slots == nil {
		slots = []models.ExamSlot{}
	}
	return slots, nil
}

// Book reserves a seat. Preconditions are checked in order: slot exists,
// capacity remains, slot is AVAILABLE, student holds no confirmed booking.
// A failed precondition leaves no side effects.
func (s *ExamService) Book(ctx context.Context, studentID, examID string) (*models.BookingResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "ExamService.Book")
	defer span.End()
	span.SetAttributes(attribute.String("exam.id", examID), attribute.String("student.id", studentID))

	if strings.TrimSpace(studentID) == "" || strings.TrimSpace(examID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student and exam are required")
	}

	s.locks.Lock(examID)
	defer s.locks.Unlock(examID) //nolint:errcheck

	result, outcome, err := s.book(ctx, studentID, examID)
	s.metrics.RecordBooking(outcome)
	span.SetAttributes(attribute.String("booking.outcome", outcome))
	if err != nil {
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	s.notifier.Notify(ctx, studentID, models.EventExamBooked, map[string]interface{}{
		"booking_id":        result.BookingID,
		"exam_id":           examID,
		"exam_date":         result.ExamDate,
		"start_time":        result.StartTime,
		"verification_code": result.VerificationCode,
	})
	s.audit.Record(ctx, studentID, models.AuditActionExamBook, "exam_booking", result.BookingID, map[string]interface{}{
		"exam_id": examID,
	})
	return result, nil
}

func (s *ExamService) book(ctx context.Context, studentID, examID string) (*models.BookingResult, string, error) {
	slot, err := s.repo.FindSlot(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, BookingOutcomeInvalid, appErrors.Clone(appErrors.ErrNotFound, "exam slot not found")
		}
		return nil, BookingOutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam slot")
	}
	if slot.BookedSlots >= slot.MaxSlots {
		return nil, BookingOutcomeFull, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
	}
	if slot.Status != models.ExamSlotAvailable {
		return nil, BookingOutcomeInvalid, appErrors.Clone(appErrors.ErrInvalidState, "exam slot is not open for booking")
	}
	if _, err := s.repo.FindActiveBooking(ctx, examID, studentID); err == nil {
		return nil, BookingOutcomeDuplicate, appErrors.Clone(appErrors.ErrDuplicateBooking, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, BookingOutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing booking")
	}

	code, err := s.codes()
	if err != nil {
		return nil, BookingOutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate verification code")
	}
	booking := &models.ExamBooking{
		ExamID:           examID,
		StudentID:        studentID,
		VerificationCode: code,
		BookedAt:         s.now().UTC(),
	}
	updated, err := s.repo.CreateBooking(ctx, booking)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotUnavailable):
			return nil, BookingOutcomeFull, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		case errors.Is(err, repository.ErrUniqueViolation):
			return nil, BookingOutcomeDuplicate, appErrors.Clone(appErrors.ErrDuplicateBooking, "")
		}
		return nil, BookingOutcomeError, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book exam slot")
	}

	s.logger.Info("exam slot booked",
		zap.String("booking_id", booking.ID),
		zap.String("exam_id", examID),
		zap.String("student_id", studentID),
		zap.Int("booked_slots", updated.BookedSlots),
		zap.Int("max_slots", updated.MaxSlots),
	)
	return &models.BookingResult{
		BookingID:        booking.ID,
		VerificationCode: booking.VerificationCode,
		ExamID:           examID,
		ExamDate:         updated.ExamDate,
		StartTime:        updated.StartTime,
		MeetURL:          updated.MeetURL,
	}, BookingOutcomeBooked, nil
}

// Cancel releases a confirmed booking. Students may only cancel their own
// bookings; staff may cancel any.
func (s *ExamService) Cancel(ctx context.Context, bookingID, actorID string, staff bool) (*models.ExamBooking, error) {
	booking, err := s.repo.FindBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if !staff && booking.StudentID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot cancel another student's booking")
	}
	if booking.Status != models.BookingConfirmed {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "booking already cancelled")
	}

	s.locks.Lock(booking.ExamID)
	defer s.locks.Unlock(booking.ExamID) //nolint:errcheck

	cancelled, slot, err := s.repo.CancelBooking(ctx, bookingID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "booking already cancelled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	s.metrics.RecordBooking(BookingOutcomeCancelled)

	s.notifier.Notify(ctx, cancelled.StudentID, models.EventExamCancelled, map[string]interface{}{
		"booking_id": cancelled.ID,
		"exam_id":    cancelled.ExamID,
	})
	s.audit.Record(ctx, actorID, models.AuditActionExamCancel, "exam_booking", cancelled.ID, map[string]interface{}{
		"exam_id":      cancelled.ExamID,
		"booked_slots": slot.BookedSlots,
	})
	return cancelled, nil
}

func (s *ExamService) meetURL(slotID string) string {
	if s.cfg.MeetingURLTemplate == "" {
		return ""
	}
	return strings.ReplaceAll(s.cfg.MeetingURLTemplate, "{id}", slotID)
}

func verificationCode() (string, error) {
	return gonanoid.Generate(verificationAlphabet, verificationCodeLength)
}
