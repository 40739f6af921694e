package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/internal/repository"
	"github.com/raveone/lms-api/pkg/calendar"
	appErrors "github.com/raveone/lms-api/pkg/errors"
)

type enrollmentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

type batchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type positionRefresher interface {
	RefreshPosition(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error)
}

// EnrollmentService orchestrates enrollment workflows.
type EnrollmentService struct {
	repo      enrollmentRepository
	batches   batchReader
	drip      positionRefresher
	pattern   calendar.Pattern
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, batches batchReader, drip positionRefresher, pattern calendar.Pattern, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		batches:   batches,
		drip:      drip,
		pattern:   pattern,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Enroll creates an enrollment with its calendar position already derived.
// When a batch is given, its start date is the default enrollment date.
func (s *EnrollmentService) Enroll(ctx context.Context, req models.CreateEnrollmentRequest, actorID string) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	start := s.now().UTC()
	if req.BatchID != nil && *req.BatchID != "" {
		batch, err := s.batches.FindByID(ctx, *req.BatchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
		}
		if batch.ProgramID != req.ProgramID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "batch belongs to a different program")
		}
		start = batch.StartDate
	}
	if req.EnrollmentDate != nil && !req.EnrollmentDate.IsZero() {
		start = *req.EnrollmentDate
	}

	pos := s.pattern.Position(start, s.now())
	status := models.EnrollmentStatusActive
	if pos.Completed {
		status = models.EnrollmentStatusCompleted
	}
	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		ProgramID:      req.ProgramID,
		BatchID:        req.BatchID,
		EnrollmentDate: start,
		CurrentTerm:    pos.Term,
		CurrentWeek:    pos.Week,
		Status:         status,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("student enrolled", zap.String("enrollment_id", enrollment.ID), zap.String("student_id", req.StudentID), zap.String("program_id", req.ProgramID))
	s.audit.Record(ctx, actorID, models.AuditActionEnroll, "enrollment", enrollment.ID, map[string]interface{}{
		"student_id": req.StudentID,
		"program_id": req.ProgramID,
		"term":       pos.Term,
		"week":       pos.Week,
	})
	return enrollment, nil
}

// Status lists a student's enrollments, each with a refreshed position.
func (s *EnrollmentService) Status(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	out := make([]models.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		refreshed, err := s.drip.RefreshPosition(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, refreshed)
	}
	return out, nil
}
