package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/calendar"
	appErrors "github.com/raveone/lms-api/pkg/errors"
)

type batchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	List(ctx context.Context, programID string) ([]models.Batch, error)
}

// BatchService manages cohorts and their dated calendar windows.
type BatchService struct {
	repo      batchRepository
	pattern   calendar.Pattern
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs BatchService.
func NewBatchService(repo batchRepository, pattern calendar.Pattern, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, pattern: pattern, audit: audit, validator: validate, logger: logger}
}

// CreateBatch stores a cohort with its term and break windows.
func (s *BatchService) CreateBatch(ctx context.Context, req models.CreateBatchRequest, actorID string) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	batch := &models.Batch{
		Name:        req.Name,
		Type:        req.Type,
		ProgramID:   req.ProgramID,
		StartDate:   req.StartDate,
		EndDate:     s.pattern.EndDate(req.StartDate),
		MaxStudents: req.MaxStudents,
		Windows:     models.BatchWindows(s.pattern.Windows(req.StartDate)),
		Status:      "ACTIVE",
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}
	s.audit.Record(ctx, actorID, models.AuditActionBatchCreate, "batch", batch.ID, map[string]interface{}{
		"program_id": batch.ProgramID,
		"type":       batch.Type,
		"start_date": batch.StartDate,
	})
	return batch, nil
}

// Get returns a single batch.
func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	return batch, nil
}

// ListBatches lists cohorts, optionally narrowed to a program.
func (s *BatchService) ListBatches(ctx context.Context, programID string) ([]models.Batch, error) {
	batches, err := s.repo.List(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	if batches == nil {
		batches = []models.Batch{}
	}
	return batches, nil
}
