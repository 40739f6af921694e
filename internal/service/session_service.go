package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/raveone/lms-api/internal/models"
	appErrors "github.com/raveone/lms-api/pkg/errors"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	ListByBatchAndDate(ctx context.Context, batchID string, day time.Time) ([]models.Session, error)
}

type batchLookup interface {
	Get(ctx context.Context, id string) (*models.Batch, error)
}

// SessionServiceConfig fixes the zone session clocks are read in and how
// early a student may join.
type SessionServiceConfig struct {
	Location *time.Location
	JoinLead time.Duration
}

// SessionService schedules live batch sessions and reports which are on air.
type SessionService struct {
	repo      sessionRepository
	batches   batchLookup
	cfg       SessionServiceConfig
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs SessionService.
func NewSessionService(repo sessionRepository, batches batchLookup, cfg SessionServiceConfig, audit *AuditService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:      repo,
		batches:   batches,
		cfg:       cfg,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateSession schedules a live class on an existing batch.
func (s *SessionService) CreateSession(ctx context.Context, batchID string, req models.CreateSessionRequest, actorID string) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.batches.Get(ctx, batchID); err != nil {
		return nil, err
	}
	y, m, d := req.SessionDate.Date()
	session := &models.Session{
		BatchID:     batchID,
		Title:       req.Title,
		SessionDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		MeetingURL:  req.MeetingURL,
	}
	start, err := s.onDate(session.SessionDate, req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_time")
	}
	end, err := s.onDate(session.SessionDate, req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_time")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	// Zero-padded clocks keep the repository's start_time ordering chronological.
	session.StartTime = start.Format(models.SessionClockLayout)
	session.EndTime = end.Format(models.SessionClockLayout)
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.audit.Record(ctx, actorID, models.AuditActionSessionCreate, "session", session.ID, map[string]interface{}{
		"batch_id":     batchID,
		"session_date": session.SessionDate.Format("2006-01-02"),
		"start_time":   session.StartTime,
	})
	return session, nil
}

// TodaysSessions lists the batch's sessions dated today in the configured
// zone, each flagged live while now is inside [start, end] and joinable from
// JoinLead before start until end.
func (s *SessionService) TodaysSessions(ctx context.Context, batchID string) ([]models.SessionView, error) {
	now := s.now().In(s.cfg.Location)
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	sessions, err := s.repo.ListByBatchAndDate(ctx, batchID, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	views := make([]models.SessionView, 0, len(sessions))
	for _, session := range sessions {
		start, end, err := s.sessionBounds(session)
		if err != nil {
			s.logger.Warn("skipping session with unreadable clock", zap.String("session_id", session.ID), zap.Error(err))
			continue
		}
		views = append(views, models.SessionView{
			Session: session,
			IsLive:  !now.Before(start) && !now.After(end),
			CanJoin: !now.Before(start.Add(-s.cfg.JoinLead)) && !now.After(end),
		})
	}
	return views, nil
}

func (s *SessionService) sessionBounds(session models.Session) (time.Time, time.Time, error) {
	start, err := s.onDate(session.SessionDate, session.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := s.onDate(session.SessionDate, session.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *SessionService) onDate(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse(models.SessionClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", clock, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, s.cfg.Location), nil
}
