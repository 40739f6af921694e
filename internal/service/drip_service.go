package service

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/calendar"
	appErrors "github.com/raveone/lms-api/pkg/errors"
)

type dripEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error)
	UpdatePosition(ctx context.Context, id string, term, week int, status models.EnrollmentStatus) error
}

type lessonRepository interface {
	ListByProgram(ctx context.Context, programID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

type progressRepository interface {
	Record(ctx context.Context, progress *models.Progress) (bool, error)
	Find(ctx context.Context, enrollmentID, lessonID string) (*models.Progress, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Progress, error)
}

// DripService releases lessons over the programme calendar.
type DripService struct {
	enrollments dripEnrollmentRepository
	lessons     lessonRepository
	progress    progressRepository
	pattern     calendar.Pattern
	audit       *AuditService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewDripService constructs a DripService.
func NewDripService(enrollments dripEnrollmentRepository, lessons lessonRepository, progress progressRepository, pattern calendar.Pattern, audit *AuditService, metrics *MetricsService, logger *zap.Logger) *DripService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DripService{
		enrollments: enrollments,
		lessons:     lessons,
		progress:    progress,
		pattern:     pattern,
		audit:       audit,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Pattern returns the configured calendar.
func (s *DripService) Pattern() calendar.Pattern {
	return s.pattern
}

// Position derives the live calendar position of an enrollment.
func (s *DripService) Position(enrollment models.Enrollment) calendar.Position {
	return s.pattern.Position(enrollment.EnrollmentDate, s.now())
}

// RefreshPosition recomputes the position from EnrollmentDate and persists
// it only when it differs from the cached values. The input is not modified.
func (s *DripService) RefreshPosition(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error) {
	pos := s.Position(enrollment)
	status := models.EnrollmentStatusActive
	if pos.Completed {
		status = models.EnrollmentStatusCompleted
	}

	if enrollment.CurrentTerm == pos.Term && enrollment.CurrentWeek == pos.Week && enrollment.Status == status {
		s.metrics.RecordPositionRefresh(false)
		return enrollment, nil
	}

	if err := s.enrollments.UpdatePosition(ctx, enrollment.ID, pos.Term, pos.Week, status); err != nil {
		return enrollment, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment position")
	}
	s.metrics.RecordPositionRefresh(true)
	s.logger.Debug("enrollment position refreshed",
		zap.String("enrollment_id", enrollment.ID),
		zap.Int("term", pos.Term),
		zap.Int("week", pos.Week),
		zap.Bool("completed", pos.Completed),
	)

	enrollment.CurrentTerm = pos.Term
	enrollment.CurrentWeek = pos.Week
	enrollment.Status = status
	return enrollment, nil
}

// AvailableLessons yields eligible lessons of an enrollment. Eligibility uses
// the cached position; IsAvailable re-checks the unlock instant against the
// clock at iteration time. Each range over the sequence recomputes.
func (s *DripService) AvailableLessons(enrollment models.Enrollment, lessons []models.Lesson) iter.Seq[models.AvailableLesson] {
	current := enrollment.CachedPosition()
	snapshot := slices.Clone(lessons)
	return func(yield func(models.AvailableLesson) bool) {
		now := s.now()
		for _, lesson := range snapshot {
			if !current.Reached(lesson.Term, lesson.Week) {
				continue
			}
			from, err := s.pattern.AvailabilityDate(enrollment.EnrollmentDate, lesson.Term, lesson.Week)
			if err != nil {
				s.logger.Warn("lesson outside calendar", zap.String("lesson_id", lesson.ID), zap.Int("term", lesson.Term), zap.Int("week", lesson.Week))
				continue
			}
			if !yield(models.AvailableLesson{Lesson: lesson, AvailableFrom: from, IsAvailable: !now.Before(from)}) {
				return
			}
		}
	}
}

// ListAvailableLessons refreshes the enrollment and lists its unlocked lessons.
func (s *DripService) ListAvailableLessons(ctx context.Context, enrollmentID string) ([]models.AvailableLesson, *models.Enrollment, error) {
	enrollment, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, nil, err
	}
	refreshed, err := s.RefreshPosition(ctx, *enrollment)
	if err != nil {
		return nil, nil, err
	}
	lessons, err := s.lessons.ListByProgram(ctx, refreshed.ProgramID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	available := slices.Collect(s.AvailableLessons(refreshed, lessons))
	if available == nil {
		available = []models.AvailableLesson{}
	}
	return available, &refreshed, nil
}

// ListLessons returns a program's syllabus in calendar order, locked or not.
func (s *DripService) ListLessons(ctx context.Context, programID string) ([]models.Lesson, error) {
	if programID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program_id is required")
	}
	lessons, err := s.lessons.ListByProgram(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	return lessons, nil
}

// Enrollment loads one enrollment without touching its cached position.
func (s *DripService) Enrollment(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	return s.loadEnrollment(ctx, enrollmentID)
}

// Refresh loads and refreshes a single enrollment.
func (s *DripService) Refresh(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	enrollment, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	refreshed, err := s.RefreshPosition(ctx, *enrollment)
	if err != nil {
		return nil, err
	}
	return &refreshed, nil
}

// RecordCompletion appends a completion for the student's enrollment in the
// lesson's program. Completions of lessons not yet unlocked are accepted.
// Repeating a completion returns the original record.
func (s *DripService) RecordCompletion(ctx context.Context, studentID, lessonID string) (*models.Progress, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	enrollment, err := s.enrollments.FindByStudentAndProgram(ctx, studentID, lesson.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	progress := &models.Progress{
		StudentID:    studentID,
		EnrollmentID: enrollment.ID,
		LessonID:     lessonID,
		CompletedAt:  s.now().UTC(),
	}
	created, err := s.progress.Record(ctx, progress)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record completion")
	}
	if !created {
		existing, err := s.progress.Find(ctx, enrollment.ID, lessonID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completion")
		}
		return existing, nil
	}

	s.metrics.RecordLessonCompletion()
	s.audit.Record(ctx, studentID, models.AuditActionLessonComplete, "lesson", lessonID, map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"term":          lesson.Term,
		"week":          lesson.Week,
	})
	return progress, nil
}

// ProgressSummary refreshes the enrollment and reports unlocked and
// completed lessons.
func (s *DripService) ProgressSummary(ctx context.Context, enrollmentID string) (*models.ProgressSummary, error) {
	enrollment, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	refreshed, err := s.RefreshPosition(ctx, *enrollment)
	if err != nil {
		return nil, err
	}

	var (
		lessons   []models.Lesson
		completed []models.Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lessons, err = s.lessons.ListByProgram(gctx, refreshed.ProgramID)
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = s.progress.ListByEnrollment(gctx, refreshed.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}

	ids := make([]string, 0, len(completed))
	for _, p := range completed {
		ids = append(ids, p.LessonID)
	}
	available := slices.Collect(s.AvailableLessons(refreshed, lessons))
	if available == nil {
		available = []models.AvailableLesson{}
	}

	return &models.ProgressSummary{
		Enrollment:         refreshed,
		Position:           s.Position(refreshed),
		Lessons:            available,
		CompletedLessonIDs: ids,
		TotalLessons:       len(lessons),
		CompletedCount:     len(ids),
	}, nil
}

func (s *DripService) loadEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}
