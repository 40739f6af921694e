package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moby/locker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/internal/repository"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/grading"
	"github.com/raveone/lms-api/pkg/tracing"
)

type gradeRepository interface {
	ListByStudentProgram(ctx context.Context, studentID, programID string) ([]models.GradeRecord, error)
	FindExamScore(ctx context.Context, studentID, programID string) (*models.GradeRecord, error)
	Create(ctx context.Context, record *models.GradeRecord) error
}

type assignmentCounter interface {
	CountForProgram(ctx context.Context, studentID, programID string) (submitted, graded int, err error)
}

type programRoster interface {
	ListByProgram(ctx context.Context, programID string) ([]models.Enrollment, error)
}

const gradebookConcurrency = 8

// GradeServiceConfig holds the grading policy.
type GradeServiceConfig struct {
	Weights          grading.Weights
	Scale            grading.Scale
	TotalAssignments int
	CacheTTL         time.Duration
}

// GradeService aggregates the grade ledger into final grades.
type GradeService struct {
	repo        gradeRepository
	assignments assignmentCounter
	roster      programRoster
	cfg         GradeServiceConfig
	locks       *locker.Locker
	cache       *CacheService
	notifier    *NotificationService
	audit       *AuditService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeRepository, assignments assignmentCounter, roster programRoster, cfg GradeServiceConfig, cache *CacheService, notifier *NotificationService, audit *AuditService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		repo:        repo,
		assignments: assignments,
		roster:      roster,
		cfg:         cfg,
		locks:       locker.New(),
		cache:       cache,
		notifier:    notifier,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// ComputeFinalGrade aggregates every ledger entry of a student in a program.
// An empty ledger yields 0 and the lowest letter.
func (s *GradeService) ComputeFinalGrade(ctx context.Context, studentID, programID string) (*models.FinalGrade, error) {
	result, _, err := s.FinalGrade(ctx, studentID, programID)
	return result, err
}

// FinalGrade is ComputeFinalGrade that also reports whether the result came
// from cache.
func (s *GradeService) FinalGrade(ctx context.Context, studentID, programID string) (*models.FinalGrade, bool, error) {
	ctx, span := tracing.Tracer().Start(ctx, "GradeService.ComputeFinalGrade")
	defer span.End()
	span.SetAttributes(attribute.String("student.id", studentID), attribute.String("program.id", programID))

	// The version is read before the ledger so a write committed during the
	// load bumps past the key this call stores under.
	gen, cacheable := s.cache.Generation(ctx, finalGradeGenerationKey(studentID, programID))
	key := finalGradeCacheKey(studentID, programID, gen)
	var cached models.FinalGrade
	if cacheable && s.cache.Get(ctx, key, &cached) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return &cached, true, nil
	}

	var (
		records           []models.GradeRecord
		submitted, graded int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.repo.ListByStudentProgram(gctx, studentID, programID)
		return err
	})
	g.Go(func() error {
		var err error
		submitted, graded, err = s.assignments.CountForProgram(gctx, studentID, programID)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}

	result := aggregate(records, s.cfg.Weights, s.cfg.Scale)
	result.StudentID = studentID
	result.ProgramID = programID
	result.AssignmentsSubmitted = submitted
	result.AssignmentsGraded = graded
	result.TotalAssignments = s.cfg.TotalAssignments
	result.ComputedAt = s.now().UTC()

	if cacheable {
		s.cache.Set(ctx, key, result, s.cfg.CacheTTL)
	}
	return &result, false, nil
}

// aggregate applies the grading policy to ledger entries. The workbook
// average is the mean of the pre-weighted values; only the first exam score
// counts. Out-of-range inputs are not clamped.
func aggregate(records []models.GradeRecord, weights grading.Weights, scale grading.Scale) models.FinalGrade {
	var (
		sum   float64
		count int
		exam  *float64
	)
	for _, r := range records {
		switch {
		case r.WeightedGrade != nil:
			sum += *r.WeightedGrade
			count++
		case r.WorkbookGrade != nil:
			sum += weights.WorkbookContribution(*r.WorkbookGrade)
			count++
		}
		if exam == nil && r.ExamGrade != nil {
			v := *r.ExamGrade
			exam = &v
		}
	}

	var result models.FinalGrade
	if count > 0 {
		result.WorkbookAverage = sum / float64(count)
	}
	if exam != nil {
		result.ExamScore = exam
		result.ExamWeighted = weights.ExamContribution(*exam)
	}
	result.FinalGrade = result.WorkbookAverage + result.ExamWeighted
	result.Letter = scale.Letter(result.FinalGrade)
	result.Passed = scale.Passed(result.FinalGrade)
	return result
}

// RecordExamScore appends the single exam score of a student in a program.
func (s *GradeService) RecordExamScore(ctx context.Context, req models.RecordExamScoreRequest) (*models.GradeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	scoreKey := req.StudentID + "|" + req.ProgramID
	s.locks.Lock(scoreKey)
	defer s.locks.Unlock(scoreKey) //nolint:errcheck

	if _, err := s.repo.FindExamScore(ctx, req.StudentID, req.ProgramID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateExamScore, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam score")
	}

	score := req.Score
	record := &models.GradeRecord{
		StudentID: req.StudentID,
		ProgramID: req.ProgramID,
		ExamGrade: &score,
		GradedBy:  req.GraderID,
		GradedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateExamScore, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record exam score")
	}

	s.metrics.RecordGrade("exam")
	s.cache.Bump(ctx, finalGradeGenerationKey(req.StudentID, req.ProgramID))
	s.notifier.Notify(ctx, req.StudentID, models.EventExamScoreRecorded, map[string]interface{}{
		"program_id": req.ProgramID,
		"score":      score,
	})
	s.audit.Record(ctx, req.GraderID, models.AuditActionExamScore, "grade_record", record.ID, map[string]interface{}{
		"student_id": req.StudentID,
		"program_id": req.ProgramID,
		"score":      score,
	})
	return record, nil
}

// Gradebook computes the final grade of every student enrolled in a program.
func (s *GradeService) Gradebook(ctx context.Context, programID string) ([]models.FinalGrade, error) {
	enrollments, err := s.roster.ListByProgram(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	results := make([]models.FinalGrade, len(enrollments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gradebookConcurrency)
	for i, e := range enrollments {
		g.Go(func() error {
			grade, err := s.ComputeFinalGrade(gctx, e.StudentID, programID)
			if err != nil {
				return err
			}
			results[i] = *grade
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Scale exposes the letter scale for reports.
func (s *GradeService) Scale() grading.Scale {
	return s.cfg.Scale
}
