package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moby/locker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/internal/repository"
	"github.com/raveone/lms-api/pkg/calendar"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/grading"
	"github.com/raveone/lms-api/pkg/storage"
	"github.com/raveone/lms-api/pkg/tracing"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	FindBySlot(ctx context.Context, studentID, courseID string, term, week int) (*models.Assignment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Resubmit(ctx context.Context, id, fileRef string, submittedAt time.Time) (*models.Assignment, error)
	Grade(ctx context.Context, id string, score float64, feedback *string, graderID string, record *models.GradeRecord) (*models.Assignment, error)
}

type submissionEnrollmentReader interface {
	FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error)
	FirstByStudent(ctx context.Context, studentID string) (*models.Enrollment, error)
}

type fileStore interface {
	SaveStream(relPath string, r io.Reader) (int64, error)
}

type fileSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
}

// AssignmentService handles submission and grading of weekly workbook
// assignments.
type AssignmentService struct {
	repo        assignmentRepository
	enrollments submissionEnrollmentReader
	pattern     calendar.Pattern
	weights     grading.Weights
	locks       *locker.Locker
	cache       *CacheService
	notifier    *NotificationService
	audit       *AuditService
	metrics     *MetricsService
	store       fileStore
	signer      fileSigner
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// AssignmentServiceConfig groups optional collaborators.
type AssignmentServiceConfig struct {
	Pattern  calendar.Pattern
	Weights  grading.Weights
	Cache    *CacheService
	Notifier *NotificationService
	Audit    *AuditService
	Metrics  *MetricsService
	Store    fileStore
	Signer   fileSigner
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(repo assignmentRepository, enrollments submissionEnrollmentReader, cfg AssignmentServiceConfig, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:        repo,
		enrollments: enrollments,
		pattern:     cfg.Pattern,
		weights:     cfg.Weights,
		locks:       locker.New(),
		cache:       cfg.Cache,
		notifier:    cfg.Notifier,
		audit:       cfg.Audit,
		metrics:     cfg.Metrics,
		store:       cfg.Store,
		signer:      cfg.Signer,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit stores or replaces the student's submission for a course week.
// Only weeks of the cached current term up to the cached week are open.
// A resubmission keeps the original id and is marked RESUBMITTED.
func (s *AssignmentService) Submit(ctx context.Context, req models.SubmitAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if _, err := s.pattern.WeekOffset(req.Term, req.Week); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term/week outside programme calendar")
	}

	enrollment, err := s.findEnrollment(ctx, req.StudentID, req.ProgramID)
	if err != nil {
		return nil, err
	}
	if !submissionOpen(*enrollment, req.Term, req.Week) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("term %d week %d is not open for submission", req.Term, req.Week))
	}

	slotKey := submissionKey(req.StudentID, req.CourseID, req.Term, req.Week)
	s.locks.Lock(slotKey)
	defer s.locks.Unlock(slotKey) //nolint:errcheck

	submittedAt := s.now().UTC()
	assignment, err := s.upsert(ctx, req, enrollment.ProgramID, submittedAt)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, req.StudentID, models.EventAssignmentSubmitted, map[string]interface{}{
		"assignment_id": assignment.ID,
		"course_id":     assignment.CourseID,
		"term":          assignment.Term,
		"week":          assignment.Week,
		"status":        assignment.Status,
	})
	s.audit.Record(ctx, req.StudentID, models.AuditActionAssignmentSubmit, "assignment", assignment.ID, map[string]interface{}{
		"course_id": assignment.CourseID,
		"term":      assignment.Term,
		"week":      assignment.Week,
		"status":    assignment.Status,
	})
	return assignment, nil
}

func submissionOpen(enrollment models.Enrollment, term, week int) bool {
	return term == enrollment.CurrentTerm && week <= enrollment.CurrentWeek
}

func (s *AssignmentService) upsert(ctx context.Context, req models.SubmitAssignmentRequest, programID string, submittedAt time.Time) (*models.Assignment, error) {
	existing, err := s.repo.FindBySlot(ctx, req.StudentID, req.CourseID, req.Term, req.Week)
	switch {
	case err == nil:
		return s.resubmit(ctx, existing.ID, req.FileRef, submittedAt)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	assignment := &models.Assignment{
		StudentID:   req.StudentID,
		ProgramID:   programID,
		CourseID:    req.CourseID,
		Term:        req.Term,
		Week:        req.Week,
		FileRef:     req.FileRef,
		Status:      models.AssignmentStatusSubmitted,
		SubmittedAt: submittedAt,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		if !errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
		}
		// Another instance created the row first.
		existing, err := s.repo.FindBySlot(ctx, req.StudentID, req.CourseID, req.Term, req.Week)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
		}
		return s.resubmit(ctx, existing.ID, req.FileRef, submittedAt)
	}
	return assignment, nil
}

func (s *AssignmentService) resubmit(ctx context.Context, id, fileRef string, submittedAt time.Time) (*models.Assignment, error) {
	updated, err := s.repo.Resubmit(ctx, id, fileRef, submittedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resubmit assignment")
	}
	return updated, nil
}

// Grade scores a submission, appends the pre-weighted ledger entry in the
// same transaction and, once committed, notifies the student exactly once.
func (s *AssignmentService) Grade(ctx context.Context, assignmentID string, req models.GradeAssignmentRequest) (*models.Assignment, error) {
	ctx, span := tracing.Tracer().Start(ctx, "AssignmentService.Grade")
	defer span.End()
	span.SetAttributes(attribute.String("assignment.id", assignmentID))

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	var feedback *string
	if trimmed := strings.TrimSpace(req.Feedback); trimmed != "" {
		feedback = &trimmed
	}
	score := req.Score
	weighted := s.weights.WorkbookContribution(score)
	record := &models.GradeRecord{
		WorkbookGrade: &score,
		WeightedGrade: &weighted,
		Feedback:      feedback,
		GradedBy:      req.GraderID,
		GradedAt:      s.now().UTC(),
	}

	assignment, err := s.repo.Grade(ctx, assignmentID, score, feedback, req.GraderID, record)
	if err != nil {
		span.SetStatus(codes.Error, "grading failed")
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		span.RecordError(err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade assignment")
	}

	s.metrics.RecordGrade("workbook")
	s.cache.Bump(ctx, finalGradeGenerationKey(assignment.StudentID, assignment.ProgramID))
	s.notifier.Notify(ctx, assignment.StudentID, models.EventAssignmentGraded, map[string]interface{}{
		"assignment_id":  assignment.ID,
		"course_id":      assignment.CourseID,
		"score":          score,
		"weighted_grade": weighted,
	})
	s.audit.Record(ctx, req.GraderID, models.AuditActionAssignmentGrade, "assignment", assignment.ID, map[string]interface{}{
		"score":           score,
		"weighted_grade":  weighted,
		"grade_record_id": record.ID,
	})
	return assignment, nil
}

// Get returns a single assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// ListByStudent lists a student's submissions.
func (s *AssignmentService) ListByStudent(ctx context.Context, studentID string) ([]models.Assignment, error) {
	assignments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	return assignments, nil
}

// Upload stores a submission file and returns a signed token usable as the
// FileRef of a later Submit.
func (s *AssignmentService) Upload(ctx context.Context, studentID, courseID string, term, week int, filename string, r io.Reader) (*models.UploadedFile, error) {
	if s.store == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage not configured")
	}
	if studentID == "" || courseID == "" || term < 1 || week < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student, course, term and week are required")
	}
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == "/" || base == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
	}

	relPath := path.Join(studentID, courseID, fmt.Sprintf("t%dw%d", term, week), uuid.NewString()+"-"+base)
	size, err := s.store.SaveStream(relPath, r)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds maximum size")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	token, expiresAt, err := s.signer.Generate(studentID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign file reference")
	}
	s.logger.Debug("submission file stored", zap.String("student_id", studentID), zap.String("path", relPath), zap.Int64("size", size))
	return &models.UploadedFile{FileRef: token, Path: relPath, Size: size, ExpiresAt: expiresAt}, nil
}

func (s *AssignmentService) findEnrollment(ctx context.Context, studentID, programID string) (*models.Enrollment, error) {
	var (
		enrollment *models.Enrollment
		err        error
	)
	if programID != "" {
		enrollment, err = s.enrollments.FindByStudentAndProgram(ctx, studentID, programID)
	} else {
		enrollment, err = s.enrollments.FirstByStudent(ctx, studentID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func submissionKey(studentID, courseID string, term, week int) string {
	return fmt.Sprintf("%s|%s|%d|%d", studentID, courseID, term, week)
}

func finalGradeCacheKey(studentID, programID string, gen int64) string {
	return fmt.Sprintf("grades:final:%s:%s:%d", studentID, programID, gen)
}

func finalGradeGenerationKey(studentID, programID string) string {
	return "grades:gen:" + studentID + ":" + programID
}
