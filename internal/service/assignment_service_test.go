package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/calendar"
	appErrors "github.com/raveone/lms-api/pkg/errors"
	"github.com/raveone/lms-api/pkg/grading"
	"github.com/raveone/lms-api/pkg/storage"
)

type mockAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[string]models.Assignment
	records     []models.GradeRecord
	creates     int
	resubmits   int
	seq         int
	gradeErr    error
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{assignments: make(map[string]models.Assignment)}
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) FindBySlot(ctx context.Context, studentID, courseID string, term, week int) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments {
		if a.StudentID == studentID && a.CourseID == courseID && a.Term == term && a.Week == week {
			return &a, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, a := range m.assignments {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.creates++
	assignment.ID = fmt.Sprintf("ASSIGN-%d", m.seq)
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *mockAssignmentRepo) Resubmit(ctx context.Context, id, fileRef string, submittedAt time.Time) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	m.resubmits++
	a.FileRef = fileRef
	a.SubmittedAt = submittedAt
	a.Status = models.AssignmentStatusResubmitted
	m.assignments[id] = a
	return &a, nil
}

func (m *mockAssignmentRepo) Grade(ctx context.Context, id string, score float64, feedback *string, graderID string, record *models.GradeRecord) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gradeErr != nil {
		return nil, m.gradeErr
	}
	a, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a.Status = models.AssignmentStatusGraded
	a.Score = &score
	a.Feedback = feedback
	a.GradedBy = &graderID
	m.assignments[id] = a
	record.ID = "GRADE-1"
	record.StudentID = a.StudentID
	record.ProgramID = a.ProgramID
	record.AssignmentID = &a.ID
	m.records = append(m.records, *record)
	return &a, nil
}

type mockSubmissionEnrollments struct {
	enrollment *models.Enrollment
}

func (m *mockSubmissionEnrollments) FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error) {
	if m.enrollment != nil && m.enrollment.StudentID == studentID && m.enrollment.ProgramID == programID {
		e := *m.enrollment
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionEnrollments) FirstByStudent(ctx context.Context, studentID string) (*models.Enrollment, error) {
	if m.enrollment != nil && m.enrollment.StudentID == studentID {
		e := *m.enrollment
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

type assignmentFixture struct {
	svc       *AssignmentService
	repo      *mockAssignmentRepo
	publisher *mockPublisher
	audit     *mockAuditRepo
}

func newAssignmentFixture(t *testing.T, enrollment *models.Enrollment) assignmentFixture {
	t.Helper()
	repo := newMockAssignmentRepo()
	audit, auditRepo, notifier, publisher := newSideEffects()
	store, err := storage.NewLocalStorage(t.TempDir(), 16)
	require.NoError(t, err)
	svc := NewAssignmentService(repo, &mockSubmissionEnrollments{enrollment: enrollment}, AssignmentServiceConfig{
		Pattern:  calendar.DefaultPattern(),
		Weights:  grading.DefaultWeights(),
		Notifier: notifier,
		Audit:    audit,
		Store:    store,
		Signer:   storage.NewSignedURLSigner("secret", time.Hour),
	}, nil, nil)
	svc.now = fixedClock(testNow)
	return assignmentFixture{svc: svc, repo: repo, publisher: publisher, audit: auditRepo}
}

func submitRequest(week int) models.SubmitAssignmentRequest {
	return models.SubmitAssignmentRequest{StudentID: "student-1", CourseID: "course-1", Term: 1, Week: week, FileRef: "file-a"}
}

func TestAssignmentSubmitAndResubmit(t *testing.T) {
	enrollment := baseEnrollment(1, 3)
	f := newAssignmentFixture(t, &enrollment)

	first, err := f.svc.Submit(context.Background(), submitRequest(2))
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusSubmitted, first.Status)
	assert.Equal(t, "prog-1", first.ProgramID)

	req := submitRequest(2)
	req.FileRef = "file-b"
	second, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.AssignmentStatusResubmitted, second.Status)
	assert.Equal(t, "file-b", second.FileRef)
	assert.Len(t, f.repo.assignments, 1)

	assert.Equal(t, []models.NotificationEvent{models.EventAssignmentSubmitted, models.EventAssignmentSubmitted}, f.publisher.events())
}

func TestAssignmentSubmitGate(t *testing.T) {
	enrollment := baseEnrollment(1, 3)
	f := newAssignmentFixture(t, &enrollment)

	_, err := f.svc.Submit(context.Background(), submitRequest(3))
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), submitRequest(4))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState.Code))

	_, err = f.svc.Submit(context.Background(), submitRequest(7))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	assert.Len(t, f.repo.assignments, 1)
	assert.Len(t, f.publisher.sent, 1)
}

func TestAssignmentSubmitClosedForPastTerms(t *testing.T) {
	enrollment := baseEnrollment(2, 2)
	f := newAssignmentFixture(t, &enrollment)

	late := submitRequest(3)
	_, err := f.svc.Submit(context.Background(), late)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState.Code))

	current := submitRequest(2)
	current.Term = 2
	_, err = f.svc.Submit(context.Background(), current)
	require.NoError(t, err)

	assert.Len(t, f.repo.assignments, 1)
	assert.Len(t, f.publisher.sent, 1)
}

func TestAssignmentSubmitWithoutEnrollment(t *testing.T) {
	f := newAssignmentFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), submitRequest(1))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Empty(t, f.publisher.sent)
	assert.Empty(t, f.audit.actions())
}

func TestAssignmentConcurrentSubmitsShareOneRecord(t *testing.T) {
	enrollment := baseEnrollment(1, 6)
	f := newAssignmentFixture(t, &enrollment)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(context.Background(), submitRequest(5))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.repo.creates)
	assert.Equal(t, 9, f.repo.resubmits)
	assert.Len(t, f.repo.assignments, 1)
}

func TestAssignmentGrade(t *testing.T) {
	enrollment := baseEnrollment(1, 3)
	f := newAssignmentFixture(t, &enrollment)
	submitted, err := f.svc.Submit(context.Background(), submitRequest(1))
	require.NoError(t, err)

	graded, err := f.svc.Grade(context.Background(), submitted.ID, models.GradeAssignmentRequest{Score: 85, Feedback: " good ", GraderID: "instructor-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusGraded, graded.Status)
	require.NotNil(t, graded.Feedback)
	assert.Equal(t, "good", *graded.Feedback)

	require.Len(t, f.repo.records, 1)
	assert.InDelta(t, 59.5, *f.repo.records[0].WeightedGrade, 1e-9)
	assert.InDelta(t, 85, *f.repo.records[0].WorkbookGrade, 1e-9)
	assert.Equal(t, "prog-1", f.repo.records[0].ProgramID)

	events := f.publisher.events()
	gradedEvents := 0
	for _, e := range events {
		if e == models.EventAssignmentGraded {
			gradedEvents++
		}
	}
	assert.Equal(t, 1, gradedEvents)
	assert.Contains(t, f.audit.actions(), models.AuditActionAssignmentGrade)
}

func TestAssignmentGradeFailuresDoNotNotify(t *testing.T) {
	enrollment := baseEnrollment(1, 3)
	f := newAssignmentFixture(t, &enrollment)
	submitted, err := f.svc.Submit(context.Background(), submitRequest(1))
	require.NoError(t, err)
	baseline := len(f.publisher.sent)

	_, err = f.svc.Grade(context.Background(), submitted.ID, models.GradeAssignmentRequest{Score: 101, GraderID: "instructor-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.Grade(context.Background(), "missing", models.GradeAssignmentRequest{Score: 50, GraderID: "instructor-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	f.repo.gradeErr = errors.New("tx aborted")
	_, err = f.svc.Grade(context.Background(), submitted.ID, models.GradeAssignmentRequest{Score: 50, GraderID: "instructor-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))

	assert.Len(t, f.publisher.sent, baseline)
	assert.Empty(t, f.repo.records)
}

func TestAssignmentUpload(t *testing.T) {
	f := newAssignmentFixture(t, nil)

	uploaded, err := f.svc.Upload(context.Background(), "student-1", "course-1", 1, 2, "../../essay.pdf", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), uploaded.Size)
	assert.True(t, strings.HasPrefix(uploaded.Path, "student-1/course-1/t1w2/"))
	assert.True(t, strings.HasSuffix(uploaded.Path, "-essay.pdf"))

	ref, err := storage.NewSignedURLSigner("secret", time.Hour).Parse(uploaded.FileRef, false)
	require.NoError(t, err)
	assert.Equal(t, uploaded.Path, ref.Path)
	assert.Equal(t, "student-1", ref.OwnerID)

	_, err = f.svc.Upload(context.Background(), "student-1", "course-1", 1, 2, "big.pdf", strings.NewReader(strings.Repeat("x", 64)))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}
