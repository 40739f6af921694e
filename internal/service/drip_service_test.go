package service

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/calendar"
	appErrors "github.com/raveone/lms-api/pkg/errors"
)

type positionUpdate struct {
	id     string
	term   int
	week   int
	status models.EnrollmentStatus
}

type mockDripEnrollments struct {
	mu          sync.Mutex
	enrollments map[string]models.Enrollment
	updates     []positionUpdate
}

func (m *mockDripEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDripEnrollments) FindByStudentAndProgram(ctx context.Context, studentID, programID string) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.ProgramID == programID {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockDripEnrollments) UpdatePosition(ctx context.Context, id string, term, week int, status models.EnrollmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, positionUpdate{id: id, term: term, week: week, status: status})
	if e, ok := m.enrollments[id]; ok {
		e.CurrentTerm, e.CurrentWeek, e.Status = term, week, status
		m.enrollments[id] = e
	}
	return nil
}

type mockLessons struct {
	lessons []models.Lesson
}

func (m *mockLessons) ListByProgram(ctx context.Context, programID string) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, l := range m.lessons {
		if l.ProgramID == programID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLessons) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	for _, l := range m.lessons {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockProgress struct {
	mu      sync.Mutex
	records map[string]models.Progress
}

func (m *mockProgress) Record(ctx context.Context, progress *models.Progress) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]models.Progress)
	}
	key := progress.EnrollmentID + "|" + progress.LessonID
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	progress.ID = "PROG-" + progress.LessonID
	m.records[key] = *progress
	return true, nil
}

func (m *mockProgress) Find(ctx context.Context, enrollmentID, lessonID string) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.records[enrollmentID+"|"+lessonID]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProgress) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Progress
	for _, p := range m.records {
		if p.EnrollmentID == enrollmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

var enrolledAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testLessons() []models.Lesson {
	return []models.Lesson{
		{ID: "L-1-1", ProgramID: "prog-1", Term: 1, Week: 1},
		{ID: "L-1-3", ProgramID: "prog-1", Term: 1, Week: 3},
		{ID: "L-1-4", ProgramID: "prog-1", Term: 1, Week: 4},
		{ID: "L-2-1", ProgramID: "prog-1", Term: 2, Week: 1},
		{ID: "L-4-1", ProgramID: "prog-1", Term: 4, Week: 1},
	}
}

func newDripFixture(now time.Time, enrollment models.Enrollment) (*DripService, *mockDripEnrollments, *mockProgress, *mockAuditRepo) {
	enrollments := &mockDripEnrollments{enrollments: map[string]models.Enrollment{enrollment.ID: enrollment}}
	progress := &mockProgress{}
	audit, auditRepo, _, _ := newSideEffects()
	svc := NewDripService(enrollments, &mockLessons{lessons: testLessons()}, progress, calendar.DefaultPattern(), audit, nil, nil)
	svc.now = fixedClock(now)
	return svc, enrollments, progress, auditRepo
}

func baseEnrollment(term, week int) models.Enrollment {
	return models.Enrollment{
		ID:             "ENR-1",
		StudentID:      "student-1",
		ProgramID:      "prog-1",
		EnrollmentDate: enrolledAt,
		CurrentTerm:    term,
		CurrentWeek:    week,
		Status:         models.EnrollmentStatusActive,
	}
}

func TestDripRefreshPositionWritesOnlyOnChange(t *testing.T) {
	now := enrolledAt.Add(2*7*24*time.Hour + time.Hour)
	enrollment := baseEnrollment(1, 1)
	svc, repo, _, _ := newDripFixture(now, enrollment)

	refreshed, err := svc.RefreshPosition(context.Background(), enrollment)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.CurrentTerm)
	assert.Equal(t, 3, refreshed.CurrentWeek)
	assert.Equal(t, 1, enrollment.CurrentWeek, "input must not be modified")
	require.Len(t, repo.updates, 1)

	again, err := svc.RefreshPosition(context.Background(), refreshed)
	require.NoError(t, err)
	assert.Equal(t, refreshed, again)
	assert.Len(t, repo.updates, 1, "second refresh must not write")
}

func TestDripRefreshPositionCompletes(t *testing.T) {
	now := enrolledAt.Add(30 * 7 * 24 * time.Hour)
	enrollment := baseEnrollment(3, 5)
	svc, repo, _, _ := newDripFixture(now, enrollment)

	refreshed, err := svc.RefreshPosition(context.Background(), enrollment)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, refreshed.Status)
	assert.Equal(t, 3, refreshed.CurrentTerm)
	assert.Equal(t, 6, refreshed.CurrentWeek)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, models.EnrollmentStatusCompleted, repo.updates[0].status)
}

func TestDripAvailableLessonsEligibility(t *testing.T) {
	now := enrolledAt.Add(2*7*24*time.Hour + time.Hour)
	// Cached position is ahead of the clock: week 4 is eligible but not yet open.
	enrollment := baseEnrollment(1, 4)
	svc, _, _, _ := newDripFixture(now, enrollment)

	lessons := testLessons()
	original := slices.Clone(lessons)
	got := slices.Collect(svc.AvailableLessons(enrollment, lessons))

	require.Len(t, got, 3)
	assert.Equal(t, "L-1-1", got[0].ID)
	assert.True(t, got[0].IsAvailable)
	assert.Equal(t, enrolledAt, got[0].AvailableFrom)
	assert.Equal(t, "L-1-3", got[1].ID)
	assert.True(t, got[1].IsAvailable)
	assert.Equal(t, "L-1-4", got[2].ID)
	assert.False(t, got[2].IsAvailable)
	assert.Equal(t, enrolledAt.Add(3*7*24*time.Hour), got[2].AvailableFrom)

	assert.Equal(t, original, lessons)
	again := slices.Collect(svc.AvailableLessons(enrollment, lessons))
	assert.Equal(t, got, again)
}

func TestDripAvailableLessonsIncludesEarlierTerms(t *testing.T) {
	now := enrolledAt.Add(9 * 7 * 24 * time.Hour)
	enrollment := baseEnrollment(2, 2)
	svc, _, _, _ := newDripFixture(now, enrollment)

	var ids []string
	for lesson := range svc.AvailableLessons(enrollment, testLessons()) {
		ids = append(ids, lesson.ID)
		assert.True(t, lesson.IsAvailable)
	}
	assert.Equal(t, []string{"L-1-1", "L-1-3", "L-1-4", "L-2-1"}, ids)
}

func TestDripListAvailableLessonsRefreshesFirst(t *testing.T) {
	now := enrolledAt.Add(3*7*24*time.Hour + time.Hour)
	svc, repo, _, _ := newDripFixture(now, baseEnrollment(1, 1))

	lessons, enrollment, err := svc.ListAvailableLessons(context.Background(), "ENR-1")
	require.NoError(t, err)
	assert.Equal(t, 4, enrollment.CurrentWeek)
	assert.Len(t, lessons, 3)
	assert.Len(t, repo.updates, 1)

	_, _, err = svc.ListAvailableLessons(context.Background(), "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestDripListLessonsReturnsWholeSyllabus(t *testing.T) {
	svc, _, _, _ := newDripFixture(testNow, baseEnrollment(1, 1))

	lessons, err := svc.ListLessons(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Len(t, lessons, len(testLessons()))

	empty, err := svc.ListLessons(context.Background(), "prog-unknown")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.ListLessons(context.Background(), "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestDripRecordCompletion(t *testing.T) {
	svc, _, progress, auditRepo := newDripFixture(testNow, baseEnrollment(1, 1))

	first, err := svc.RecordCompletion(context.Background(), "student-1", "L-1-1")
	require.NoError(t, err)
	assert.Equal(t, "ENR-1", first.EnrollmentID)
	assert.Equal(t, testNow, first.CompletedAt)

	second, err := svc.RecordCompletion(context.Background(), "student-1", "L-1-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, progress.records, 1)
	assert.Equal(t, []string{models.AuditActionLessonComplete}, auditRepo.actions())
}

func TestDripRecordCompletionNotFound(t *testing.T) {
	svc, _, progress, _ := newDripFixture(testNow, baseEnrollment(1, 1))

	_, err := svc.RecordCompletion(context.Background(), "student-2", "L-1-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.RecordCompletion(context.Background(), "student-1", "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Empty(t, progress.records)
}

func TestDripProgressSummary(t *testing.T) {
	now := enrolledAt.Add(2*7*24*time.Hour + time.Hour)
	svc, _, _, _ := newDripFixture(now, baseEnrollment(1, 1))
	_, err := svc.RecordCompletion(context.Background(), "student-1", "L-1-1")
	require.NoError(t, err)

	summary, err := svc.ProgressSummary(context.Background(), "ENR-1")
	require.NoError(t, err)
	assert.Equal(t, calendar.Position{Term: 1, Week: 3}, summary.Position)
	assert.Equal(t, 5, summary.TotalLessons)
	assert.Equal(t, 1, summary.CompletedCount)
	assert.Equal(t, []string{"L-1-1"}, summary.CompletedLessonIDs)
	assert.Len(t, summary.Lessons, 2)
}
