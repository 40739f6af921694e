package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/internal/repository"
	"github.com/raveone/lms-api/pkg/calendar"
	appErrors "github.com/raveone/lms-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	created []models.Enrollment
	listed  []models.Enrollment
	err     error
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range m.listed {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.err != nil {
		return m.err
	}
	enrollment.ID = "ENR-new"
	m.created = append(m.created, *enrollment)
	return nil
}

type mockBatchRepo struct {
	batches map[string]models.Batch
	created []models.Batch
}

func (m *mockBatchRepo) Create(ctx context.Context, batch *models.Batch) error {
	batch.ID = "BATCH-new"
	m.created = append(m.created, *batch)
	return nil
}

func (m *mockBatchRepo) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if b, ok := m.batches[id]; ok {
		return &b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBatchRepo) List(ctx context.Context, programID string) ([]models.Batch, error) {
	return m.created, nil
}

func newEnrollmentFixture(now time.Time) (*EnrollmentService, *mockEnrollmentRepo, *mockDripEnrollments, *mockAuditRepo) {
	repo := &mockEnrollmentRepo{}
	batches := &mockBatchRepo{batches: map[string]models.Batch{
		"BATCH-1": {ID: "BATCH-1", ProgramID: "prog-1", StartDate: enrolledAt},
	}}
	dripRepo := &mockDripEnrollments{enrollments: map[string]models.Enrollment{}}
	audit, auditRepo, _, _ := newSideEffects()
	drip := NewDripService(dripRepo, &mockLessons{}, &mockProgress{}, calendar.DefaultPattern(), audit, nil, nil)
	drip.now = fixedClock(now)
	svc := NewEnrollmentService(repo, batches, drip, calendar.DefaultPattern(), audit, nil, nil)
	svc.now = fixedClock(now)
	return svc, repo, dripRepo, auditRepo
}

func TestEnrollmentServiceEnrollFromBatch(t *testing.T) {
	now := enrolledAt.Add(9 * 7 * 24 * time.Hour)
	svc, repo, _, auditRepo := newEnrollmentFixture(now)
	batchID := "BATCH-1"

	enrollment, err := svc.Enroll(context.Background(), models.CreateEnrollmentRequest{StudentID: "student-1", ProgramID: "prog-1", BatchID: &batchID}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, enrolledAt, enrollment.EnrollmentDate)
	assert.Equal(t, 2, enrollment.CurrentTerm)
	assert.Equal(t, 2, enrollment.CurrentWeek)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.Len(t, repo.created, 1)
	assert.Equal(t, []string{models.AuditActionEnroll}, auditRepo.actions())
}

func TestEnrollmentServiceEnrollDefaultsToNow(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture(testNow)

	enrollment, err := svc.Enroll(context.Background(), models.CreateEnrollmentRequest{StudentID: "student-1", ProgramID: "prog-1"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, testNow, enrollment.EnrollmentDate)
	assert.Equal(t, 1, enrollment.CurrentTerm)
	assert.Equal(t, 1, enrollment.CurrentWeek)
}

func TestEnrollmentServiceEnrollErrors(t *testing.T) {
	svc, repo, _, auditRepo := newEnrollmentFixture(testNow)

	_, err := svc.Enroll(context.Background(), models.CreateEnrollmentRequest{ProgramID: "prog-1"}, "admin-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	other := "BATCH-1"
	_, err = svc.Enroll(context.Background(), models.CreateEnrollmentRequest{StudentID: "student-1", ProgramID: "prog-2", BatchID: &other}, "admin-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	missing := "BATCH-404"
	_, err = svc.Enroll(context.Background(), models.CreateEnrollmentRequest{StudentID: "student-1", ProgramID: "prog-1", BatchID: &missing}, "admin-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	repo.err = repository.ErrUniqueViolation
	_, err = svc.Enroll(context.Background(), models.CreateEnrollmentRequest{StudentID: "student-1", ProgramID: "prog-1"}, "admin-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.Empty(t, auditRepo.actions())
}

func TestEnrollmentServiceStatusRefreshes(t *testing.T) {
	now := enrolledAt.Add(4 * 7 * 24 * time.Hour)
	svc, repo, dripRepo, _ := newEnrollmentFixture(now)
	repo.listed = []models.Enrollment{baseEnrollment(1, 1)}

	enrollments, err := svc.Status(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 5, enrollments[0].CurrentWeek)
	assert.Len(t, dripRepo.updates, 1)

	empty, err := svc.Status(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
