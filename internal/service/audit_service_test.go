package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditServiceRecord(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Record(ctx, "staff-1", "EXAM_BOOK", "exam_booking", "BOOK-1", map[string]interface{}{"exam_id": "EXAM-1"})

	require.Len(t, repo.logs, 1)
	entry := repo.logs[0]
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "staff-1", *entry.UserID)
	assert.Equal(t, "exam_booking", entry.EntityType)

	var details map[string]string
	require.NoError(t, json.Unmarshal(entry.Details, &details))
	assert.Equal(t, "EXAM-1", details["exam_id"])
}

func TestAuditServiceSwallowsFailures(t *testing.T) {
	repo := &mockAuditRepo{err: errors.New("db down")}
	svc := NewAuditService(repo, nil)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), "", "EXAM_BOOK", "exam_booking", "BOOK-1", nil)
	})

	var nilSvc *AuditService
	assert.NotPanics(t, func() {
		nilSvc.Record(context.Background(), "", "EXAM_BOOK", "exam_booking", "BOOK-1", nil)
	})
}
