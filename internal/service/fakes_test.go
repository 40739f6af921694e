package service

import (
	"context"
	"sync"
	"time"

	"github.com/raveone/lms-api/internal/models"
)

var testNow = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type mockAuditRepo struct {
	mu   sync.Mutex
	logs []models.AuditLog
	err  error
}

func (m *mockAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type mockPublisher struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (m *mockPublisher) Publish(ctx context.Context, n models.Notification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.sent = append(m.sent, n)
	return 1, nil
}

func (m *mockPublisher) events() []models.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.NotificationEvent, 0, len(m.sent))
	for _, n := range m.sent {
		out = append(out, n.Event)
	}
	return out
}

// newSideEffects returns an audit service and an inline notifier backed by spies.
func newSideEffects() (*AuditService, *mockAuditRepo, *NotificationService, *mockPublisher) {
	auditRepo := &mockAuditRepo{}
	publisher := &mockPublisher{}
	return NewAuditService(auditRepo, nil), auditRepo, NewNotificationService(publisher, nil, nil), publisher
}
