package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raveone/lms-api/internal/models"
	"github.com/raveone/lms-api/pkg/jobs"
)

type notificationPublisher interface {
	Publish(ctx context.Context, n models.Notification) (int64, error)
}

type notificationQueue interface {
	TryEnqueue(job jobs.Job) error
}

// NotificationService is fire-and-forget: Notify never returns an error and
// never blocks on delivery.
type NotificationService struct {
	publisher notificationPublisher
	queue     notificationQueue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService. Without an
// attached queue, notifications are published inline.
func NewNotificationService(publisher notificationPublisher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{publisher: publisher, metrics: metrics, logger: logger}
}

// AttachQueue routes Notify through a background queue whose handler is Handle.
func (s *NotificationService) AttachQueue(q notificationQueue) {
	s.queue = q
}

// Notify schedules delivery of event to userID.
func (s *NotificationService) Notify(ctx context.Context, userID string, event models.NotificationEvent, payload map[string]interface{}) {
	if s == nil {
		return
	}
	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Event:     event,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	if s.queue == nil {
		_ = s.deliver(context.WithoutCancel(ctx), n)
		return
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: n.ID, Type: string(event), Payload: n}); err != nil {
		s.metrics.RecordNotification(string(event), "dropped")
		s.logger.Warn("notification dropped", zap.String("user_id", userID), zap.String("event", string(event)), zap.Error(err))
		return
	}
	s.metrics.RecordNotification(string(event), "queued")
}

// Handle is the queue handler; returning an error triggers a retry.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	return s.deliver(ctx, n)
}

func (s *NotificationService) deliver(ctx context.Context, n models.Notification) error {
	if s.publisher == nil {
		return nil
	}
	receivers, err := s.publisher.Publish(ctx, n)
	if err != nil {
		s.metrics.RecordNotification(string(n.Event), "failed")
		s.logger.Warn("notification publish failed", zap.String("user_id", n.UserID), zap.String("event", string(n.Event)), zap.Error(err))
		return err
	}
	s.metrics.RecordNotification(string(n.Event), "delivered")
	s.logger.Debug("notification published", zap.String("user_id", n.UserID), zap.String("event", string(n.Event)), zap.Int64("receivers", receivers))
	return nil
}
