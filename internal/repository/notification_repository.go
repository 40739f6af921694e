package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/raveone/lms-api/internal/models"
)

// NotificationRepository publishes user notifications on Redis pub/sub.
// Delivery channels (push, email, messaging) subscribe to
// "<prefix>:<userID>" or pattern-subscribe to "<prefix>:*".
type NotificationRepository struct {
	client *redis.Client
	prefix string
}

// NewNotificationRepository constructs the publisher.
func NewNotificationRepository(client *redis.Client, prefix string) *NotificationRepository {
	if prefix == "" {
		prefix = "notifications"
	}
	return &NotificationRepository{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel of a user.
func (r *NotificationRepository) Channel(userID string) string {
	return r.prefix + ":" + userID
}

// Publish sends the notification and returns the number of receivers.
func (r *NotificationRepository) Publish(ctx context.Context, n models.Notification) (int64, error) {
	if r.client == nil {
		return 0, nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("marshal notification: %w", err)
	}
	receivers, err := r.client.Publish(ctx, r.Channel(n.UserID), payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publish notification: %w", err)
	}
	return receivers, nil
}
