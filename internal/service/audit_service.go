package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/raveone/lms-api/internal/models"
)

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditService records committed mutations. Failures are logged, never
// returned.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record writes an audit entry detached from the request's cancellation.
func (s *AuditService) Record(ctx context.Context, actorID, action, entityType, entityID string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.AuditLog{Action: action, EntityType: entityType, EntityID: entityID}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn("audit details not serialisable", zap.String("action", action), zap.Error(err))
		} else {
			entry.Details = raw
		}
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to record audit log",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}
