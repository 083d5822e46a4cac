package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/internal/models"
)

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// AuditService writes audit entries on a best-effort basis: a failed write is
// logged and never fails the audited operation.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs the service. A nil repo disables auditing.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record stores one entry. before and after are JSON encoded when non-nil.
func (s *AuditService) Record(ctx context.Context, caller models.Caller, action, resource, resourceID string, before, after interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		OldValues: s.encode(before),
		NewValues: s.encode(after),
		IPAddress: caller.IP,
		UserAgent: caller.UserAgent,
	}
	if caller.UserID != "" {
		uid := caller.UserID
		entry.UserID = &uid
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
	}
}

func (s *AuditService) encode(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode audit payload", zap.Error(err))
		return nil
	}
	return raw
}
