package services

import (
	"context"
	"log/slog"

	"github.com/promenade-labs/authcore/internal/models"
)

// AuditLogStore appends audit entries
type AuditLogStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditService handles audit logging with a dual-write pattern (slog + store).
// Writes are synchronous but best-effort: a sink failure is logged and never
// propagated to the operation being audited.
type AuditService struct {
	store  AuditLogStore
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(store AuditLogStore, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:  store,
		logger: logger,
	}
}

// Record writes one audit entry for a security event
func (s *AuditService) Record(ctx context.Context, eventType, userID string, metadata models.AuditMetadata) {
	entry := &models.AuditLog{
		EventType: eventType,
		UserID:    userID,
		Metadata:  metadata,
	}

	// Dual-write: immediate slog output
	s.logger.InfoContext(ctx, "audit event",
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
		slog.Any("metadata", metadata),
	)

	if err := s.store.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("event_type", eventType),
			slog.Any("error", err),
		)
	}
}
