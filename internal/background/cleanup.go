package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/promenade-labs/authcore/internal/repositories"
)

// Audit entries are kept for 90 days
const auditRetention = 90 * 24 * time.Hour

// CleanupManager periodically prunes stale attempt records and old audit
// entries. Attempt rows are never deleted on the request path; retention is
// handled here.
type CleanupManager struct {
	attemptRepo *repositories.FailedLoginRepository
	auditRepo   *repositories.AuditLogRepository
	retention   time.Duration
	interval    time.Duration
	logger      *slog.Logger
	stopCh      chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attemptRepo *repositories.FailedLoginRepository,
	auditRepo *repositories.AuditLogRepository,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *CleanupManager {
	return &CleanupManager{
		attemptRepo: attemptRepo,
		auditRepo:   auditRepo,
		retention:   retention,
		interval:    interval,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deleted, err := cm.attemptRepo.DeleteStale(cleanupCtx, time.Now().Add(-cm.retention))
	if err != nil {
		cm.logger.Error("failed to prune stale login attempts", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("stale login attempts pruned", slog.Int64("rows_deleted", deleted))
	}

	deleted, err = cm.auditRepo.DeleteOlderThan(cleanupCtx, time.Now().Add(-auditRetention))
	if err != nil {
		cm.logger.Error("failed to prune audit logs", slog.Any("error", err))
	} else if deleted > 0 {
		cm.logger.Info("old audit logs pruned", slog.Int64("rows_deleted", deleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
