package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/promenade-labs/authcore/internal/database"
	"github.com/promenade-labs/authcore/internal/models"
)

// AuditLogRepository handles database operations for security audit logs
type AuditLogRepository struct {
	db *database.DB
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create appends an audit log entry
func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO audit_logs (id, event_type, user_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, now())
	`

	_, err := r.db.Pool.Exec(ctx, query,
		entry.ID,
		entry.EventType,
		entry.UserID,
		entry.Metadata,
	)

	return database.MapPostgresError(err)
}

// GetByUserID returns recent audit entries for a user, newest first
func (r *AuditLogRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, event_type, user_id, metadata, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		if err := rows.Scan(&entry.ID, &entry.EventType, &entry.UserID, &entry.Metadata, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &entry)
	}

	return logs, rows.Err()
}

// DeleteOlderThan prunes audit entries past the retention cutoff
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM audit_logs WHERE created_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
