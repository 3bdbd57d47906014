package repositories

import (
	"context"
	"time"

	"github.com/promenade-labs/authcore/internal/database"
	"github.com/promenade-labs/authcore/internal/models"
)

// FailedLoginRepository handles database operations for failed login tracking
type FailedLoginRepository struct {
	db *database.DB
}

// NewFailedLoginRepository creates a new FailedLoginRepository
func NewFailedLoginRepository(db *database.DB) *FailedLoginRepository {
	return &FailedLoginRepository{db: db}
}

// Get returns the record for a (email, ip) key, or ErrNotFound
func (r *FailedLoginRepository) Get(ctx context.Context, email, ipAddress string) (*models.FailedLoginRecord, error) {
	query := `
		SELECT email, ip_address, attempt_count, first_attempt_at, last_attempt_at, blocked_until
		FROM failed_login_attempts
		WHERE email = $1 AND ip_address = $2
	`

	var rec models.FailedLoginRecord
	err := r.db.Pool.QueryRow(ctx, query, email, ipAddress).Scan(
		&rec.Email,
		&rec.IPAddress,
		&rec.AttemptCount,
		&rec.FirstAttemptAt,
		&rec.LastAttemptAt,
		&rec.BlockedUntil,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &rec, nil
}

// IncrementAttempt atomically upserts and increments the attempt counter for
// a key, setting blocked_until in the same statement once the new count
// reaches maxAttempts. Concurrent calls against the same key never lose
// increments. Returns the post-increment record.
func (r *FailedLoginRepository) IncrementAttempt(ctx context.Context, email, ipAddress string, maxAttempts int, lockout time.Duration) (*models.FailedLoginRecord, error) {
	query := `
		INSERT INTO failed_login_attempts (email, ip_address, attempt_count, first_attempt_at, last_attempt_at)
		VALUES ($1, $2, 1, now(), now())
		ON CONFLICT (email, ip_address) DO UPDATE SET
			attempt_count   = failed_login_attempts.attempt_count + 1,
			last_attempt_at = now(),
			blocked_until   = CASE
				WHEN failed_login_attempts.attempt_count + 1 >= $3
				THEN now() + $4
				ELSE failed_login_attempts.blocked_until
			END
		RETURNING email, ip_address, attempt_count, first_attempt_at, last_attempt_at, blocked_until
	`

	var rec models.FailedLoginRecord
	err := r.db.Pool.QueryRow(ctx, query, email, ipAddress, maxAttempts, lockout).Scan(
		&rec.Email,
		&rec.IPAddress,
		&rec.AttemptCount,
		&rec.FirstAttemptAt,
		&rec.LastAttemptAt,
		&rec.BlockedUntil,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &rec, nil
}

// Reset clears the attempt counter and any lockout for a key.
// Missing records are a no-op.
func (r *FailedLoginRepository) Reset(ctx context.Context, email, ipAddress string) error {
	query := `
		UPDATE failed_login_attempts
		SET attempt_count = 0, blocked_until = NULL, last_attempt_at = now()
		WHERE email = $1 AND ip_address = $2
	`

	_, err := r.db.Pool.Exec(ctx, query, email, ipAddress)
	return database.MapPostgresError(err)
}

// DeleteStale removes records whose last attempt is older than the retention cutoff
func (r *FailedLoginRepository) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM failed_login_attempts WHERE last_attempt_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
