package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/promenade-labs/authcore/internal/database"
	"github.com/promenade-labs/authcore/internal/models"
)

// MFARepository handles database operations for MFA enrollments
type MFARepository struct {
	db *database.DB
}

// NewMFARepository creates a new MFARepository
func NewMFARepository(db *database.DB) *MFARepository {
	return &MFARepository{db: db}
}

// GetByUserID returns the enrollment for a user, or ErrNotFound
func (r *MFARepository) GetByUserID(ctx context.Context, userID string) (*models.MFAEnrollment, error) {
	query := `
		SELECT user_id, email, totp_secret_encrypted, totp_secret_nonce, backup_codes,
		       enabled, verified, last_used_at, created_at, updated_at
		FROM mfa_enrollments
		WHERE user_id = $1
	`

	var enrollment models.MFAEnrollment
	var backupCodesJSON []byte
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&enrollment.UserID,
		&enrollment.Email,
		&enrollment.TOTPSecretEncrypted,
		&enrollment.TOTPSecretNonce,
		&backupCodesJSON,
		&enrollment.Enabled,
		&enrollment.Verified,
		&enrollment.LastUsedAt,
		&enrollment.CreatedAt,
		&enrollment.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if err := json.Unmarshal(backupCodesJSON, &enrollment.BackupCodes); err != nil {
		return nil, fmt.Errorf("failed to decode backup codes: %w", err)
	}

	return &enrollment, nil
}

// Upsert creates or replaces the enrollment for a user. A fresh enroll call
// after Disable replaces the previous secret and backup codes wholesale.
func (r *MFARepository) Upsert(ctx context.Context, enrollment *models.MFAEnrollment) error {
	backupCodesJSON, err := json.Marshal(enrollment.BackupCodes)
	if err != nil {
		return fmt.Errorf("failed to encode backup codes: %w", err)
	}

	query := `
		INSERT INTO mfa_enrollments (user_id, email, totp_secret_encrypted, totp_secret_nonce,
		                             backup_codes, enabled, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			email                 = EXCLUDED.email,
			totp_secret_encrypted = EXCLUDED.totp_secret_encrypted,
			totp_secret_nonce     = EXCLUDED.totp_secret_nonce,
			backup_codes          = EXCLUDED.backup_codes,
			enabled               = EXCLUDED.enabled,
			verified              = EXCLUDED.verified,
			last_used_at          = NULL,
			updated_at            = now()
	`

	_, err = r.db.Pool.Exec(ctx, query,
		enrollment.UserID,
		enrollment.Email,
		enrollment.TOTPSecretEncrypted,
		enrollment.TOTPSecretNonce,
		backupCodesJSON,
		enrollment.Enabled,
		enrollment.Verified,
	)

	return database.MapPostgresError(err)
}

// SetEnabled flips the enabled/verified flags for a user
func (r *MFARepository) SetEnabled(ctx context.Context, userID string, enabled, verified bool) error {
	query := `
		UPDATE mfa_enrollments
		SET enabled = $2, verified = $3, updated_at = now()
		WHERE user_id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, enabled, verified)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateLastUsedAt records the last successful TOTP validation time
func (r *MFARepository) UpdateLastUsedAt(ctx context.Context, userID string, usedAt time.Time) error {
	query := `UPDATE mfa_enrollments SET last_used_at = $2, updated_at = now() WHERE user_id = $1`

	_, err := r.db.Pool.Exec(ctx, query, userID, usedAt)
	return database.MapPostgresError(err)
}

// MarkBackupCodeUsed consumes exactly one backup code by index via a
// compare-and-swap on the stored hash. Returns false when another request
// already consumed the same code.
func (r *MFARepository) MarkBackupCodeUsed(ctx context.Context, userID string, index int, codeHash string, usedAt time.Time) (bool, error) {
	query := `
		UPDATE mfa_enrollments
		SET backup_codes = jsonb_set(backup_codes, ARRAY[$2::text, 'used_at'], to_jsonb($3::timestamptz)),
		    updated_at = now()
		WHERE user_id = $1
		  AND backup_codes->($2::int)->>'code_hash' = $4
		  AND backup_codes->($2::int)->>'used_at' IS NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, index, usedAt, codeHash)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReplaceBackupCodes replaces the entire backup code set for a user
func (r *MFARepository) ReplaceBackupCodes(ctx context.Context, userID string, codes []models.BackupCodeEntry) error {
	backupCodesJSON, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("failed to encode backup codes: %w", err)
	}

	query := `UPDATE mfa_enrollments SET backup_codes = $2, updated_at = now() WHERE user_id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, userID, backupCodesJSON)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
