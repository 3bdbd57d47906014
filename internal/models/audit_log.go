package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types for security audit logging
const (
	AuditEventMFAEnrollmentStarted   = "mfa_enrollment_initiated"
	AuditEventMFAEnabled             = "mfa_enabled"
	AuditEventMFADisabled            = "mfa_disabled"
	AuditEventMFAVerified            = "mfa_login_verified"
	AuditEventMFAFailed              = "mfa_login_failed"
	AuditEventMFABackupCodeUsed      = "mfa_backup_code_used"
	AuditEventMFABackupCodesReissued = "mfa_backup_codes_regenerated"
	AuditEventLoginLockout           = "login_lockout"
)

type AuditLog struct {
	ID        uuid.UUID     `db:"id"`
	EventType string        `db:"event_type"`
	UserID    string        `db:"user_id"`
	Metadata  AuditMetadata `db:"metadata"`
	CreatedAt time.Time     `db:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for AuditMetadata: %T", value)
	}

	return json.Unmarshal(data, am)
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(am)
}
