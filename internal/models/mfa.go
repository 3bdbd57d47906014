package models

import "time"

// MFAEnrollment represents a user's TOTP enrollment. One per user at most.
// The secret is stored AES-256-GCM encrypted and is immutable once verified.
type MFAEnrollment struct {
	UserID              string
	Email               string
	TOTPSecretEncrypted []byte // AES-256-GCM ciphertext
	TOTPSecretNonce     []byte // GCM nonce (12 bytes)
	BackupCodes         []BackupCodeEntry
	Enabled             bool
	Verified            bool
	LastUsedAt          *time.Time // for TOTP replay prevention
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// BackupCodeEntry represents a single-use recovery code
type BackupCodeEntry struct {
	CodeHash  string     `json:"code_hash"` // bcrypt hash of the code
	UsedAt    *time.Time `json:"used_at"`   // nil = unused
	CreatedAt time.Time  `json:"created_at"`
}

// RemainingBackupCodes counts codes that have not been consumed yet.
func (e *MFAEnrollment) RemainingBackupCodes() int {
	n := 0
	for _, c := range e.BackupCodes {
		if c.UsedAt == nil {
			n++
		}
	}
	return n
}

// MFASetup contains enrollment material returned to the user exactly once
type MFASetup struct {
	Secret      string   `json:"secret"`       // base32 TOTP secret
	QRPayload   string   `json:"qr_payload"`   // otpauth:// provisioning URL
	QRImage     string   `json:"qr_image"`     // PNG data URL for direct rendering
	BackupCodes []string `json:"backup_codes"` // plaintext codes, shown once
}

// MFAVerification is the outcome of a login-time code check
type MFAVerification struct {
	Success            bool `json:"success"`
	BackupCodeUsed     bool `json:"backup_code_used"`
	RequiresBackupCode bool `json:"requires_backup_code,omitempty"`
}

// MFAStatus summarizes a user's MFA state
type MFAStatus struct {
	Enabled              bool `json:"enabled"`
	Verified             bool `json:"verified"`
	BackupCodesRemaining int  `json:"backup_codes_remaining"`
}
