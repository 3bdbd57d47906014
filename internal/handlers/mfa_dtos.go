package handlers

// MFAEnrollRequest starts TOTP enrollment for a user
type MFAEnrollRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

// MFAConfirmRequest verifies the first TOTP code and enables MFA
type MFAConfirmRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Token  string `json:"token" validate:"required,len=6,numeric"`
}

// MFAVerifyRequest validates a TOTP code or a backup code at login time.
// Exactly one of token and backup_code must be supplied.
type MFAVerifyRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	Token      string `json:"token,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
}

// MFADisableRequest turns MFA off after password re-authentication
type MFADisableRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// MFARegenerateRequest replaces the backup code set
type MFARegenerateRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
