package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/promenade-labs/authcore/internal/auth"
	"github.com/promenade-labs/authcore/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const backupCodeHashCost = bcrypt.DefaultCost

// MFAStore defines the enrollment-store operations the service needs
type MFAStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.MFAEnrollment, error)
	Upsert(ctx context.Context, enrollment *models.MFAEnrollment) error
	SetEnabled(ctx context.Context, userID string, enabled, verified bool) error
	UpdateLastUsedAt(ctx context.Context, userID string, usedAt time.Time) error
	MarkBackupCodeUsed(ctx context.Context, userID string, index int, codeHash string, usedAt time.Time) (bool, error)
	ReplaceBackupCodes(ctx context.Context, userID string, codes []models.BackupCodeEntry) error
}

// PasswordVerifier re-authenticates a user's current password against the
// external auth provider. Returns ErrInvalidCredentials on mismatch.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID, password string) error
}

// MFAConfig holds MFA tuning
type MFAConfig struct {
	BackupCodeCount int
}

// MFAService manages TOTP enrollment, verification, and backup codes.
// Per-user state moves NotEnrolled -> PendingVerification -> Enabled ->
// Disabled; a fresh Enroll from Disabled re-enters PendingVerification.
type MFAService struct {
	store    MFAStore
	verifier PasswordVerifier
	totpMgr  *auth.TOTPManager
	audit    *AuditService
	notifier SecurityNotifier
	config   MFAConfig
	logger   *slog.Logger
}

// NewMFAService creates a new MFA service. notifier may be nil.
func NewMFAService(
	store MFAStore,
	verifier PasswordVerifier,
	totpMgr *auth.TOTPManager,
	audit *AuditService,
	notifier SecurityNotifier,
	config MFAConfig,
	logger *slog.Logger,
) *MFAService {
	return &MFAService{
		store:    store,
		verifier: verifier,
		totpMgr:  totpMgr,
		audit:    audit,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// Enroll generates a fresh TOTP secret and backup codes for a user and
// persists the enrollment as pending. The secret and plaintext codes are
// returned exactly once for the UI to display.
func (s *MFAService) Enroll(ctx context.Context, userID, email string) (*models.MFASetup, error) {
	existing, err := s.store.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to read MFA enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if existing != nil && existing.Enabled {
		return nil, models.ErrMFAAlreadyEnabled
	}

	encrypted, nonce, secret, provisioningURL, qrImage, err := s.totpMgr.GenerateEnrollment(email)
	if err != nil {
		s.logger.Error("failed to generate TOTP enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	codes, entries, err := s.generateBackupCodeSet()
	if err != nil {
		s.logger.Error("failed to generate backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	enrollment := &models.MFAEnrollment{
		UserID:              userID,
		Email:               email,
		TOTPSecretEncrypted: encrypted,
		TOTPSecretNonce:     nonce,
		BackupCodes:         entries,
		Enabled:             false,
		Verified:            false,
	}

	if err := s.store.Upsert(ctx, enrollment); err != nil {
		s.logger.Error("failed to persist MFA enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, models.AuditEventMFAEnrollmentStarted, userID, nil)

	s.logger.Info("MFA enrollment initiated", slog.String("user_id", userID))

	return &models.MFASetup{
		Secret:      secret,
		QRPayload:   provisioningURL,
		QRImage:     qrImage,
		BackupCodes: codes,
	}, nil
}

// ConfirmEnrollment verifies the first TOTP code and enables MFA.
// An invalid code leaves the enrollment untouched.
func (s *MFAService) ConfirmEnrollment(ctx context.Context, userID, token string) error {
	if !auth.IsWellFormedCode(token) {
		return models.ErrInvalidCode
	}

	enrollment, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrMFANotEnrolled
		}
		s.logger.Error("failed to read MFA enrollment", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if enrollment.Enabled {
		return models.ErrMFAAlreadyEnabled
	}

	secret, err := s.totpMgr.DecryptSecret(enrollment.TOTPSecretEncrypted, enrollment.TOTPSecretNonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.Any("error", err))
		return models.ErrInternalServer
	}

	valid, err := s.totpMgr.ValidateCode(string(secret), token, nil)
	if err != nil || !valid {
		return models.ErrInvalidCode
	}

	if err := s.store.SetEnabled(ctx, userID, true, true); err != nil {
		s.logger.Error("failed to enable MFA", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.store.UpdateLastUsedAt(ctx, userID, time.Now()); err != nil {
		s.logger.Error("failed to update TOTP last used time", slog.Any("error", err))
	}

	s.audit.Record(ctx, models.AuditEventMFAEnabled, userID, nil)
	s.notifyChange(ctx, enrollment.Email, "enabled")

	s.logger.Info("MFA enabled", slog.String("user_id", userID))
	return nil
}

// VerifyLogin validates a TOTP code or a backup code during login. Exactly
// one of token and backupCode must be supplied. Every outcome is audited.
func (s *MFAService) VerifyLogin(ctx context.Context, userID, token, backupCode string) (*models.MFAVerification, error) {
	if (token == "") == (backupCode == "") {
		return nil, models.ErrBadRequest
	}

	enrollment, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrMFANotEnrolled
		}
		s.logger.Error("failed to read MFA enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !enrollment.Enabled {
		return nil, models.ErrMFANotEnabled
	}

	if backupCode != "" {
		return s.verifyBackupCode(ctx, enrollment, backupCode)
	}

	return s.verifyTOTP(ctx, enrollment, token)
}

func (s *MFAService) verifyTOTP(ctx context.Context, enrollment *models.MFAEnrollment, token string) (*models.MFAVerification, error) {
	failed := &models.MFAVerification{Success: false, RequiresBackupCode: true}

	if !auth.IsWellFormedCode(token) {
		s.audit.Record(ctx, models.AuditEventMFAFailed, enrollment.UserID, models.AuditMetadata{"reason": "malformed_code"})
		return failed, models.ErrInvalidCode
	}

	secret, err := s.totpMgr.DecryptSecret(enrollment.TOTPSecretEncrypted, enrollment.TOTPSecretNonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	valid, err := s.totpMgr.ValidateCode(string(secret), token, enrollment.LastUsedAt)
	if err != nil || !valid {
		s.audit.Record(ctx, models.AuditEventMFAFailed, enrollment.UserID, models.AuditMetadata{"reason": "invalid_code"})
		return failed, models.ErrInvalidCode
	}

	if err := s.store.UpdateLastUsedAt(ctx, enrollment.UserID, time.Now()); err != nil {
		s.logger.Error("failed to update TOTP last used time", slog.Any("error", err))
	}

	s.audit.Record(ctx, models.AuditEventMFAVerified, enrollment.UserID, nil)
	return &models.MFAVerification{Success: true}, nil
}

func (s *MFAService) verifyBackupCode(ctx context.Context, enrollment *models.MFAEnrollment, code string) (*models.MFAVerification, error) {
	for i, entry := range enrollment.BackupCodes {
		if entry.UsedAt != nil {
			continue
		}

		if bcrypt.CompareHashAndPassword([]byte(entry.CodeHash), []byte(code)) != nil {
			continue
		}

		// Compare-and-swap in the store so two requests can never consume
		// the same code
		consumed, err := s.store.MarkBackupCodeUsed(ctx, enrollment.UserID, i, entry.CodeHash, time.Now())
		if err != nil {
			s.logger.Error("failed to consume backup code", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if !consumed {
			break
		}

		s.audit.Record(ctx, models.AuditEventMFABackupCodeUsed, enrollment.UserID, models.AuditMetadata{
			"codes_remaining": enrollment.RemainingBackupCodes() - 1,
		})
		s.logger.Info("backup code used", slog.String("user_id", enrollment.UserID))

		return &models.MFAVerification{Success: true, BackupCodeUsed: true}, nil
	}

	s.audit.Record(ctx, models.AuditEventMFAFailed, enrollment.UserID, models.AuditMetadata{"reason": "invalid_backup_code"})
	return &models.MFAVerification{Success: false}, models.ErrInvalidCode
}

// Disable turns MFA off after re-authenticating the current password.
// A wrong password leaves the enrollment untouched.
func (s *MFAService) Disable(ctx context.Context, userID, password string) error {
	enrollment, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrMFANotEnrolled
		}
		s.logger.Error("failed to read MFA enrollment", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !enrollment.Enabled {
		return models.ErrMFANotEnabled
	}

	if err := s.verifier.VerifyPassword(ctx, userID, password); err != nil {
		return models.ErrInvalidCredentials
	}

	if err := s.store.SetEnabled(ctx, userID, false, false); err != nil {
		s.logger.Error("failed to disable MFA", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.Record(ctx, models.AuditEventMFADisabled, userID, nil)
	s.notifyChange(ctx, enrollment.Email, "disabled")

	s.logger.Info("MFA disabled", slog.String("user_id", userID))
	return nil
}

// GetStatus returns the MFA state for a user. A user with no enrollment is
// reported as not enabled rather than an error.
func (s *MFAService) GetStatus(ctx context.Context, userID string) (*models.MFAStatus, error) {
	enrollment, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.MFAStatus{}, nil
		}
		s.logger.Error("failed to read MFA enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.MFAStatus{
		Enabled:              enrollment.Enabled,
		Verified:             enrollment.Verified,
		BackupCodesRemaining: enrollment.RemainingBackupCodes(),
	}, nil
}

// RegenerateBackupCodes replaces the entire backup code set. All previously
// issued codes become invalid immediately.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	enrollment, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrMFANotEnrolled
		}
		s.logger.Error("failed to read MFA enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !enrollment.Enabled {
		return nil, models.ErrMFANotEnabled
	}

	codes, entries, err := s.generateBackupCodeSet()
	if err != nil {
		s.logger.Error("failed to generate backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.store.ReplaceBackupCodes(ctx, userID, entries); err != nil {
		s.logger.Error("failed to replace backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.Record(ctx, models.AuditEventMFABackupCodesReissued, userID, models.AuditMetadata{
		"code_count": len(codes),
	})
	s.notifyChange(ctx, enrollment.Email, "backup codes regenerated")

	s.logger.Info("backup codes regenerated", slog.String("user_id", userID))
	return codes, nil
}

func (s *MFAService) generateBackupCodeSet() ([]string, []models.BackupCodeEntry, error) {
	codes, err := s.totpMgr.GenerateBackupCodes(s.config.BackupCodeCount)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	entries := make([]models.BackupCodeEntry, len(codes))
	for i, code := range codes {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), backupCodeHashCost)
		if err != nil {
			return nil, nil, err
		}
		entries[i] = models.BackupCodeEntry{
			CodeHash:  string(hash),
			CreatedAt: now,
		}
	}

	return codes, entries, nil
}

func (s *MFAService) notifyChange(ctx context.Context, email, event string) {
	if s.notifier == nil || email == "" {
		return
	}
	if err := s.notifier.NotifyMFAChanged(ctx, email, event); err != nil {
		s.logger.Error("failed to send MFA change notification",
			slog.String("event", event),
			slog.Any("error", err))
	}
}
