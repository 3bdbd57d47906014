package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/promenade-labs/authcore/internal/models"
)

// FailedLoginStore defines the attempt-store operations the guard needs.
// IncrementAttempt must be atomic per key so concurrent bursts never lose
// updates.
type FailedLoginStore interface {
	Get(ctx context.Context, email, ipAddress string) (*models.FailedLoginRecord, error)
	IncrementAttempt(ctx context.Context, email, ipAddress string, maxAttempts int, lockout time.Duration) (*models.FailedLoginRecord, error)
	Reset(ctx context.Context, email, ipAddress string) error
}

// BruteForceConfig holds lockout tuning
type BruteForceConfig struct {
	MaxAttempts     int
	AttemptWindow   time.Duration
	LockoutDuration time.Duration
}

// DefaultBruteForceConfig returns the production lockout policy:
// 5 attempts in a 15 minute window, 15 minute lockout.
func DefaultBruteForceConfig() BruteForceConfig {
	return BruteForceConfig{
		MaxAttempts:     5,
		AttemptWindow:   15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	}
}

// BruteForceGuard tracks failed login attempts keyed by (email, ip) and
// decides whether a login attempt may proceed.
type BruteForceGuard struct {
	store    FailedLoginStore
	audit    *AuditService
	notifier SecurityNotifier
	config   BruteForceConfig
	logger   *slog.Logger
}

// NewBruteForceGuard creates a new guard. notifier may be nil.
func NewBruteForceGuard(store FailedLoginStore, audit *AuditService, notifier SecurityNotifier, config BruteForceConfig, logger *slog.Logger) *BruteForceGuard {
	return &BruteForceGuard{
		store:    store,
		audit:    audit,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// Check reports whether a login attempt for (email, ip) may proceed.
// Store failures fail open: the returned check allows the attempt and the
// warning carries the dependency error for the caller to log. The only
// mutation is the window-expiry reset.
func (g *BruteForceGuard) Check(ctx context.Context, email, ipAddress string) (models.LoginCheck, error) {
	email = NormalizeEmail(email)
	now := time.Now()

	allowed := models.LoginCheck{Blocked: false, AttemptsRemaining: g.config.MaxAttempts}

	rec, err := g.store.Get(ctx, email, ipAddress)
	if errors.Is(err, models.ErrNotFound) {
		return allowed, nil
	}
	if err != nil {
		g.logger.Error("failed to read login attempts, failing open",
			slog.String("email", email),
			slog.Any("error", err))
		return allowed, fmt.Errorf("%w: %v", models.ErrDependencyUnavailable, err)
	}

	if rec.BlockedUntil != nil && rec.BlockedUntil.After(now) {
		retry := int(math.Ceil(rec.BlockedUntil.Sub(now).Seconds()))
		return models.LoginCheck{
			Blocked:           true,
			AttemptsRemaining: 0,
			BlockedUntil:      rec.BlockedUntil,
			RetryAfterSeconds: retry,
		}, nil
	}

	// Attempts outside the window are forgiven
	if now.Sub(rec.LastAttemptAt) > g.config.AttemptWindow {
		if err := g.store.Reset(ctx, email, ipAddress); err != nil {
			g.logger.Error("failed to reset stale login attempts",
				slog.String("email", email),
				slog.Any("error", err))
			return allowed, fmt.Errorf("%w: %v", models.ErrDependencyUnavailable, err)
		}
		return allowed, nil
	}

	remaining := g.config.MaxAttempts - rec.AttemptCount
	if remaining < 0 {
		remaining = 0
	}

	return models.LoginCheck{Blocked: false, AttemptsRemaining: remaining}, nil
}

// RecordFailure registers a failed login attempt. The increment is atomic in
// the store; reaching the maximum sets the lockout in the same statement.
// The returned error must not be ignored by callers that need the guarantee.
func (g *BruteForceGuard) RecordFailure(ctx context.Context, email, ipAddress string) (*models.FailedLoginRecord, error) {
	email = NormalizeEmail(email)

	rec, err := g.store.IncrementAttempt(ctx, email, ipAddress, g.config.MaxAttempts, g.config.LockoutDuration)
	if err != nil {
		g.logger.Error("failed to record login failure",
			slog.String("email", email),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrDependencyUnavailable, err)
	}

	// The attempt that crossed the threshold triggers lockout side effects
	if rec.AttemptCount == g.config.MaxAttempts && rec.BlockedUntil != nil {
		g.logger.Warn("login lockout triggered",
			slog.String("email", email),
			slog.String("ip_address", ipAddress),
			slog.Int("attempt_count", rec.AttemptCount),
			slog.Time("blocked_until", *rec.BlockedUntil))

		if g.audit != nil {
			g.audit.Record(ctx, models.AuditEventLoginLockout, email, models.AuditMetadata{
				"ip_address":    ipAddress,
				"attempt_count": rec.AttemptCount,
				"blocked_until": rec.BlockedUntil,
			})
		}

		if g.notifier != nil {
			if err := g.notifier.NotifyLockout(ctx, email, ipAddress, *rec.BlockedUntil); err != nil {
				g.logger.Error("failed to send lockout notification",
					slog.String("email", email),
					slog.Any("error", err))
			}
		}
	}

	return rec, nil
}

// ClearFailedAttempts resets the counter after a successful login
func (g *BruteForceGuard) ClearFailedAttempts(ctx context.Context, email, ipAddress string) error {
	email = NormalizeEmail(email)

	if err := g.store.Reset(ctx, email, ipAddress); err != nil {
		g.logger.Error("failed to clear login attempts",
			slog.String("email", email),
			slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrDependencyUnavailable, err)
	}

	return nil
}

// NormalizeEmail canonicalizes an email for keying attempt records
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
