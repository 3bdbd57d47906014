package models

import "time"

// FailedLoginRecord tracks failed login attempts for a (email, ip) key.
// blocked_until is set exactly when attempt_count reaches the configured
// maximum within the current window.
type FailedLoginRecord struct {
	Email          string     `db:"email"`
	IPAddress      string     `db:"ip_address"`
	AttemptCount   int        `db:"attempt_count"`
	FirstAttemptAt time.Time  `db:"first_attempt_at"`
	LastAttemptAt  time.Time  `db:"last_attempt_at"`
	BlockedUntil   *time.Time `db:"blocked_until"`
}

// LoginCheck is the result of a brute-force guard check.
type LoginCheck struct {
	Blocked           bool       `json:"blocked"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	BlockedUntil      *time.Time `json:"blocked_until,omitempty"`
	RetryAfterSeconds int        `json:"retry_after_seconds,omitempty"`
}
