package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication security errors. Messages are intentionally generic so
	// callers never leak which factor failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLockedOut          = errors.New("account is temporarily locked")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrMFANotEnrolled     = errors.New("mfa not enrolled")
	ErrMFANotEnabled      = errors.New("mfa not enabled")
	ErrMFAAlreadyEnabled  = errors.New("mfa already enabled")

	// ErrDependencyUnavailable marks a store or network collaborator failure.
	// Read paths treat it as a warning and fail open; write paths surface it.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
