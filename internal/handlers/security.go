package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/promenade-labs/authcore/internal/services"
	pkghttp "github.com/promenade-labs/authcore/pkg/http"
	"github.com/promenade-labs/authcore/pkg/password"
)

// LoginGuardRequest identifies a login attempt by email; the source IP is
// taken from the request headers.
type LoginGuardRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordValidateRequest evaluates a candidate password
type PasswordValidateRequest struct {
	Password               string `json:"password" validate:"required,max=128"`
	UserID                 string `json:"user_id,omitempty"`
	CheckBreach            bool   `json:"check_breach"`
	CheckHistory           bool   `json:"check_history"`
	RequireMinimumStrength bool   `json:"require_minimum_strength"`
}

// SecurityHandler exposes the brute-force guard and the password policy
// engine to the consuming application
type SecurityHandler struct {
	guard  *services.BruteForceGuard
	engine *password.Engine
	logger *slog.Logger
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(guard *services.BruteForceGuard, engine *password.Engine, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{guard: guard, engine: engine, logger: logger}
}

// CheckLogin handles POST /v1/login-guard/check
func (h *SecurityHandler) CheckLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGuardRequest(w, r)
	if !ok {
		return
	}

	check, warning := h.guard.Check(r.Context(), req.Email, pkghttp.ExtractClientIP(r))
	if warning != nil {
		// Fail open: the attempt store being down must not block logins
		h.logger.Warn("login guard degraded", slog.Any("error", warning))
	}

	if check.Blocked {
		w.Header().Set("Retry-After", strconv.Itoa(check.RetryAfterSeconds))
	}
	pkghttp.WriteJSON(w, http.StatusOK, check)
}

// RecordFailure handles POST /v1/login-guard/failure
func (h *SecurityHandler) RecordFailure(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGuardRequest(w, r)
	if !ok {
		return
	}

	rec, err := h.guard.RecordFailure(r.Context(), req.Email, pkghttp.ExtractClientIP(r))
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to record login failure")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]int{"attempt_count": rec.AttemptCount})
}

// ClearFailures handles POST /v1/login-guard/clear
func (h *SecurityHandler) ClearFailures(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGuardRequest(w, r)
	if !ok {
		return
	}

	if err := h.guard.ClearFailedAttempts(r.Context(), req.Email, pkghttp.ExtractClientIP(r)); err != nil {
		pkghttp.WriteInternalError(w, "failed to clear login attempts")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ValidatePassword handles POST /v1/password/validate
func (h *SecurityHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result := h.engine.ValidateComprehensive(r.Context(), req.Password, req.UserID, password.Options{
		CheckBreach:            req.CheckBreach,
		CheckHistory:           req.CheckHistory,
		RequireMinimumStrength: req.RequireMinimumStrength,
	})

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

func (h *SecurityHandler) decodeGuardRequest(w http.ResponseWriter, r *http.Request) (LoginGuardRequest, bool) {
	var req LoginGuardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return req, false
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return req, false
	}
	return req, true
}
