package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/promenade-labs/authcore/internal/models"
	"github.com/promenade-labs/authcore/internal/services"
	pkghttp "github.com/promenade-labs/authcore/pkg/http"
)

// MFAHandler exposes MFA management endpoints for the consuming application
type MFAHandler struct {
	mfaService *services.MFAService
	logger     *slog.Logger
}

// NewMFAHandler creates a new MFAHandler
func NewMFAHandler(mfaService *services.MFAService, logger *slog.Logger) *MFAHandler {
	return &MFAHandler{mfaService: mfaService, logger: logger}
}

// Enroll handles POST /v1/mfa/enroll
func (h *MFAHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req MFAEnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	setup, err := h.mfaService.Enroll(r.Context(), req.UserID, req.Email)
	if err != nil {
		h.writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, setup)
}

// Confirm handles POST /v1/mfa/confirm
func (h *MFAHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req MFAConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.mfaService.ConfirmEnrollment(r.Context(), req.UserID, req.Token); err != nil {
		h.writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

// Verify handles POST /v1/mfa/verify
func (h *MFAHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req MFAVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	verification, err := h.mfaService.VerifyLogin(r.Context(), req.UserID, req.Token, req.BackupCode)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCode) && verification != nil {
			// Generic message plus the backup-code hint for the login UI
			pkghttp.WriteJSON(w, http.StatusUnauthorized, verification)
			return
		}
		h.writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, verification)
}

// Disable handles POST /v1/mfa/disable
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	var req MFADisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.mfaService.Disable(r.Context(), req.UserID, req.Password); err != nil {
		h.writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}

// Status handles GET /v1/mfa/status/{userID}
func (h *MFAHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	status, err := h.mfaService.GetStatus(r.Context(), userID)
	if err != nil {
		h.writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// RegenerateBackupCodes handles POST /v1/mfa/backup-codes/regenerate
func (h *MFAHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	var req MFARegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	codes, err := h.mfaService.RegenerateBackupCodes(r.Context(), req.UserID)
	if err != nil {
		h.writeMFAError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string][]string{"backup_codes": codes})
}

func (h *MFAHandler) writeMFAError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCode), errors.Is(err, models.ErrInvalidCredentials):
		// Deliberately generic: never reveal which factor failed
		pkghttp.WriteUnauthorized(w, "invalid credentials or verification code")
	case errors.Is(err, models.ErrMFANotEnrolled), errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "mfa not configured")
	case errors.Is(err, models.ErrMFANotEnabled):
		pkghttp.WriteBadRequest(w, "mfa not enabled")
	case errors.Is(err, models.ErrMFAAlreadyEnabled):
		pkghttp.WriteConflict(w, "mfa already enabled")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "invalid request")
	default:
		h.logger.Error("mfa handler error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "internal server error")
	}
}
