package handlers_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/promenade-labs/authcore/internal/auth"
	"github.com/promenade-labs/authcore/internal/handlers"
	"github.com/promenade-labs/authcore/internal/models"
	"github.com/promenade-labs/authcore/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMFAHandler(t *testing.T) (*handlers.MFAHandler, *services.MockMFAStore) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	totpMgr, err := auth.NewTOTPManager([]byte("0123456789abcdef0123456789abcdef"), "Promenade")
	require.NoError(t, err)

	store := services.NewMockMFAStore()
	service := services.NewMFAService(
		store,
		&services.MockPasswordVerifier{Password: "correct horse"},
		totpMgr,
		services.NewAuditService(&services.MockAuditLogStore{}, logger),
		&services.MockNotifier{},
		services.MFAConfig{BackupCodeCount: 10},
		logger,
	)

	return handlers.NewMFAHandler(service, logger), store
}

func TestMFAEnroll_ReturnsSetup(t *testing.T) {
	handler, _ := newMFAHandler(t)

	req := handlers.NewTestRequest(t, "POST", "/v1/mfa/enroll", handlers.MFAEnrollRequest{
		UserID: "user-1",
		Email:  "user-1@example.com",
	})
	w := httptest.NewRecorder()
	handler.Enroll(w, req)

	var setup models.MFASetup
	handlers.AssertJSONResponse(t, w, 201, &setup)
	assert.NotEmpty(t, setup.Secret)
	assert.NotEmpty(t, setup.QRPayload)
	assert.Len(t, setup.BackupCodes, 10)
}

func TestMFAEnroll_InvalidEmail(t *testing.T) {
	handler, _ := newMFAHandler(t)

	req := handlers.NewTestRequest(t, "POST", "/v1/mfa/enroll", handlers.MFAEnrollRequest{
		UserID: "user-1",
		Email:  "not-an-email",
	})
	w := httptest.NewRecorder()
	handler.Enroll(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestMFAConfirm_EnablesAfterValidCode(t *testing.T) {
	handler, _ := newMFAHandler(t)

	enrollReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/enroll", handlers.MFAEnrollRequest{
		UserID: "user-1",
		Email:  "user-1@example.com",
	})
	enrollW := httptest.NewRecorder()
	handler.Enroll(enrollW, enrollReq)

	var setup models.MFASetup
	handlers.AssertJSONResponse(t, enrollW, 201, &setup)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	confirmReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/confirm", handlers.MFAConfirmRequest{
		UserID: "user-1",
		Token:  code,
	})
	confirmW := httptest.NewRecorder()
	handler.Confirm(confirmW, confirmReq)

	var resp map[string]bool
	handlers.AssertJSONResponse(t, confirmW, 200, &resp)
	assert.True(t, resp["enabled"])
}

func TestMFAConfirm_GenericUnauthorizedOnBadCode(t *testing.T) {
	handler, _ := newMFAHandler(t)

	enrollReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/enroll", handlers.MFAEnrollRequest{
		UserID: "user-1",
		Email:  "user-1@example.com",
	})
	handler.Enroll(httptest.NewRecorder(), enrollReq)

	confirmReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/confirm", handlers.MFAConfirmRequest{
		UserID: "user-1",
		Token:  "000000",
	})
	w := httptest.NewRecorder()
	handler.Confirm(w, confirmReq)

	assert.Equal(t, 401, w.Code)
	// Response never reveals which factor failed
	assert.Contains(t, w.Body.String(), "invalid credentials or verification code")
}

func TestMFAVerify_BackupCodeHintOnFailure(t *testing.T) {
	handler, store := newMFAHandler(t)

	enrollReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/enroll", handlers.MFAEnrollRequest{
		UserID: "user-1",
		Email:  "user-1@example.com",
	})
	handler.Enroll(httptest.NewRecorder(), enrollReq)
	require.NoError(t, store.SetEnabled(context.Background(), "user-1", true, true))

	verifyReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/verify", handlers.MFAVerifyRequest{
		UserID: "user-1",
		Token:  "000000",
	})
	w := httptest.NewRecorder()
	handler.Verify(w, verifyReq)

	var verification models.MFAVerification
	handlers.AssertJSONResponse(t, w, 401, &verification)
	assert.False(t, verification.Success)
	assert.True(t, verification.RequiresBackupCode)
}

func TestMFAVerify_NotConfigured(t *testing.T) {
	handler, _ := newMFAHandler(t)

	verifyReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/verify", handlers.MFAVerifyRequest{
		UserID: "ghost",
		Token:  "123456",
	})
	w := httptest.NewRecorder()
	handler.Verify(w, verifyReq)

	assert.Equal(t, 404, w.Code)
}

func TestMFADisable_WrongPassword(t *testing.T) {
	handler, store := newMFAHandler(t)

	enrollReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/enroll", handlers.MFAEnrollRequest{
		UserID: "user-1",
		Email:  "user-1@example.com",
	})
	handler.Enroll(httptest.NewRecorder(), enrollReq)
	require.NoError(t, store.SetEnabled(context.Background(), "user-1", true, true))

	disableReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/disable", handlers.MFADisableRequest{
		UserID:   "user-1",
		Password: "wrong",
	})
	w := httptest.NewRecorder()
	handler.Disable(w, disableReq)

	assert.Equal(t, 401, w.Code)
}

func TestMFAStatus_ByURLParam(t *testing.T) {
	handler, _ := newMFAHandler(t)

	enrollReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/enroll", handlers.MFAEnrollRequest{
		UserID: "user-1",
		Email:  "user-1@example.com",
	})
	handler.Enroll(httptest.NewRecorder(), enrollReq)

	statusReq := handlers.WithURLParam(handlers.NewTestRequest(t, "GET", "/v1/mfa/status/user-1", nil), "userID", "user-1")
	w := httptest.NewRecorder()
	handler.Status(w, statusReq)

	var status models.MFAStatus
	handlers.AssertJSONResponse(t, w, 200, &status)
	assert.False(t, status.Enabled)
	assert.Equal(t, 10, status.BackupCodesRemaining)
}

func TestMFARegenerate_RequiresEnabled(t *testing.T) {
	handler, _ := newMFAHandler(t)

	enrollReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/enroll", handlers.MFAEnrollRequest{
		UserID: "user-1",
		Email:  "user-1@example.com",
	})
	handler.Enroll(httptest.NewRecorder(), enrollReq)

	regenReq := handlers.NewTestRequest(t, "POST", "/v1/mfa/backup-codes/regenerate", handlers.MFARegenerateRequest{
		UserID: "user-1",
	})
	w := httptest.NewRecorder()
	handler.RegenerateBackupCodes(w, regenReq)

	assert.Equal(t, 400, w.Code)
}
