package auth

import (
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *TOTPManager {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	tm, err := NewTOTPManager(key, "Promenade")
	require.NoError(t, err)
	return tm
}

func TestTOTPManager_NewTOTPManager_ValidKey(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	tm, err := NewTOTPManager(key, "Promenade")
	assert.NoError(t, err)
	assert.NotNil(t, tm)
}

func TestTOTPManager_NewTOTPManager_InvalidKeyLength(t *testing.T) {
	tests := []int{0, 16, 24, 31, 33, 64}
	for _, length := range tests {
		key := make([]byte, length)
		tm, err := NewTOTPManager(key, "Promenade")
		assert.Error(t, err)
		assert.Nil(t, tm)
		assert.Contains(t, err.Error(), "must be exactly 32 bytes")
	}
}

func TestTOTPManager_GenerateEnrollment_Success(t *testing.T) {
	tm := testManager(t)

	encrypted, nonce, secret, url, qrDataURL, err := tm.GenerateEnrollment("user@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, encrypted)
	assert.Len(t, nonce, 12)
	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(url, "otpauth://totp/"))
	assert.Contains(t, url, "Promenade")
	assert.Contains(t, url, "user@example.com")
	assert.True(t, strings.HasPrefix(qrDataURL, "data:image/png;base64,"))

	// The stored ciphertext round-trips back to the issued secret
	plain, err := tm.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)
	assert.Equal(t, secret, string(plain))
}

func TestTOTPManager_EncryptDecryptSecret_RoundTrip(t *testing.T) {
	tm := testManager(t)

	encrypted, nonce, err := tm.EncryptSecret([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)
	assert.NotEqual(t, []byte("JBSWY3DPEHPK3PXP"), encrypted)

	plain, err := tm.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", string(plain))
}

func TestTOTPManager_DecryptSecret_WrongKey(t *testing.T) {
	tm := testManager(t)
	other := testManager(t)

	encrypted, nonce, err := tm.EncryptSecret([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)

	_, err = other.DecryptSecret(encrypted, nonce)
	assert.Error(t, err)
}

func TestTOTPManager_ValidateCode_Success(t *testing.T) {
	tm := testManager(t)

	_, _, secret, _, _, err := tm.GenerateEnrollment("user@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	valid, err := tm.ValidateCode(secret, code, nil)
	assert.NoError(t, err)
	assert.True(t, valid)
}

func TestTOTPManager_ValidateCode_AcceptsAdjacentTimeStep(t *testing.T) {
	tm := testManager(t)

	_, _, secret, _, _, err := tm.GenerateEnrollment("user@example.com")
	require.NoError(t, err)

	pastCode, err := totp.GenerateCode(secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)

	valid, err := tm.ValidateCode(secret, pastCode, nil)
	assert.NoError(t, err)
	assert.True(t, valid)
}

func TestTOTPManager_ValidateCode_RejectsExpiredCode(t *testing.T) {
	tm := testManager(t)

	_, _, secret, _, _, err := tm.GenerateEnrollment("user@example.com")
	require.NoError(t, err)

	expiredCode, err := totp.GenerateCode(secret, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)

	valid, _ := tm.ValidateCode(secret, expiredCode, nil)
	assert.False(t, valid)
}

func TestTOTPManager_ValidateCode_RejectsReplayInsideWindow(t *testing.T) {
	tm := testManager(t)

	_, _, secret, _, _, err := tm.GenerateEnrollment("user@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	lastUsed := time.Now().Add(-10 * time.Second)
	valid, err := tm.ValidateCode(secret, code, &lastUsed)
	assert.Error(t, err)
	assert.False(t, valid)
}

func TestTOTPManager_ValidateCode_AllowsAfterReplayWindow(t *testing.T) {
	tm := testManager(t)

	_, _, secret, _, _, err := tm.GenerateEnrollment("user@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	lastUsed := time.Now().Add(-2 * time.Minute)
	valid, err := tm.ValidateCode(secret, code, &lastUsed)
	assert.NoError(t, err)
	assert.True(t, valid)
}

func TestIsWellFormedCode(t *testing.T) {
	valid := []string{"000000", "123456", "999999"}
	for _, code := range valid {
		assert.True(t, IsWellFormedCode(code), "code %q", code)
	}

	invalid := []string{"", "12345", "1234567", "12345a", "12 456", "12345\n", "１２３４５６"}
	for _, code := range invalid {
		assert.False(t, IsWellFormedCode(code), "code %q", code)
	}
}

func TestTOTPManager_GenerateBackupCodes(t *testing.T) {
	tm := testManager(t)

	codes, err := tm.GenerateBackupCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Len(t, code, 12)
		assert.Equal(t, strings.ToLower(code), code)
		for _, r := range code {
			assert.Contains(t, "0123456789abcdef", string(r))
		}
		assert.False(t, seen[code], "duplicate code %q", code)
		seen[code] = true
	}
}
