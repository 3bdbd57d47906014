package password

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breachServerFor(t *testing.T, pw string, count int) *httptest.Server {
	t.Helper()

	_, suffix := hashParts(pw)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if count > 0 {
			fmt.Fprintf(w, "%s:%d\r\n", suffix, count)
			return
		}
		fmt.Fprint(w, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA:1\r\n")
	}))
}

func TestEngineValidateComprehensive_AllChecksPass(t *testing.T) {
	const pw = "Tr0ub4dor&3XyZ!"

	server := breachServerFor(t, pw, 0)
	defer server.Close()

	engine := NewEngine(
		NewBreachChecker(server.URL, 2*time.Second),
		NewHistoryChecker(&fakeHistorySource{}, 5),
	)

	result := engine.ValidateComprehensive(context.Background(), pw, "user-1", Options{
		CheckBreach:            true,
		CheckHistory:           true,
		RequireMinimumStrength: true,
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	require.NotNil(t, result.Breach)
	assert.False(t, result.Breach.Breached)
	require.NotNil(t, result.History)
	assert.False(t, result.History.Reused)
}

func TestEngineValidateComprehensive_BreachedPasswordRejected(t *testing.T) {
	const pw = "Tr0ub4dor&3XyZ!"

	server := breachServerFor(t, pw, 42)
	defer server.Close()

	engine := NewEngine(
		NewBreachChecker(server.URL, 2*time.Second),
		NewHistoryChecker(&fakeHistorySource{}, 5),
	)

	result := engine.ValidateComprehensive(context.Background(), pw, "user-1", Options{CheckBreach: true})

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "password has appeared in a known data breach")
	require.NotNil(t, result.Breach)
	assert.Equal(t, 42, result.Breach.Count)
}

func TestEngineValidateComprehensive_ReusedPasswordRejected(t *testing.T) {
	const pw = "Tr0ub4dor&3XyZ!"

	engine := NewEngine(nil, NewHistoryChecker(&fakeHistorySource{
		hashes: []string{HashForHistory(pw)},
	}, 5))

	result := engine.ValidateComprehensive(context.Background(), pw, "user-1", Options{CheckHistory: true})

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "password was used recently, choose a different one")
}

func TestEngineValidateComprehensive_OutagesWarnButDoNotBlock(t *testing.T) {
	const pw = "Tr0ub4dor&3XyZ!"

	engine := NewEngine(
		NewBreachChecker("http://127.0.0.1:1", 200*time.Millisecond),
		NewHistoryChecker(&fakeHistorySource{err: errors.New("connection refused")}, 5),
	)

	result := engine.ValidateComprehensive(context.Background(), pw, "user-1", Options{
		CheckBreach:  true,
		CheckHistory: true,
	})

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Warnings, 2)
}

func TestEngineValidateComprehensive_MinimumStrengthEnforced(t *testing.T) {
	engine := NewEngine(nil, nil)

	result := engine.ValidateComprehensive(context.Background(), "hijklmno", "", Options{RequireMinimumStrength: true})

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "password is too weak")
}

func TestEngineValidateComprehensive_StructuralFailuresReported(t *testing.T) {
	engine := NewEngine(nil, nil)

	result := engine.ValidateComprehensive(context.Background(), "short", "", Options{})

	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
	assert.Nil(t, result.Breach)
	assert.Nil(t, result.History)
}

func TestEngineValidateComprehensive_ChecksSkippedWhenNotRequested(t *testing.T) {
	const pw = "Tr0ub4dor&3XyZ!"

	engine := NewEngine(
		NewBreachChecker("http://127.0.0.1:1", 200*time.Millisecond),
		NewHistoryChecker(&fakeHistorySource{err: errors.New("down")}, 5),
	)

	result := engine.ValidateComprehensive(context.Background(), pw, "user-1", Options{})

	assert.True(t, result.Valid)
	assert.Nil(t, result.Breach)
	assert.Nil(t, result.History)
	assert.Empty(t, result.Warnings)
}
