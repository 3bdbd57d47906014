package password

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashParts(pw string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(pw))
	hash := strings.ToUpper(fmt.Sprintf("%x", sum))
	return hash[:5], hash[5:]
}

func TestBreachChecker_BreachedPassword(t *testing.T) {
	prefix, suffix := hashParts("password123")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/"+prefix, r.URL.Path)
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n%s:2417\r\nAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA:1\r\n", suffix)
	}))
	defer server.Close()

	checker := NewBreachChecker(server.URL, 2*time.Second)
	result := checker.Check(context.Background(), "password123")

	assert.True(t, result.Breached)
	assert.Equal(t, 2417, result.Count)
	assert.Empty(t, result.Warning)
}

func TestBreachChecker_CleanPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\nAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA:1\r\n")
	}))
	defer server.Close()

	checker := NewBreachChecker(server.URL, 2*time.Second)
	result := checker.Check(context.Background(), "kX9#mQ2$vL8@wN4z")

	assert.False(t, result.Breached)
	assert.Equal(t, 0, result.Count)
	assert.Empty(t, result.Warning)
}

func TestBreachChecker_SuffixMatchIsCaseInsensitive(t *testing.T) {
	_, suffix := hashParts("password123")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s:10\r\n", strings.ToLower(suffix))
	}))
	defer server.Close()

	checker := NewBreachChecker(server.URL, 2*time.Second)
	result := checker.Check(context.Background(), "password123")

	assert.True(t, result.Breached)
	assert.Equal(t, 10, result.Count)
}

func TestBreachChecker_ServerErrorFailsOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	checker := NewBreachChecker(server.URL, 2*time.Second)
	result := checker.Check(context.Background(), "password123")

	assert.False(t, result.Breached)
	assert.Contains(t, result.Warning, "breach check unavailable")
}

func TestBreachChecker_UnreachableServerFailsOpen(t *testing.T) {
	checker := NewBreachChecker("http://127.0.0.1:1", 500*time.Millisecond)
	result := checker.Check(context.Background(), "password123")

	assert.False(t, result.Breached)
	assert.Contains(t, result.Warning, "breach check unavailable")
}

func TestBreachChecker_TimeoutFailsOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	checker := NewBreachChecker(server.URL, 50*time.Millisecond)
	result := checker.Check(context.Background(), "password123")

	assert.False(t, result.Breached)
	assert.NotEmpty(t, result.Warning)
}

func TestBreachChecker_MalformedCountDefaultsToOne(t *testing.T) {
	_, suffix := hashParts("password123")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s:notanumber\r\n", suffix)
	}))
	defer server.Close()

	checker := NewBreachChecker(server.URL, 2*time.Second)
	result := checker.Check(context.Background(), "password123")

	assert.True(t, result.Breached)
	assert.Equal(t, 1, result.Count)
}
