package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/promenade-labs/authcore/internal/models"
)

// HTTPPasswordVerifier re-authenticates passwords against the external auth
// provider's verification endpoint. The provider owns credentials; this core
// never stores login passwords.
type HTTPPasswordVerifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPPasswordVerifier creates a verifier against the provider endpoint
func NewHTTPPasswordVerifier(endpoint string, timeout time.Duration) *HTTPPasswordVerifier {
	return &HTTPPasswordVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// VerifyPassword checks a user's current password. Returns
// ErrInvalidCredentials on mismatch and ErrDependencyUnavailable when the
// provider cannot be reached.
func (v *HTTPPasswordVerifier) VerifyPassword(ctx context.Context, userID, password string) error {
	payload, err := json.Marshal(map[string]string{
		"user_id":  userID,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("failed to encode verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: unexpected status %d", models.ErrDependencyUnavailable, resp.StatusCode)
	}
}
