package password

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// BreachResult is the outcome of a k-anonymity breach lookup. A failed
// lookup fails open: Breached=false with Warning set, never an error.
type BreachResult struct {
	Breached bool   `json:"breached"`
	Count    int    `json:"count"`
	Warning  string `json:"warning,omitempty"`
}

// BreachChecker queries a range-style breach API (first 5 hex chars of the
// SHA-1 only) so the full password hash never leaves the process.
type BreachChecker struct {
	baseURL string
	client  *http.Client
}

// NewBreachChecker creates a breach checker against baseURL, e.g.
// "https://api.pwnedpasswords.com/range". The timeout bounds every lookup.
func NewBreachChecker(baseURL string, timeout time.Duration) *BreachChecker {
	return &BreachChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Check looks the password up against the breach database. The result is
// advisory: outages surface as a warning, never as a hard failure.
func (c *BreachChecker) Check(ctx context.Context, pw string) BreachResult {
	sum := sha1.Sum([]byte(pw))
	hash := strings.ToUpper(fmt.Sprintf("%x", sum))
	prefix, suffix := hash[:5], hash[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+prefix, nil)
	if err != nil {
		return BreachResult{Warning: fmt.Sprintf("breach check unavailable: %v", err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return BreachResult{Warning: fmt.Sprintf("breach check unavailable: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return BreachResult{Warning: fmt.Sprintf("breach check unavailable: unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return BreachResult{Warning: fmt.Sprintf("breach check unavailable: %v", err)}
	}

	// Response is newline-delimited "SUFFIX:COUNT" records
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		candidate, countStr, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if strings.EqualFold(candidate, suffix) {
			count, err := strconv.Atoi(strings.TrimSpace(countStr))
			if err != nil {
				count = 1
			}
			return BreachResult{Breached: true, Count: count}
		}
	}

	return BreachResult{}
}
