package password

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// DefaultHistoryLimit caps how many historical hashes are compared
const DefaultHistoryLimit = 5

// HistorySource fetches the most recent password hashes for a user.
// Implemented by the password-history store.
type HistorySource interface {
	GetRecentHashes(ctx context.Context, userID string, limit int) ([]string, error)
}

// HistoryResult is the outcome of a reuse check. Store failures fail open:
// Reused=false with Warning set.
type HistoryResult struct {
	Reused  bool   `json:"reused"`
	Warning string `json:"warning,omitempty"`
}

// HistoryChecker compares a candidate password against a user's recent
// password hashes.
type HistoryChecker struct {
	source HistorySource
	limit  int
}

// NewHistoryChecker creates a history checker. limit <= 0 uses the default.
func NewHistoryChecker(source HistorySource, limit int) *HistoryChecker {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryChecker{source: source, limit: limit}
}

// HashForHistory returns the SHA-256 hex digest stored in the history table
func HashForHistory(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return fmt.Sprintf("%x", sum)
}

// Check reports whether the candidate password matches one of the user's
// recent passwords. An empty userID (signup, no history yet) is never a
// reuse; a store failure is advisory only.
func (c *HistoryChecker) Check(ctx context.Context, userID, pw string) HistoryResult {
	if userID == "" {
		return HistoryResult{}
	}

	hashes, err := c.source.GetRecentHashes(ctx, userID, c.limit)
	if err != nil {
		return HistoryResult{Warning: fmt.Sprintf("history check unavailable: %v", err)}
	}

	candidate := HashForHistory(pw)
	for _, h := range hashes {
		if h == candidate {
			return HistoryResult{Reused: true}
		}
	}

	return HistoryResult{}
}
