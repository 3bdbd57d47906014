package logger

import (
	"net/url"
	"strings"
)

// Query parameters whose values must never reach a log line
var sensitiveParams = map[string]bool{
	"password":    true,
	"token":       true,
	"code":        true,
	"backup_code": true,
	"secret":      true,
}

// SanitizeQueryString reports whether a raw query string contains sensitive
// parameters that should be redacted before logging
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable query strings are redacted wholesale
		return true
	}

	for key := range values {
		if sensitiveParams[strings.ToLower(key)] {
			return true
		}
	}

	return false
}
