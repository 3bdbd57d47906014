package http

import (
	"net"
	"net/http"
	"strings"
)

// DefaultClientIP is returned when no usable address can be extracted
const DefaultClientIP = "127.0.0.1"

// ExtractClientIP extracts the client IP address from proxy headers.
// Precedence: CF-Connecting-IP, then the first X-Forwarded-For entry, then
// X-Real-IP, then RemoteAddr, falling back to loopback.
func ExtractClientIP(r *http.Request) string {
	if cf := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); cf != "" && isValidIP(cf) {
		return cf
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if isValidIP(first) {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && isValidIP(xri) {
		return xri
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && isValidIP(host) {
			return host
		}
		if isValidIP(r.RemoteAddr) {
			return r.RemoteAddr
		}
	}

	return DefaultClientIP
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
