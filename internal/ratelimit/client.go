package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

const unknownClient = "unknown"

// ClientKey resolves the caller address: first X-Forwarded-For entry, then
// X-Real-IP, then the peer address. "unknown" header values are skipped.
func ClientKey(r *http.Request) string {
	// Check X-Forwarded-For header (proxy/load balancer)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" && !strings.EqualFold(first, unknownClient) {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && !strings.EqualFold(xri, unknownClient) {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ClassForPath maps a request path onto its endpoint class.
func ClassForPath(path string) Class {
	switch {
	case strings.Contains(path, "/dashboard"):
		return ClassDashboard
	case strings.Contains(path, "/realtime"):
		return ClassRealtime
	default:
		return ClassDefault
	}
}
