package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"

	"gitlab-metrics/internal/ratelimit"
)

// SecurityValidator authenticates webhook requests
type SecurityValidator struct {
	config SecurityConfig
}

func NewSecurityValidator(config SecurityConfig) *SecurityValidator {
	return &SecurityValidator{config: config}
}

// Validate accepts the request when signature equals the shared secret, or
// when it is the hex HMAC-SHA256 of payload keyed by the secret.
// Every rejection wraps ErrAuthentication.
func (v *SecurityValidator) Validate(signature string, payload []byte) error {
	if signature == "" {
		return fmt.Errorf("%w: missing signature", ErrAuthentication)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", ErrAuthentication)
	}
	if v.config.Secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrAuthentication)
	}

	// GitLab sends the secret itself in X-Gitlab-Token
	if hmac.Equal([]byte(signature), []byte(v.config.Secret)) {
		return nil
	}

	mac := hmac.New(sha256.New, []byte(v.config.Secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison on the hex form
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return fmt.Errorf("%w: invalid signature", ErrAuthentication)
	}

	return nil
}

// ValidateIPAddress checks if request IP is whitelisted. The transport peer
// is authoritative; forwarded headers are honoured only when the peer is a
// trusted proxy.
func (v *SecurityValidator) ValidateIPAddress(r *http.Request) error {
	if len(v.config.AllowedIPs) == 0 {
		return nil // No IP restriction
	}

	ip := v.clientIP(r)
	if matchesAny(ip, v.config.AllowedIPs) {
		return nil
	}

	return fmt.Errorf("%w: IP %s not whitelisted", ErrAuthentication, ip)
}

func (v *SecurityValidator) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if len(v.config.TrustedProxies) > 0 && matchesAny(peer, v.config.TrustedProxies) {
		return ratelimit.ClientKey(r)
	}
	return peer
}

// matchesAny reports whether ip equals an entry or falls inside a CIDR entry.
func matchesAny(ip string, entries []string) bool {
	parsed := net.ParseIP(ip)
	for _, entry := range entries {
		if ip == entry {
			return true
		}

		// Check CIDR range
		if strings.Contains(entry, "/") && parsed != nil {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				continue
			}
			if ipNet.Contains(parsed) {
				return true
			}
		}
	}
	return false
}
