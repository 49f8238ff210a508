package webhook

import "gitlab-metrics/internal/model"

// SecurityConfig holds webhook security settings
type SecurityConfig struct {
	Secret         string   // Shared secret: static token or HMAC key
	AllowedIPs     []string // IP whitelist (optional), exact IPs or CIDR ranges
	TrustedProxies []string // peers whose X-Forwarded-For is believed
}

// DispatchOutput describes an accepted webhook.
type DispatchOutput struct {
	RequestID string
	Kind      model.EventKind
	ProjectID int64
	PrimaryID string
}
