package ratelimit

import "time"

// Class groups endpoints sharing one threshold.
type Class string

const (
	ClassDefault   Class = "default"
	ClassDashboard Class = "dashboard"
	ClassRealtime  Class = "realtime"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allow         bool
	Limit         int
	Remaining     int
	ResetAtMillis int64
}

type Config struct {
	Window time.Duration
	// Limits maps class name to requests per window. The "default" entry
	// applies to unknown classes.
	Limits map[string]int
}
