package analysis

import "time"

// Record is the outcome of analysing one event for one domain.
type Record struct {
	Domain     string         `json:"domain"`
	RequestID  string         `json:"request_id"`
	ProjectID  int64          `json:"project_id"`
	SubjectID  string         `json:"subject_id"`
	Fields     map[string]any `json:"fields"`
	RecordedAt time.Time      `json:"recorded_at"`
}
