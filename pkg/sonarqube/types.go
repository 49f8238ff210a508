package sonarqube

import "time"

type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	RequestsPerMin int
}

// Condition is one quality gate condition.
type Condition struct {
	Status         string `json:"status"`
	MetricKey      string `json:"metricKey"`
	Comparator     string `json:"comparator,omitempty"`
	ErrorThreshold string `json:"errorThreshold,omitempty"`
	ActualValue    string `json:"actualValue,omitempty"`
}

// QualityGate is the quality gate status of a project.
type QualityGate struct {
	ProjectKey string      `json:"projectKey"`
	Status     string      `json:"status"`
	Conditions []Condition `json:"conditions"`
}

// Passed reports whether the gate is OK.
func (q QualityGate) Passed() bool {
	return q.Status == "OK"
}

type projectStatusResp struct {
	ProjectStatus struct {
		Status     string      `json:"status"`
		Conditions []Condition `json:"conditions"`
	} `json:"projectStatus"`
}
