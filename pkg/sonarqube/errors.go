package sonarqube

import (
	"errors"
	"fmt"
)

var ErrProjectNotFound = errors.New("sonarqube project not found")

// ExternalServiceError reports a failed call to an external service.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
