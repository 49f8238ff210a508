package analysis

import (
	"context"

	"gitlab-metrics/pkg/sonarqube"
)

// Sink is where analysis records leave the pipeline.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// QualityGateChecker looks up the quality gate of a project.
type QualityGateChecker interface {
	QualityGate(ctx context.Context, projectKey string) (sonarqube.QualityGate, error)
}
