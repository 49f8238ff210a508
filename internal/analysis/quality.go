package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/queue"
	"gitlab-metrics/pkg/sonarqube"
)

// analyseQuality reads the quality gate of a merged merge request's project.
// An open breaker or an unavailable server returns the error so the message
// is dead-lettered and replayed later.
func (uc *usecase) analyseQuality(ctx context.Context, msg model.QueueMessage) error {
	mr, ok := msg.EventData.(*model.MergeRequestEvent)
	if !ok {
		return fmt.Errorf("%w: %s got %T", ErrUnexpectedEvent, queue.QualityAnalysis, msg.EventData)
	}

	rec := Record{
		Domain:     string(queue.QualityAnalysis),
		RequestID:  msg.RequestID,
		ProjectID:  mr.ProjectID(),
		SubjectID:  mr.PrimaryID(),
		Fields:     map[string]any{"merge_commit_sha": mr.ObjectAttributes.MergeCommitSHA},
		RecordedAt: uc.now(),
	}

	if uc.quality == nil {
		rec.Fields["quality_gate"] = "not_configured"
		return uc.sink.Record(ctx, rec)
	}

	key := projectKey(mr.Project)
	gate, err := uc.quality.QualityGate(ctx, key)
	switch {
	case errors.Is(err, sonarqube.ErrProjectNotFound):
		uc.l.Infof(ctx, "analysis.analyseQuality: no sonarqube project %q", key)
		rec.Fields["quality_gate"] = "unknown_project"
		return uc.sink.Record(ctx, rec)
	case err != nil:
		return fmt.Errorf("quality gate for %s: %w", key, err)
	}

	failed := make([]string, 0, len(gate.Conditions))
	for _, c := range gate.Conditions {
		if c.Status == "ERROR" {
			failed = append(failed, c.MetricKey)
		}
	}
	rec.Fields["project_key"] = key
	rec.Fields["quality_gate"] = gate.Status
	rec.Fields["failed_conditions"] = failed
	if !gate.Passed() {
		uc.l.Warnf(ctx, "analysis.analyseQuality: quality gate %s for %s (merge request %s)", gate.Status, key, mr.PrimaryID())
	}

	return uc.sink.Record(ctx, rec)
}

// projectKey derives the SonarQube key from the project path, group/app -> group:app.
func projectKey(p model.Project) string {
	if p.PathWithNamespace == "" {
		return fmt.Sprintf("project-%d", p.ID)
	}
	return strings.ReplaceAll(p.PathWithNamespace, "/", ":")
}
