package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/queue"
)

var bugLabels = []string{"bug", "defect", "incident"}

func (uc *usecase) trackIssue(ctx context.Context, msg model.QueueMessage) error {
	issue, ok := msg.EventData.(*model.IssueEvent)
	if !ok {
		return fmt.Errorf("%w: %s got %T", ErrUnexpectedEvent, queue.BugTrackingAnalysis, msg.EventData)
	}

	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.Title)
	}

	attrs := issue.ObjectAttributes
	return uc.sink.Record(ctx, Record{
		Domain:    string(queue.BugTrackingAnalysis),
		RequestID: msg.RequestID,
		ProjectID: issue.ProjectID(),
		SubjectID: issue.PrimaryID(),
		Fields: map[string]any{
			"iid":         attrs.IID,
			"state":       attrs.State,
			"action":      attrs.Action,
			"labels":      labels,
			"is_bug":      isBug(labels),
			"author_id":   attrs.AuthorID,
			"assignee_id": attrs.AssigneeID,
		},
		RecordedAt: uc.now(),
	})
}

// measureEfficiency records how long a closed issue stayed open.
func (uc *usecase) measureEfficiency(ctx context.Context, msg model.QueueMessage) error {
	issue, ok := msg.EventData.(*model.IssueEvent)
	if !ok {
		return fmt.Errorf("%w: %s got %T", ErrUnexpectedEvent, queue.EfficiencyAnalysis, msg.EventData)
	}

	attrs := issue.ObjectAttributes
	closedAt := attrs.ClosedAt
	if closedAt == "" {
		closedAt = attrs.UpdatedAt
	}

	fields := map[string]any{
		"assignee_id": attrs.AssigneeID,
		"closed_at":   closedAt,
	}
	if d, ok := elapsed(attrs.CreatedAt, closedAt); ok {
		fields["resolution_seconds"] = int64(d.Seconds())
	} else {
		uc.l.Warnf(ctx, "analysis.measureEfficiency: issue %s has no usable timestamps", issue.PrimaryID())
	}

	return uc.sink.Record(ctx, Record{
		Domain:     string(queue.EfficiencyAnalysis),
		RequestID:  msg.RequestID,
		ProjectID:  issue.ProjectID(),
		SubjectID:  issue.PrimaryID(),
		Fields:     fields,
		RecordedAt: uc.now(),
	})
}

func isBug(labels []string) bool {
	for _, l := range labels {
		for _, b := range bugLabels {
			if strings.EqualFold(l, b) {
				return true
			}
		}
	}
	return false
}

// GitLab hooks use both RFC 3339 and "2006-01-02 15:04:05 UTC".
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func elapsed(from, to string) (time.Duration, bool) {
	start, ok := parseTimestamp(from)
	if !ok {
		return 0, false
	}
	end, ok := parseTimestamp(to)
	if !ok || end.Before(start) {
		return 0, false
	}
	return end.Sub(start), true
}
