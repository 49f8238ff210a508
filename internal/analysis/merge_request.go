package analysis

import (
	"context"
	"fmt"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/queue"
)

// analyseMergeRequest records merge request lifecycle changes. Pushes of a
// single merge commit land here too.
func (uc *usecase) analyseMergeRequest(ctx context.Context, msg model.QueueMessage) error {
	rec := Record{
		Domain:     string(queue.MergeRequestAnalysis),
		RequestID:  msg.RequestID,
		RecordedAt: uc.now(),
	}

	switch e := msg.EventData.(type) {
	case *model.MergeRequestEvent:
		attrs := e.ObjectAttributes
		rec.ProjectID = e.ProjectID()
		rec.SubjectID = e.PrimaryID()
		rec.Fields = map[string]any{
			"iid":              attrs.IID,
			"state":            attrs.State,
			"action":           attrs.Action,
			"source_branch":    attrs.SourceBranch,
			"target_branch":    attrs.TargetBranch,
			"author_id":        attrs.AuthorID,
			"assignee_id":      attrs.AssigneeID,
			"merge_commit_sha": attrs.MergeCommitSHA,
		}
		extractReferences(attrs.Title, attrs.Description).fields(rec.Fields)
		if d, ok := elapsed(attrs.CreatedAt, attrs.UpdatedAt); ok && e.IsMerged() {
			rec.Fields["time_to_merge_seconds"] = int64(d.Seconds())
		}

	case *model.PushEvent:
		if len(e.Commits) == 0 {
			return fmt.Errorf("%w: push %s carries no merge commit", ErrUnexpectedEvent, e.PrimaryID())
		}
		rec.ProjectID = e.ProjectID()
		rec.SubjectID = e.PrimaryID()
		rec.Fields = map[string]any{
			"branch":         e.Branch(),
			"merge_commit":   e.Commits[0].ID,
			"merge_message":  e.Commits[0].Message,
			"merged_by":      e.UserUsername,
			"via_merge_push": true,
		}

	default:
		return fmt.Errorf("%w: %s got %T", ErrUnexpectedEvent, queue.MergeRequestAnalysis, msg.EventData)
	}

	return uc.sink.Record(ctx, rec)
}
