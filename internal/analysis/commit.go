package analysis

import (
	"context"
	"fmt"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/queue"
)

func (uc *usecase) analyseCommits(ctx context.Context, msg model.QueueMessage) error {
	push, ok := msg.EventData.(*model.PushEvent)
	if !ok {
		return fmt.Errorf("%w: %s got %T", ErrUnexpectedEvent, queue.CommitAnalysis, msg.EventData)
	}

	authors := map[string]int{}
	messages := make([]string, 0, len(push.Commits))
	var added, modified, removed int
	for _, c := range push.Commits {
		messages = append(messages, c.Message)
		authors[c.Author.Email]++
		added += len(c.Added)
		modified += len(c.Modified)
		removed += len(c.Removed)
	}

	fields := map[string]any{
		"branch":         push.Branch(),
		"commit_count":   len(push.Commits),
		"total_commits":  push.TotalCommitsCount,
		"authors":        len(authors),
		"files_added":    added,
		"files_modified": modified,
		"files_removed":  removed,
		"pushed_by":      push.UserUsername,
	}
	extractReferences(messages...).fields(fields)

	return uc.sink.Record(ctx, Record{
		Domain:     string(queue.CommitAnalysis),
		RequestID:  msg.RequestID,
		ProjectID:  push.ProjectID(),
		SubjectID:  push.PrimaryID(),
		Fields:     fields,
		RecordedAt: uc.now(),
	})
}
