package processor

import (
	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/queue"
)

// Route sends every event of Kind to Primary and, when When holds, to
// Secondary afterwards.
type Route struct {
	Kind      model.EventKind
	Primary   queue.Domain
	Secondary queue.Domain
	When      func(model.Event) bool
}

// DefaultRoutes is the routing table of the three parsed event kinds.
func DefaultRoutes() []Route {
	return []Route{
		{
			Kind:      model.KindPush,
			Primary:   queue.CommitAnalysis,
			Secondary: queue.MergeRequestAnalysis,
			When: func(e model.Event) bool {
				push, ok := e.(*model.PushEvent)
				return ok && push.IsMergeCommitPush()
			},
		},
		{
			Kind:      model.KindMergeRequest,
			Primary:   queue.MergeRequestAnalysis,
			Secondary: queue.QualityAnalysis,
			When: func(e model.Event) bool {
				mr, ok := e.(*model.MergeRequestEvent)
				return ok && mr.IsMerged()
			},
		},
		{
			Kind:      model.KindIssue,
			Primary:   queue.BugTrackingAnalysis,
			Secondary: queue.EfficiencyAnalysis,
			When: func(e model.Event) bool {
				issue, ok := e.(*model.IssueEvent)
				return ok && issue.IsClosed()
			},
		},
	}
}

// targets returns the domains an event goes to, in publish order.
func (r Route) targets(e model.Event) []queue.Domain {
	out := []queue.Domain{r.Primary}
	if r.Secondary != "" && r.When != nil && r.When(e) {
		out = append(out, r.Secondary)
	}
	return out
}
