package analysis

import (
	"time"

	"gitlab-metrics/internal/queue"
	"gitlab-metrics/pkg/log"
)

type usecase struct {
	l       log.Logger
	sink    Sink
	quality QualityGateChecker
	now     func() time.Time
}

// New creates the analysis handlers. quality may be nil, in which case
// quality analysis records the event without a gate lookup.
func New(l log.Logger, sink Sink, quality QualityGateChecker) *usecase {
	return &usecase{
		l:       l,
		sink:    sink,
		quality: quality,
		now:     time.Now,
	}
}

// Handlers returns one queue handler per analysis domain.
func (uc *usecase) Handlers() map[queue.Domain]queue.Handler {
	return map[queue.Domain]queue.Handler{
		queue.CommitAnalysis:       queue.HandlerFunc(uc.analyseCommits),
		queue.MergeRequestAnalysis: queue.HandlerFunc(uc.analyseMergeRequest),
		queue.QualityAnalysis:      queue.HandlerFunc(uc.analyseQuality),
		queue.BugTrackingAnalysis:  queue.HandlerFunc(uc.trackIssue),
		queue.EfficiencyAnalysis:   queue.HandlerFunc(uc.measureEfficiency),
	}
}
