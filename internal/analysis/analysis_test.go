package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/queue"
	"gitlab-metrics/pkg/breaker"
	"gitlab-metrics/pkg/log"
	"gitlab-metrics/pkg/sonarqube"
)

type memorySink struct {
	mu      sync.Mutex
	records []Record
}

func (s *memorySink) Record(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

type mockQuality struct {
	gate sonarqube.QualityGate
	err  error
	keys []string
}

func (m *mockQuality) QualityGate(_ context.Context, key string) (sonarqube.QualityGate, error) {
	m.keys = append(m.keys, key)
	return m.gate, m.err
}

func newTestUseCase(quality QualityGateChecker) (*usecase, *memorySink) {
	sink := &memorySink{}
	uc := New(log.NewNop(), sink, quality)
	uc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return uc, sink
}

func mergedMR() *model.MergeRequestEvent {
	return &model.MergeRequestEvent{
		Project: model.Project{ID: 123, PathWithNamespace: "group/app"},
		ObjectAttributes: model.MergeRequestAttributes{
			ID:        456,
			State:     model.MergeRequestMerged,
			CreatedAt: "2024-01-01T10:00:00Z",
			UpdatedAt: "2024-01-01T12:30:00Z",
		},
	}
}

func TestHandlersCoverEveryDomain(t *testing.T) {
	uc, _ := newTestUseCase(nil)
	handlers := uc.Handlers()
	for _, b := range queue.Bindings() {
		if handlers[b.Domain] == nil {
			t.Errorf("no handler for %s", b.Domain)
		}
	}
}

func TestAnalyseCommits(t *testing.T) {
	uc, sink := newTestUseCase(nil)
	push := &model.PushEvent{
		ProjectIDValue: 123,
		Ref:            "refs/heads/main",
		CheckoutSHA:    "abc",
		Commits: []model.Commit{
			{ID: "1", Author: model.CommitAuthor{Email: "a@x"}, Added: []string{"a", "b"}},
			{ID: "2", Author: model.CommitAuthor{Email: "b@x"}, Modified: []string{"c"}, Removed: []string{"d"}},
			{ID: "3", Author: model.CommitAuthor{Email: "a@x"}},
		},
	}

	err := uc.analyseCommits(context.Background(), model.NewQueueMessage("r", push, time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	rec := sink.records[0]
	if rec.SubjectID != "abc" || rec.ProjectID != 123 || rec.Domain != "commit-analysis" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Fields["authors"] != 2 || rec.Fields["files_added"] != 2 || rec.Fields["branch"] != "main" {
		t.Errorf("fields = %v", rec.Fields)
	}
}

func TestAnalyseMergeRequest(t *testing.T) {
	uc, sink := newTestUseCase(nil)

	if err := uc.analyseMergeRequest(context.Background(), model.NewQueueMessage("r", mergedMR(), time.Now())); err != nil {
		t.Fatal(err)
	}
	if got := sink.records[0].Fields["time_to_merge_seconds"]; got != int64(9000) {
		t.Errorf("time_to_merge_seconds = %v", got)
	}

	push := &model.PushEvent{ProjectIDValue: 1, Ref: "refs/heads/main", CheckoutSHA: "m", Commits: []model.Commit{{ID: "m", Message: "Merge branch 'x'"}}}
	if err := uc.analyseMergeRequest(context.Background(), model.NewQueueMessage("r", push, time.Now())); err != nil {
		t.Fatal(err)
	}
	if sink.records[1].Fields["via_merge_push"] != true {
		t.Errorf("fields = %v", sink.records[1].Fields)
	}

	issue := &model.IssueEvent{Project: model.Project{ID: 1}, ObjectAttributes: model.IssueAttributes{ID: 1}}
	if err := uc.analyseMergeRequest(context.Background(), model.NewQueueMessage("r", issue, time.Now())); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("issue on merge request queue: %v", err)
	}
}

func TestAnalyseQuality(t *testing.T) {
	t.Run("gate found", func(t *testing.T) {
		q := &mockQuality{gate: sonarqube.QualityGate{Status: "ERROR", Conditions: []sonarqube.Condition{
			{Status: "ERROR", MetricKey: "new_coverage"},
			{Status: "OK", MetricKey: "bugs"},
		}}}
		uc, sink := newTestUseCase(q)

		if err := uc.analyseQuality(context.Background(), model.NewQueueMessage("r", mergedMR(), time.Now())); err != nil {
			t.Fatal(err)
		}
		if len(q.keys) != 1 || q.keys[0] != "group:app" {
			t.Errorf("keys = %v", q.keys)
		}
		fields := sink.records[0].Fields
		if fields["quality_gate"] != "ERROR" || fmt.Sprint(fields["failed_conditions"]) != "[new_coverage]" {
			t.Errorf("fields = %v", fields)
		}
	})

	t.Run("unknown project is recorded", func(t *testing.T) {
		uc, sink := newTestUseCase(&mockQuality{err: fmt.Errorf("%w: x", sonarqube.ErrProjectNotFound)})
		if err := uc.analyseQuality(context.Background(), model.NewQueueMessage("r", mergedMR(), time.Now())); err != nil {
			t.Fatal(err)
		}
		if sink.records[0].Fields["quality_gate"] != "unknown_project" {
			t.Errorf("fields = %v", sink.records[0].Fields)
		}
	})

	t.Run("open circuit fails the message", func(t *testing.T) {
		uc, sink := newTestUseCase(&mockQuality{err: breaker.ErrCircuitOpen})
		err := uc.analyseQuality(context.Background(), model.NewQueueMessage("r", mergedMR(), time.Now()))
		if !errors.Is(err, breaker.ErrCircuitOpen) {
			t.Fatalf("error = %v", err)
		}
		if len(sink.records) != 0 {
			t.Error("nothing must be recorded when the lookup fails")
		}
	})

	t.Run("no client configured", func(t *testing.T) {
		uc, sink := newTestUseCase(nil)
		if err := uc.analyseQuality(context.Background(), model.NewQueueMessage("r", mergedMR(), time.Now())); err != nil {
			t.Fatal(err)
		}
		if sink.records[0].Fields["quality_gate"] != "not_configured" {
			t.Errorf("fields = %v", sink.records[0].Fields)
		}
	})
}

func TestIssueHandlers(t *testing.T) {
	uc, sink := newTestUseCase(nil)
	issue := &model.IssueEvent{
		Project: model.Project{ID: 123},
		ObjectAttributes: model.IssueAttributes{
			ID:        301,
			State:     model.IssueClosed,
			CreatedAt: "2013-12-03 17:15:43 UTC",
			ClosedAt:  "2013-12-04 17:15:43 UTC",
		},
		Labels: []model.Label{{Title: "API"}, {Title: "Bug"}},
	}
	msg := model.NewQueueMessage("r", issue, time.Now())

	if err := uc.trackIssue(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if sink.records[0].Fields["is_bug"] != true {
		t.Errorf("fields = %v", sink.records[0].Fields)
	}

	if err := uc.measureEfficiency(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if got := sink.records[1].Fields["resolution_seconds"]; got != int64(86400) {
		t.Errorf("resolution_seconds = %v", got)
	}
}

func TestElapsed(t *testing.T) {
	if _, ok := elapsed("garbage", "2024-01-01T00:00:00Z"); ok {
		t.Error("unparseable start must fail")
	}
	if _, ok := elapsed("2024-01-02T00:00:00Z", "2024-01-01T00:00:00Z"); ok {
		t.Error("negative durations must fail")
	}
	if d, ok := elapsed("2024-01-01T00:00:00Z", "2024-01-01T00:01:00+00:00"); !ok || d != time.Minute {
		t.Errorf("elapsed = %v, %v", d, ok)
	}
}
