package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/queue"
	"gitlab-metrics/pkg/log"
)

type published struct {
	domain queue.Domain
	msg    model.QueueMessage
}

type mockPublisher struct {
	mu      sync.Mutex
	calls   []published
	failFor map[queue.Domain]error
	panicOn queue.Domain
	block   chan struct{}
}

func (m *mockPublisher) Publish(_ context.Context, domain queue.Domain, msg model.QueueMessage) error {
	if m.block != nil {
		<-m.block
	}
	if domain == m.panicOn {
		panic("publisher exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, published{domain: domain, msg: msg})
	return m.failFor[domain]
}

func (m *mockPublisher) domains() []queue.Domain {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.Domain, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.domain
	}
	return out
}

func runOne(t *testing.T, pub *mockPublisher, event model.Event) {
	t.Helper()
	p := New(log.NewNop(), pub, Config{Workers: 1, QueueSize: 4})
	if err := p.ProcessAsync(context.Background(), event.Kind(), event, "req-1"); err != nil {
		t.Fatalf("ProcessAsync() error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}

func equalDomains(a, b []queue.Domain) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProcessor_Routing(t *testing.T) {
	tests := []struct {
		name  string
		event model.Event
		want  []queue.Domain
	}{
		{
			name: "push with regular commits",
			event: &model.PushEvent{
				ProjectIDValue: 123, Ref: "refs/heads/main", CheckoutSHA: "a",
				Commits: []model.Commit{{Message: "fix"}, {Message: "Merge branch x"}},
			},
			want: []queue.Domain{queue.CommitAnalysis},
		},
		{
			name: "push of a single merge commit",
			event: &model.PushEvent{
				ProjectIDValue: 123, Ref: "refs/heads/main", CheckoutSHA: "a",
				Commits: []model.Commit{{Message: "Merge branch 'feature' into 'main'"}},
			},
			want: []queue.Domain{queue.CommitAnalysis, queue.MergeRequestAnalysis},
		},
		{
			name: "merged merge request",
			event: &model.MergeRequestEvent{
				Project:          model.Project{ID: 123},
				ObjectAttributes: model.MergeRequestAttributes{ID: 456, State: model.MergeRequestMerged},
			},
			want: []queue.Domain{queue.MergeRequestAnalysis, queue.QualityAnalysis},
		},
		{
			name: "opened merge request",
			event: &model.MergeRequestEvent{
				Project:          model.Project{ID: 123},
				ObjectAttributes: model.MergeRequestAttributes{ID: 456, State: model.MergeRequestOpened},
			},
			want: []queue.Domain{queue.MergeRequestAnalysis},
		},
		{
			name: "closed issue",
			event: &model.IssueEvent{
				Project:          model.Project{ID: 123},
				ObjectAttributes: model.IssueAttributes{ID: 9, State: model.IssueClosed},
			},
			want: []queue.Domain{queue.BugTrackingAnalysis, queue.EfficiencyAnalysis},
		},
		{
			name: "reopened issue",
			event: &model.IssueEvent{
				Project:          model.Project{ID: 123},
				ObjectAttributes: model.IssueAttributes{ID: 9, State: model.IssueReopened},
			},
			want: []queue.Domain{queue.BugTrackingAnalysis},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			runOne(t, pub, tt.event)

			if got := pub.domains(); !equalDomains(got, tt.want) {
				t.Fatalf("published to %v, want %v", got, tt.want)
			}
			for _, c := range pub.calls {
				if c.msg.RequestID != "req-1" {
					t.Errorf("%s: requestId = %q", c.domain, c.msg.RequestID)
				}
				if c.msg.EventKind != tt.event.Kind() || c.msg.EventData != tt.event {
					t.Errorf("%s: unexpected message %+v", c.domain, c.msg)
				}
				if c.msg.EnqueuedAtMillis == 0 {
					t.Errorf("%s: missing enqueue timestamp", c.domain)
				}
			}
		})
	}
}

func TestProcessor_PublishFailureIsIsolated(t *testing.T) {
	pub := &mockPublisher{failFor: map[queue.Domain]error{
		queue.MergeRequestAnalysis: errors.New("broker down"),
	}}
	runOne(t, pub, &model.MergeRequestEvent{
		Project:          model.Project{ID: 1},
		ObjectAttributes: model.MergeRequestAttributes{ID: 2, State: model.MergeRequestMerged},
	})

	want := []queue.Domain{queue.MergeRequestAnalysis, queue.QualityAnalysis}
	if got := pub.domains(); !equalDomains(got, want) {
		t.Fatalf("published to %v, want %v", got, want)
	}
}

func TestProcessor_PanicIsRecovered(t *testing.T) {
	pub := &mockPublisher{panicOn: queue.CommitAnalysis}
	p := New(log.NewNop(), pub, Config{Workers: 1, QueueSize: 4})
	ctx := context.Background()

	push := &model.PushEvent{ProjectIDValue: 1, Ref: "r", CheckoutSHA: "a"}
	issue := &model.IssueEvent{Project: model.Project{ID: 1}, ObjectAttributes: model.IssueAttributes{ID: 3, State: model.IssueOpened}}

	if err := p.ProcessAsync(ctx, push.Kind(), push, "r1"); err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessAsync(ctx, issue.Kind(), issue, "r2"); err != nil {
		t.Fatal(err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}

	want := []queue.Domain{queue.BugTrackingAnalysis}
	if got := pub.domains(); !equalDomains(got, want) {
		t.Fatalf("published to %v, want %v", got, want)
	}
}

func TestProcessor_Saturation(t *testing.T) {
	pub := &mockPublisher{block: make(chan struct{})}
	p := New(log.NewNop(), pub, Config{Workers: 1, QueueSize: 1})
	ctx := context.Background()
	event := &model.IssueEvent{Project: model.Project{ID: 1}, ObjectAttributes: model.IssueAttributes{ID: 3}}

	var saturated bool
	for i := 0; i < 5; i++ {
		if err := p.ProcessAsync(ctx, event.Kind(), event, "r"); errors.Is(err, ErrPoolSaturated) {
			saturated = true
			break
		}
	}
	if !saturated {
		t.Fatal("expected the pool to report saturation")
	}

	close(pub.block)
	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}

	if err := p.ProcessAsync(ctx, event.Kind(), event, "r"); !errors.Is(err, ErrStopped) {
		t.Fatalf("after Stop: %v, want ErrStopped", err)
	}
}

func TestProcessor_UnroutedKind(t *testing.T) {
	pub := &mockPublisher{}
	p := New(log.NewNop(), pub, Config{Workers: 1, QueueSize: 1, Routes: []Route{}})
	event := &model.PushEvent{ProjectIDValue: 1, Ref: "r", CheckoutSHA: "a"}
	p.ProcessAsync(context.Background(), event.Kind(), event, "r")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Stop(ctx)

	if len(pub.domains()) != 0 {
		t.Fatal("an unrouted kind must not be published")
	}
}
