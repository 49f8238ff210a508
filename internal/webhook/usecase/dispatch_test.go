package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/processor"
	"gitlab-metrics/internal/webhook"
	"gitlab-metrics/internal/webhook/parser"
	"gitlab-metrics/pkg/log"
)

type forwarded struct {
	kind      model.EventKind
	event     model.Event
	requestID string
}

type mockProcessor struct {
	mu    sync.Mutex
	calls []forwarded
	err   error
}

func (m *mockProcessor) ProcessAsync(_ context.Context, kind model.EventKind, event model.Event, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, forwarded{kind: kind, event: event, requestID: requestID})
	return nil
}

// spyParser counts calls and delegates to a real parser.
type spyParser struct {
	parser.Parser
	plausible int
	parsed    int
}

func (s *spyParser) IsPlausible(payload []byte) bool {
	s.plausible++
	return s.Parser.IsPlausible(payload)
}

func (s *spyParser) Parse(payload []byte) (model.Event, error) {
	s.parsed++
	return s.Parser.Parse(payload)
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "parser", "testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func envelope(kind string, payload []byte, id string) model.WebhookEnvelope {
	return model.WebhookEnvelope{EventKind: kind, RawPayload: payload, RequestID: id, ReceivedAt: time.Now()}
}

func TestDispatch_Accepts(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		fixture string
		want    model.EventKind
		primary string
	}{
		{name: "push hook", kind: "Push Hook", fixture: "push.json", want: model.KindPush, primary: "da1560886d4f094c3e6c9ef40349f7d38b5d27d7"},
		{name: "merge request hook", kind: "Merge Request Hook", fixture: "merge_request.json", want: model.KindMergeRequest, primary: "456"},
		{name: "merge_request alias", kind: "merge_request", fixture: "merge_request.json", want: model.KindMergeRequest, primary: "456"},
		{name: "issue hook", kind: "Issue Hook", fixture: "issue.json", want: model.KindIssue, primary: "301"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &mockProcessor{}
			uc := New(log.NewNop(), parser.Default(), proc, Config{})

			out, err := uc.Dispatch(context.Background(), envelope(tt.kind, fixture(t, tt.fixture), "req-1"))
			if err != nil {
				t.Fatalf("Dispatch() error: %v", err)
			}
			if out.Kind != tt.want || out.PrimaryID != tt.primary || out.ProjectID != 123 || out.RequestID != "req-1" {
				t.Errorf("output = %+v", out)
			}
			if len(proc.calls) != 1 {
				t.Fatalf("forward calls = %d, want 1", len(proc.calls))
			}
			if proc.calls[0].kind != tt.want || proc.calls[0].requestID != "req-1" {
				t.Errorf("forwarded = %+v", proc.calls[0])
			}
		})
	}
}

func TestDispatch_UnsupportedKindNeverParses(t *testing.T) {
	kinds := []string{"Pipeline Hook", "job", "Wiki Page Hook", "note"}
	payloads := [][]byte{[]byte(`{"object_kind":"push","project_id":1,"ref":"r"}`), []byte(`{}`), []byte(`garbage`)}

	for _, kind := range kinds {
		for _, payload := range payloads {
			spy := &spyParser{Parser: parser.NewPushParser()}
			proc := &mockProcessor{}
			uc := New(log.NewNop(), parser.NewRegistry(spy), proc, Config{})

			_, err := uc.Dispatch(context.Background(), envelope(kind, payload, "r"))
			if !errors.Is(err, webhook.ErrUnsupportedEventType) || !errors.Is(err, webhook.ErrProcessing) {
				t.Errorf("%s: error = %v", kind, err)
			}
			if spy.plausible != 0 || spy.parsed != 0 {
				t.Errorf("%s: parser was called", kind)
			}
			if len(proc.calls) != 0 {
				t.Errorf("%s: processor was called", kind)
			}
		}
	}
}

func TestDispatch_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		env     model.WebhookEnvelope
		wantErr error
	}{
		{name: "empty kind", env: envelope("", []byte(`{}`), "r"), wantErr: webhook.ErrProcessing},
		{name: "empty payload", env: envelope("push", nil, "r"), wantErr: webhook.ErrProcessing},
		{name: "implausible payload", env: envelope("push", []byte(`{"object_kind":"issue"}`), "r"), wantErr: webhook.ErrInvalidPayload},
		{name: "missing field", env: envelope("push", []byte(`{"object_kind":"push","project_id":0,"ref":"r","after":"a"}`), "r"), wantErr: webhook.ErrMissingField},
		{name: "malformed json", env: envelope("issue", []byte(`{"object_kind":"issue","object_attributes":[}`), "r"), wantErr: webhook.ErrProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &mockProcessor{}
			uc := New(log.NewNop(), parser.Default(), proc, Config{})

			_, err := uc.Dispatch(context.Background(), tt.env)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, webhook.ErrProcessing) {
				t.Errorf("every rejection must be a processing error, got %v", err)
			}
			if len(proc.calls) != 0 {
				t.Error("processor must not be called on failure")
			}
		})
	}
}

func TestDispatch_ProcessorUnavailable(t *testing.T) {
	proc := &mockProcessor{err: processor.ErrPoolSaturated}
	uc := New(log.NewNop(), parser.Default(), proc, Config{DedupTTL: time.Minute})

	_, err := uc.Dispatch(context.Background(), envelope("Push Hook", fixture(t, "push.json"), "uuid-1"))
	if !errors.Is(err, webhook.ErrProcessorUnavailable) || !errors.Is(err, processor.ErrPoolSaturated) {
		t.Fatalf("error = %v", err)
	}

	// The delivery id is released so GitLab's retry goes through.
	proc.err = nil
	if _, err := uc.Dispatch(context.Background(), envelope("Push Hook", fixture(t, "push.json"), "uuid-1")); err != nil {
		t.Fatalf("retry error = %v", err)
	}
}

func TestDispatch_DuplicateDelivery(t *testing.T) {
	proc := &mockProcessor{}
	uc := New(log.NewNop(), parser.Default(), proc, Config{DedupSize: 10, DedupTTL: time.Minute})
	payload := fixture(t, "issue.json")

	if _, err := uc.Dispatch(context.Background(), envelope("Issue Hook", payload, "uuid-7")); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Dispatch(context.Background(), envelope("Issue Hook", payload, "uuid-7")); !errors.Is(err, webhook.ErrDuplicateEvent) {
		t.Fatalf("second delivery error = %v", err)
	}
	if _, err := uc.Dispatch(context.Background(), envelope("Issue Hook", payload, "uuid-8")); err != nil {
		t.Fatal(err)
	}
	if len(proc.calls) != 2 {
		t.Errorf("forward calls = %d, want 2", len(proc.calls))
	}
}

func TestDispatch_NoGuardWithoutTTL(t *testing.T) {
	proc := &mockProcessor{}
	uc := New(log.NewNop(), parser.Default(), proc, Config{})
	payload := fixture(t, "issue.json")

	for i := 0; i < 2; i++ {
		if _, err := uc.Dispatch(context.Background(), envelope("issue", payload, "same")); err != nil {
			t.Fatal(err)
		}
	}
	if len(proc.calls) != 2 {
		t.Errorf("forward calls = %d, want 2", len(proc.calls))
	}
}

func TestSupportedEventKinds(t *testing.T) {
	uc := New(log.NewNop(), parser.Default(), &mockProcessor{}, Config{})
	if got := uc.SupportedEventKinds(); len(got) != 3 {
		t.Errorf("SupportedEventKinds() = %v", got)
	}
}
