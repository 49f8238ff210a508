package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestQueueMessageRoundTrip(t *testing.T) {
	event := &MergeRequestEvent{
		ObjectKind: "merge_request",
		Project:    Project{ID: 123},
		ObjectAttributes: MergeRequestAttributes{
			ID:    456,
			State: MergeRequestMerged,
		},
	}
	now := time.UnixMilli(1700000000000)
	msg := NewQueueMessage("req-1", event, now)

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal generic: %v", err)
	}
	for _, key := range []string{"requestId", "eventKind", "eventData", "enqueuedAtMillis"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("expected key %q in %s", key, data)
		}
	}

	var decoded QueueMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.RequestID != "req-1" || decoded.EnqueuedAtMillis != now.UnixMilli() {
		t.Errorf("unexpected envelope: %+v", decoded)
	}
	mr, ok := decoded.EventData.(*MergeRequestEvent)
	if !ok {
		t.Fatalf("expected *MergeRequestEvent, got %T", decoded.EventData)
	}
	if mr.PrimaryID() != "456" || mr.ProjectID() != 123 || !mr.IsMerged() {
		t.Errorf("unexpected event: %+v", mr)
	}
}

func TestQueueMessageUnknownKind(t *testing.T) {
	var msg QueueMessage
	err := json.Unmarshal([]byte(`{"requestId":"x","eventKind":"wiki","eventData":{}}`), &msg)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestPushEventAccessors(t *testing.T) {
	tests := []struct {
		name      string
		event     PushEvent
		primary   string
		isMerge   bool
		projectID int64
	}{
		{
			name:      "checkout sha wins",
			event:     PushEvent{CheckoutSHA: "abc", After: "def", ProjectIDValue: 1, Commits: []Commit{{Message: "Merge branch 'x'"}}},
			primary:   "abc",
			isMerge:   true,
			projectID: 1,
		},
		{
			name:      "after fallback",
			event:     PushEvent{After: "def", Project: Project{ID: 7}, Commits: []Commit{{Message: "fix"}}},
			primary:   "def",
			projectID: 7,
		},
		{
			name:      "two merge commits is not a merge push",
			event:     PushEvent{CheckoutSHA: "abc", Commits: []Commit{{Message: "Merge a"}, {Message: "Merge b"}}},
			primary:   "abc",
			isMerge:   false,
			projectID: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.PrimaryID(); got != tt.primary {
				t.Errorf("PrimaryID() = %q, want %q", got, tt.primary)
			}
			if got := tt.event.IsMergeCommitPush(); got != tt.isMerge {
				t.Errorf("IsMergeCommitPush() = %v, want %v", got, tt.isMerge)
			}
			if got := tt.event.ProjectID(); got != tt.projectID {
				t.Errorf("ProjectID() = %d, want %d", got, tt.projectID)
			}
		})
	}
}

func TestPushEventBranch(t *testing.T) {
	e := PushEvent{Ref: "refs/heads/main"}
	if got := e.Branch(); got != "main" {
		t.Errorf("Branch() = %q", got)
	}
}
