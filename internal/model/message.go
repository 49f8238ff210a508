package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueMessage is the envelope published to every analysis queue.
type QueueMessage struct {
	RequestID        string    `json:"requestId"`
	EventKind        EventKind `json:"eventKind"`
	EventData        Event     `json:"eventData"`
	EnqueuedAtMillis int64     `json:"enqueuedAtMillis"`
}

// NewQueueMessage wraps an event with tracking metadata.
func NewQueueMessage(requestID string, event Event, now time.Time) QueueMessage {
	return QueueMessage{
		RequestID:        requestID,
		EventKind:        event.Kind(),
		EventData:        event,
		EnqueuedAtMillis: now.UnixMilli(),
	}
}

// UnmarshalJSON decodes eventData into the variant named by eventKind.
func (m *QueueMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		RequestID        string          `json:"requestId"`
		EventKind        EventKind       `json:"eventKind"`
		EventData        json.RawMessage `json:"eventData"`
		EnqueuedAtMillis int64           `json:"enqueuedAtMillis"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var event Event
	switch raw.EventKind {
	case KindPush:
		event = &PushEvent{}
	case KindMergeRequest:
		event = &MergeRequestEvent{}
	case KindIssue:
		event = &IssueEvent{}
	default:
		return fmt.Errorf("unknown event kind %q", raw.EventKind)
	}
	if len(raw.EventData) > 0 {
		if err := json.Unmarshal(raw.EventData, event); err != nil {
			return fmt.Errorf("decode %s event: %w", raw.EventKind, err)
		}
	}

	m.RequestID = raw.RequestID
	m.EventKind = raw.EventKind
	m.EventData = event
	m.EnqueuedAtMillis = raw.EnqueuedAtMillis
	return nil
}
