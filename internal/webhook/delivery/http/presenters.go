package http

import (
	"time"

	"gitlab-metrics/internal/model"
	"gitlab-metrics/internal/webhook"
	"gitlab-metrics/pkg/breaker"
	"gitlab-metrics/pkg/response"
)

const (
	statusAccepted  = "accepted"
	statusDuplicate = "duplicate"
	statusHealthy   = "healthy"
)

// maxPayloadBytes bounds the webhook body read into memory.
const maxPayloadBytes = 10 << 20

// --- Request DTOs ---

type receiveReq struct {
	Signature  string
	EventKind  string
	DeliveryID string
	Payload    []byte
}

func (r receiveReq) toEnvelope(requestID string, receivedAt time.Time) model.WebhookEnvelope {
	return model.WebhookEnvelope{
		EventKind:  r.EventKind,
		RawPayload: r.Payload,
		RequestID:  requestID,
		ReceivedAt: receivedAt,
	}
}

// --- Response DTOs ---

type receiveResp struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	EventKind string `json:"event_kind,omitempty"`
	ProjectID int64  `json:"project_id,omitempty"`
	PrimaryID string `json:"primary_id,omitempty"`
}

func (h *handler) newReceiveResp(o webhook.DispatchOutput) receiveResp {
	return receiveResp{
		Status:    statusAccepted,
		RequestID: o.RequestID,
		EventKind: string(o.Kind),
		ProjectID: o.ProjectID,
		PrimaryID: o.PrimaryID,
	}
}

func (h *handler) newDuplicateResp(requestID string) receiveResp {
	return receiveResp{
		Status:    statusDuplicate,
		RequestID: requestID,
	}
}

type eventKindsResp struct {
	EventKinds []string `json:"event_kinds"`
}

func (h *handler) newEventKindsResp(kinds []model.EventKind) eventKindsResp {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return eventKindsResp{EventKinds: out}
}

type breakerItem struct {
	Name                string             `json:"name"`
	State               string             `json:"state"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	LastFailureAt       *response.DateTime `json:"last_failure_at,omitempty"`
	LastFailureAtMillis int64              `json:"last_failure_at_millis,omitempty"`
}

type breakersResp struct {
	Breakers []breakerItem `json:"breakers"`
}

func (h *handler) newBreakersResp(stats []breaker.Stats) breakersResp {
	items := make([]breakerItem, 0, len(stats))
	for _, s := range stats {
		item := breakerItem{
			Name:                s.Name,
			State:               s.State,
			ConsecutiveFailures: s.ConsecutiveFailures,
		}
		if !s.LastFailureAt.IsZero() {
			at := response.DateTime(s.LastFailureAt)
			item.LastFailureAt = &at
			item.LastFailureAtMillis = s.LastFailureAt.UnixMilli()
		}
		items = append(items, item)
	}
	return breakersResp{Breakers: items}
}
