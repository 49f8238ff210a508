package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gitlab-metrics/internal/webhook"
	"gitlab-metrics/pkg/log"
)

// processReceiveReq reads the raw body and the webhook headers. The body is
// kept as bytes since the signature covers the exact payload.
func (h *handler) processReceiveReq(c *gin.Context) (receiveReq, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		return receiveReq{}, fmt.Errorf("read body: %w", err)
	}

	return receiveReq{
		Signature:  firstHeader(c, webhook.HeaderEventToken, webhook.HeaderGitlabToken),
		EventKind:  firstHeader(c, webhook.HeaderEventKind, webhook.HeaderGitlabEvent),
		DeliveryID: c.GetHeader(webhook.HeaderEventUUID),
		Payload:    body,
	}, nil
}

// requestID prefers the id already attached by the request-id middleware,
// then the platform delivery UUID, then a fresh one.
func (h *handler) requestID(c *gin.Context, req receiveReq) string {
	if id := log.RequestIDFrom(c.Request.Context()); id != "" {
		return id
	}
	if req.DeliveryID != "" {
		return req.DeliveryID
	}
	return h.newID()
}

func firstHeader(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.GetHeader(name); v != "" {
			return v
		}
	}
	return ""
}
