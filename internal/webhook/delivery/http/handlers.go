package http

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"gitlab-metrics/internal/ratelimit"
	"gitlab-metrics/internal/webhook"
	pkgErrors "gitlab-metrics/pkg/errors"
	"gitlab-metrics/pkg/log"
	"gitlab-metrics/pkg/response"
)

// Receive godoc
// @Summary     Receive a GitLab webhook
// @Description Authenticates, rate limits and classifies a GitLab webhook, then hands it off for asynchronous analysis.
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       X-Gitlab-Token      header string true  "Shared secret or hex HMAC-SHA256 of the body"
// @Param       X-Gitlab-Event      header string true  "Event kind, e.g. Push Hook"
// @Param       X-Gitlab-Event-UUID header string false "Delivery id, reused as request id"
// @Success     200 {object} receiveResp
// @Failure     400 {object} response.Resp "Unsupported event type or invalid payload"
// @Failure     401 {object} response.Resp "Webhook validation failed"
// @Failure     429 {object} response.Resp "Rate limit exceeded"
// @Failure     503 {object} response.Resp "Event processor unavailable"
// @Failure     500 {object} response.Resp "Internal Server Error"
// @Router      /api/webhook/gitlab [POST]
func (h *handler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	req, err := h.processReceiveReq(c)
	if err != nil {
		h.l.Warnf(ctx, "webhook.delivery.http.Receive: %v", err)
		response.Error(c, pkgErrors.ErrBadRequest, nil)
		return
	}

	requestID := h.requestID(c, req)
	ctx = log.WithEventKind(log.WithRequestID(ctx, requestID), req.EventKind)
	c.Request = c.Request.WithContext(ctx)
	data := gin.H{"request_id": requestID}

	h.l.Infof(ctx, "webhook.delivery.http.Receive: eventKind=%q payloadSize=%d", req.EventKind, len(req.Payload))

	if err := h.security.Validate(req.Signature, req.Payload); err != nil {
		h.l.Warnf(ctx, "webhook.delivery.http.Receive: %v", err)
		response.Error(c, h.mapError(err), data)
		return
	}

	if err := h.admit(c); err != nil {
		h.l.Warnf(ctx, "webhook.delivery.http.Receive: %v", err)
		response.Error(c, h.mapError(err), data)
		return
	}

	if !webhook.IsSupportedEventKind(req.EventKind) {
		h.l.Warnf(ctx, "webhook.delivery.http.Receive: unsupported event kind %q", req.EventKind)
		response.Error(c, errUnsupportedKind, data)
		return
	}

	output, err := h.uc.Dispatch(ctx, req.toEnvelope(requestID, h.now()))
	if err != nil {
		if errors.Is(err, webhook.ErrDuplicateEvent) {
			response.OK(c, h.newDuplicateResp(requestID))
			return
		}
		h.l.Errorf(ctx, "webhook.delivery.http.Receive: uc.Dispatch: %v", err)
		response.Error(c, h.mapError(err), data)
		return
	}

	response.OK(c, h.newReceiveResp(output))
}

// admit applies the admission limiter and writes the rate limit headers.
// Store failures never reject: the limiter fails open.
func (h *handler) admit(c *gin.Context) error {
	if h.limiter == nil {
		return nil
	}

	ctx := c.Request.Context()
	decision, err := h.limiter.Admit(ctx, ratelimit.ClientKey(c.Request), ratelimit.ClassForPath(c.FullPath()))
	if err != nil {
		h.l.Warnf(ctx, "webhook.delivery.http.admit: limiter.Admit: %v", err)
		return nil
	}

	c.Header(webhook.HeaderRateLimit, strconv.Itoa(decision.Limit))
	c.Header(webhook.HeaderRateRemain, strconv.Itoa(decision.Remaining))
	c.Header(webhook.HeaderRateReset, strconv.FormatInt(decision.ResetAtMillis, 10))

	if decision.Allow {
		return nil
	}

	retryAfter := (decision.ResetAtMillis - h.now().UnixMilli() + 999) / 1000
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header(webhook.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
	return webhook.ErrRateLimited
}

// Health godoc
// @Summary     Webhook health
// @Tags        Webhook
// @Produce     json
// @Success     200 {object} map[string]interface{}
// @Router      /api/webhook/health [GET]
func (h *handler) Health(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  statusHealthy,
		"message": "Webhook service is healthy",
	})
}

// EventKinds godoc
// @Summary     Supported event kinds
// @Description Lists the event kinds that have a registered parser.
// @Tags        Webhook
// @Produce     json
// @Success     200 {object} eventKindsResp
// @Router      /api/webhook/event-kinds [GET]
func (h *handler) EventKinds(c *gin.Context) {
	response.OK(c, h.newEventKindsResp(h.uc.SupportedEventKinds()))
}

// Breakers godoc
// @Summary     Circuit breaker states
// @Tags        Webhook
// @Produce     json
// @Success     200 {object} breakersResp
// @Router      /api/webhook/breakers [GET]
func (h *handler) Breakers(c *gin.Context) {
	if h.breakers == nil {
		response.OK(c, h.newBreakersResp(nil))
		return
	}
	response.OK(c, h.newBreakersResp(h.breakers.Snapshot()))
}
