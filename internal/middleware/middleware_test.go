package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"gitlab-metrics/internal/webhook"
	"gitlab-metrics/pkg/log"
)

func newEngine(m Middleware, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, log.RequestIDFrom(c.Request.Context()))
	})
	return r
}

func TestRequestID(t *testing.T) {
	m := New(log.NewNop(), nil)
	m.newID = func() string { return "fresh" }
	r := newEngine(m, m.RequestID())

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "delivery uuid", headers: map[string]string{"X-Gitlab-Event-UUID": "gl-1", "X-Request-ID": "rq-1"}, want: "gl-1"},
		{name: "request id header", headers: map[string]string{"X-Request-ID": "rq-1"}, want: "rq-1"},
		{name: "generated", want: "fresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Body.String() != tt.want {
				t.Errorf("context request id = %q, want %q", w.Body.String(), tt.want)
			}
			if w.Header().Get(HeaderRequestID) != tt.want {
				t.Errorf("response header = %q, want %q", w.Header().Get(HeaderRequestID), tt.want)
			}
		})
	}
}

func TestWebhookIPAllowList(t *testing.T) {
	security := webhook.NewSecurityValidator(webhook.SecurityConfig{
		Secret:     "s",
		AllowedIPs: []string{"10.0.0.0/8", "203.0.113.7"},
	})
	m := New(log.NewNop(), security)
	r := newEngine(m, m.WebhookIPAllowList())

	tests := []struct {
		name string
		peer string
		xff  string
		want int
	}{
		{name: "cidr member", peer: "10.1.2.3:5000", want: http.StatusOK},
		{name: "exact ip", peer: "203.0.113.7:5000", want: http.StatusOK},
		{name: "outsider", peer: "198.51.100.1:5000", want: http.StatusForbidden},
		{name: "outsider spoofing forwarded header", peer: "198.51.100.9:4444", xff: "10.1.2.3", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.RemoteAddr = tt.peer
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAccessLogPassesThrough(t *testing.T) {
	m := New(log.NewNop(), nil)
	r := newEngine(m, m.AccessLog())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
