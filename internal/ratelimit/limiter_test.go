package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"

	redisStore "gitlab-metrics/internal/ratelimit/repository/redis"
	"gitlab-metrics/pkg/log"
)

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

type recordingStore struct {
	keys []string
}

func (s *recordingStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.keys = append(s.keys, key)
	return 1, window, nil
}

func TestLimiter_WindowWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	lm := New(log.NewNop(), redisStore.New(client), Config{
		Window: time.Minute,
		Limits: map[string]int{"default": 100},
	})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lm.now = func() time.Time { return base }
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		d, err := lm.Admit(ctx, "10.0.0.1", ClassDefault)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if !d.Allow {
			t.Fatalf("request %d rejected", i)
		}
		if d.Remaining != 100-i {
			t.Fatalf("request %d: remaining = %d", i, d.Remaining)
		}
	}

	d, _ := lm.Admit(ctx, "10.0.0.1", ClassDefault)
	if d.Allow {
		t.Fatal("request 101 must be rejected")
	}
	if d.Remaining != 0 || d.Limit != 100 {
		t.Errorf("unexpected decision %+v", d)
	}
	if d.ResetAtMillis <= base.UnixMilli() {
		t.Errorf("reset %d must be in the future", d.ResetAtMillis)
	}

	other, _ := lm.Admit(ctx, "10.0.0.2", ClassDefault)
	if !other.Allow {
		t.Error("other clients have their own window")
	}

	mr.FastForward(61 * time.Second)
	lm.now = func() time.Time { return base.Add(61 * time.Second) }

	d, _ = lm.Admit(ctx, "10.0.0.1", ClassDefault)
	if !d.Allow {
		t.Fatal("request after the window must be admitted")
	}
}

func TestLimiter_ClassThresholds(t *testing.T) {
	lm := New(log.NewNop(), &recordingStore{}, Config{
		Window: time.Minute,
		Limits: map[string]int{"default": 100, "dashboard": 20, "realtime": 60},
	})
	ctx := context.Background()

	tests := []struct {
		class Class
		want  int
	}{
		{ClassDefault, 100},
		{ClassDashboard, 20},
		{ClassRealtime, 60},
		{Class("unknown"), 100},
	}
	for _, tt := range tests {
		d, _ := lm.Admit(ctx, "c", tt.class)
		if d.Limit != tt.want {
			t.Errorf("class %q limit = %d, want %d", tt.class, d.Limit, tt.want)
		}
	}
}

func TestLimiter_DefaultsWithoutConfig(t *testing.T) {
	lm := New(log.NewNop(), &recordingStore{}, Config{})
	d, _ := lm.Admit(context.Background(), "c", ClassDashboard)
	if d.Limit != defaultLimit {
		t.Errorf("limit = %d, want %d", d.Limit, defaultLimit)
	}
}

func TestLimiter_CounterKey(t *testing.T) {
	store := &recordingStore{}
	lm := New(log.NewNop(), store, Config{Window: time.Minute, Limits: map[string]int{"default": 1}})
	lm.Admit(context.Background(), "192.168.0.9", ClassRealtime)

	if len(store.keys) != 1 || store.keys[0] != "rate_limit:192.168.0.9:realtime" {
		t.Errorf("keys = %v", store.keys)
	}
}

func TestLimiter_FailOpen(t *testing.T) {
	lm := New(log.NewNop(), failingStore{}, Config{Window: time.Minute, Limits: map[string]int{"default": 1}})

	for i := 0; i < 3; i++ {
		d, err := lm.Admit(context.Background(), "c", ClassDefault)
		if err != nil {
			t.Fatalf("fail open must not return an error: %v", err)
		}
		if !d.Allow {
			t.Fatal("store failure must admit")
		}
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, remote: "3.3.3.3:1", want: "1.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "4.4.4.4"}, remote: "3.3.3.3:1", want: "4.4.4.4"},
		{name: "unknown forwarded", headers: map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "5.5.5.5"}, remote: "3.3.3.3:1", want: "5.5.5.5"},
		{name: "peer", remote: "3.3.3.3:1", want: "3.3.3.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientKey(r); got != tt.want {
				t.Errorf("ClientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassForPath(t *testing.T) {
	tests := map[string]Class{
		"/api/webhook/gitlab":      ClassDefault,
		"/api/dashboard/summary":   ClassDashboard,
		"/api/metrics/realtime/ws": ClassRealtime,
	}
	for path, want := range tests {
		if got := ClassForPath(path); got != want {
			t.Errorf("ClassForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
