package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"gitlab-metrics/config"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer Disconnect(client)

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("miniredis value = %q", got)
	}
}

func TestConnectErrors(t *testing.T) {
	if _, err := Connect(context.Background(), config.RedisConfig{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("empty addr: got %v, want ErrNotConfigured", err)
	}

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := Connect(context.Background(), config.RedisConfig{Addr: addr}); err == nil {
		t.Error("expected ping failure against a closed server")
	}

	if err := Disconnect(nil); err != nil {
		t.Errorf("Disconnect(nil) = %v", err)
	}
}
