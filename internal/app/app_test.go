package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"motoya/internal/config"
	"motoya/internal/service"
)

func TestKeyspace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  redis.Cmder
		want string
	}{
		{"cached trip", redis.NewStringCmd(ctx, "get", "cache:trip:t1"), "cache"},
		{"driver lock", redis.NewBoolCmd(ctx, "setnx", "lock:driver:d1", "t1"), "lock"},
		{"plain key", redis.NewIntCmd(ctx, "sadd", "available_drivers", "d1"), "available_drivers"},
		{"no key", redis.NewStatusCmd(ctx, "ping"), "redis"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := keyspace(tt.cmd); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewEventPublisher_DisabledLogs(t *testing.T) {
	t.Parallel()

	pub, closeFn, err := NewEventPublisher(context.Background(), config.RabbitMQConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()

	if _, ok := pub.(service.LogPublisher); !ok {
		t.Errorf("expected LogPublisher, got %T", pub)
	}
}
