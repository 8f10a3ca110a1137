package queue

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// getRedisURL returns the Redis URL for integration tests, or "" to skip them
func getRedisURL(t *testing.T) string {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Skipf("Invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping test")
	}
	return url
}

func TestApplyRedisDefaults(t *testing.T) {
	cfg := RedisConfig{}
	applyRedisDefaults(&cfg)

	if cfg.Stream != "unitmetrics" {
		t.Errorf("Expected stream prefix 'unitmetrics', got %q", cfg.Stream)
	}
	if cfg.Group != "unitmetrics-group" {
		t.Errorf("Expected group 'unitmetrics-group', got %q", cfg.Group)
	}
	if cfg.Consumer == "" {
		t.Error("Expected a consumer name")
	}

	cfg = RedisConfig{Stream: "s", Group: "g", Consumer: "c"}
	applyRedisDefaults(&cfg)
	if cfg.Stream != "s" || cfg.Group != "g" || cfg.Consumer != "c" {
		t.Errorf("Explicit values should be kept, got %+v", cfg)
	}
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	if _, err := newRedisQueue(RedisConfig{URL: "redis://127.0.0.1:1"}, testLogger()); err == nil {
		t.Fatal("Expected error for unreachable Redis")
	}
}

func TestRedisQueue_PublishSubscribe(t *testing.T) {
	url := getRedisURL(t)

	stream := fmt.Sprintf("test-unitmetrics-%d", time.Now().UnixNano())
	q, err := newRedisQueue(RedisConfig{URL: url, Stream: stream, Group: "test-group"}, testLogger())
	if err != nil {
		t.Fatalf("Failed to create Redis queue: %v", err)
	}
	defer func() {
		q.client.Del(context.Background(), q.streamName("records"))
		_ = q.Close()
	}()

	if got := q.streamName("records"); got != stream+":records" {
		t.Errorf("Unexpected stream name %q", got)
	}

	var received int32
	if err := q.Subscribe("records", func(data []byte) error {
		atomic.AddInt32(&received, 1)
		return nil
	}); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := q.Subscribe("records", func(data []byte) error { return nil }); err == nil {
		t.Error("Expected error on double subscribe")
	}

	ctx := context.Background()
	if err := q.Publish(ctx, "records", []byte("one")); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	count, err := q.PublishBatch(ctx, []BatchMessage{
		{Subject: "records", Data: []byte("two")},
		{Subject: "records", Data: []byte("three")},
	})
	if err != nil || count != 2 {
		t.Fatalf("PublishBatch: count=%d err=%v", count, err)
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&received) == 3 }, 10*time.Second)

	if err := q.Unsubscribe("records"); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if err := q.Unsubscribe("records"); err == nil {
		t.Error("Expected error on double unsubscribe")
	}
}
