package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("redis port: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	cleanup := func() {
		_ = rdb.Close()
		_ = container.Terminate(context.Background())
	}
	return rdb, cleanup
}

func TestRedisLimiter(t *testing.T) {
	rdb, cleanup := setupRedis(t)
	defer cleanup()

	clock := &fakeClock{now: time.Now()}
	l := NewRedisLimiter(rdb, 3, time.Minute)
	l.now = clock.Now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "email:alice@example.com")
		if err != nil || !ok {
			t.Fatalf("attempt %d should pass, ok=%v err=%v", i, ok, err)
		}
		clock.now = clock.now.Add(time.Millisecond)
	}

	ok, err := l.Allow(ctx, "email:alice@example.com")
	if err != nil || ok {
		t.Fatalf("fourth attempt should be rejected, ok=%v err=%v", ok, err)
	}

	ok, err = l.Allow(ctx, "email:bob@example.com")
	if err != nil || !ok {
		t.Fatalf("other keys must be unaffected, ok=%v err=%v", ok, err)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	ok, err = l.Allow(ctx, "email:alice@example.com")
	if err != nil || !ok {
		t.Fatalf("attempt after the window should pass, ok=%v err=%v", ok, err)
	}

	ttl, err := rdb.PTTL(ctx, l.redisKey("email:alice@example.com")).Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("expected key to expire, ttl=%v err=%v", ttl, err)
	}
}

func TestRedisLimiterUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer rdb.Close()

	l := NewRedisLimiter(rdb, 3, time.Minute)
	if _, err := l.Allow(context.Background(), "ip:10.0.0.1"); err == nil {
		t.Fatalf("expected error from unreachable redis")
	}
}
