package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/careagent/medai/pkg/config"
)

// startRedis spins up a disposable Redis container. Tests that need it are
// skipped when Docker is not available.
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	// testcontainers panics (rather than returning an error) when no Docker
	// daemon can be found; treat that the same as a startup error.
	container, err := func() (c *tcredis.RedisContainer, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("docker not available: %v", r)
			}
		}()
		return tcredis.Run(ctx, "redis:7-alpine")
	}()
	if err != nil {
		t.Skipf("could not start redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}
	return url
}

func TestRedisCache_SetAndGet(t *testing.T) {
	// Arrange
	url := startRedis(t)
	store, err := NewRedisCache(config.RedisConfig{URL: url}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	// Act
	if err := store.Set(ctx, "backend:/api/medicines/|user=1", `[{"name":"Napa"}]`, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := store.Get(ctx, "backend:/api/medicines/|user=1")

	// Assert
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != `[{"name":"Napa"}]` {
		t.Errorf("unexpected value: %s", got)
	}
	if _, err := store.Get(ctx, "backend:/api/medicines/|user=2"); err == nil {
		t.Error("expected a miss for an unknown key")
	}
}

func TestRedisCache_Expiration(t *testing.T) {
	// Arrange
	url := startRedis(t)
	store, err := NewRedisCache(config.RedisConfig{URL: url}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	// Act
	if err := store.Set(ctx, "ephemeral", "v", 100*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	// Assert
	if _, err := store.Get(ctx, "ephemeral"); err == nil {
		t.Error("expected key to expire")
	}
}

func TestLocalCache_FallbackBehavior(t *testing.T) {
	// Arrange
	store := NewLocalCache(time.Minute, zap.NewNop())
	defer store.Close()
	ctx := context.Background()

	// Act
	if err := store.Set(ctx, "k", "v", 50*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := store.Get(ctx, "k")

	// Assert
	if err != nil || got != "v" {
		t.Fatalf("expected v, got %q (%v)", got, err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, err := store.Get(ctx, "k"); err == nil {
		t.Error("expected expiry in local cache")
	}
}

func TestLocalCache_DefaultTTLApplied(t *testing.T) {
	// Arrange: a zero TTL must not produce an immortal entry.
	store := NewLocalCache(50*time.Millisecond, zap.NewNop())
	defer store.Close()
	ctx := context.Background()

	// Act
	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// Assert
	if got, err := store.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("expected v before the default TTL elapses, got %q (%v)", got, err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, err := store.Get(ctx, "k"); err == nil {
		t.Error("expected entry to expire after the default TTL")
	}
}
