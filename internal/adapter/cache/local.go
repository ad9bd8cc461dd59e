package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/careagent/medai/internal/ports"
)

type localEntry struct {
	value    string
	deadline time.Time
}

// LocalCache is the single-process fallback when Redis is unreachable. It
// only ever holds backend read results, so every entry carries a deadline; a
// Set without a TTL gets the configured default rather than living forever.
type LocalCache struct {
	defaultTTL time.Duration

	mu      sync.RWMutex
	entries map[string]localEntry

	log  *zap.Logger
	done chan struct{}
}

// NewLocalCache creates the in-memory fallback. defaultTTL bounds the
// lifetime of entries stored without an explicit TTL and paces the sweeper.
func NewLocalCache(defaultTTL time.Duration, log *zap.Logger) ports.Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}

	c := &LocalCache{
		defaultTTL: defaultTTL,
		entries:    make(map[string]localEntry),
		log:        log,
		done:       make(chan struct{}),
	}
	go c.sweep()

	log.Info("Using in-memory cache", zap.Duration("default_ttl", defaultTTL))
	return c
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.deadline) {
		return "", fmt.Errorf("cache miss: %s", key)
	}
	return entry.value, nil
}

func (c *LocalCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.entries[key] = localEntry{value: value, deadline: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Ping() error { return nil }

func (c *LocalCache) Close() error {
	close(c.done)
	return nil
}

// sweep drops expired entries so an idle process does not accumulate stale
// backend responses between requests.
func (c *LocalCache) sweep() {
	ticker := time.NewTicker(c.defaultTTL)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.deadline) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
