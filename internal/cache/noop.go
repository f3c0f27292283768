package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing. Used as a fallback
// when Redis is unavailable: all operations succeed but nothing is stored,
// so progress lookups always miss.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetProgress(ctx context.Context, docID string) (*Progress, error) {
	return nil, nil
}

func (c *NoOpCache) SetProgress(ctx context.Context, docID string, p *Progress, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) ClearProgress(ctx context.Context, docID string) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
