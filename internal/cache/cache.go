package cache

import (
	"context"
	"time"
)

// Pipeline stages reported through the progress cache.
const (
	StageCleaning    = "cleaning"
	StageChunking    = "chunking"
	StageGenerating  = "generating"
	StageSummarizing = "summarizing"
	StageDone        = "done"
	StageFailed      = "failed"
)

// Progress is the live state of one document's pipeline run.
type Progress struct {
	Stage       string `json:"stage"`
	ChunksDone  int    `json:"chunks_done"`
	ChunksTotal int    `json:"chunks_total"`
	CardCount   int    `json:"card_count"`
	Error       string `json:"error,omitempty"`
}

// Cache provides progress tracking for in-flight pipeline runs.
type Cache interface {
	// GetProgress retrieves the progress for a document.
	// Returns nil if no run is tracked.
	GetProgress(ctx context.Context, docID string) (*Progress, error)

	// SetProgress stores progress with a TTL.
	SetProgress(ctx context.Context, docID string, p *Progress, ttl time.Duration) error

	// ClearProgress removes the tracked progress for a document.
	ClearProgress(ctx context.Context, docID string) error

	// Close closes the cache connection.
	Close() error
}
