// Package summarize generates per-chunk summaries and merges them into one
// document summary, falling back to hierarchical combination when there are
// too many to merge in a single prompt.
package summarize

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cardsmith/internal/chunker"
	"cardsmith/internal/llm"
	"cardsmith/internal/prompt"
)

const maxBatchSize = 5

// Options tunes summary generation.
type Options struct {
	TargetWords int
	Temperature float64
	MaxTokens   int
	// BatchPause is the wait between batches of concurrent requests, to
	// avoid overloading a single local model server.
	BatchPause time.Duration
}

// Summarizer produces chunk and document summaries through an LLM client.
type Summarizer struct {
	client  llm.Client
	prompts *prompt.Library
	log     *slog.Logger
	opts    Options
}

func New(client llm.Client, prompts *prompt.Library, log *slog.Logger, opts Options) *Summarizer {
	if opts.TargetWords <= 0 {
		opts.TargetWords = 300
	}
	return &Summarizer{client: client, prompts: prompts, log: log, opts: opts}
}

// Summarize runs one prompt/response round trip for a block of text.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: s.prompts.SummaryPrompt(text, s.opts.TargetWords)},
	}
	out, err := s.client.Complete(ctx, messages, s.opts.Temperature, s.opts.MaxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// SummarizeAll summarizes every chunk, returning one entry per chunk in
// chunk order. A failed or empty generation becomes an empty string at its
// position, so index correspondence with the input is always preserved.
// Chunks are processed in batches of at most five, concurrently within a
// batch, with a pause between batches.
func (s *Summarizer) SummarizeAll(ctx context.Context, chunks []chunker.Chunk) []string {
	out := make([]string, len(chunks))
	if len(chunks) == 0 {
		return out
	}
	batchSize := min(maxBatchSize, len(chunks))

	for start := 0; start < len(chunks); start += batchSize {
		if ctx.Err() != nil {
			return out
		}
		end := min(start+batchSize, len(chunks))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				summary, err := s.Summarize(ctx, chunks[i].Text)
				if err != nil {
					s.log.Warn("chunk summary failed", "chunk_id", chunks[i].ID, "error", err)
					return
				}
				out[i] = summary
			}(i)
		}
		wg.Wait()

		if s.opts.BatchPause > 0 && end < len(chunks) {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(s.opts.BatchPause):
			}
		}
	}
	return out
}
