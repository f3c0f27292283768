// Package cardgen turns text chunks into validated flashcards by prompting a
// language model and recovering structured cards from whatever it returns.
package cardgen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"cardsmith/internal/chunker"
	"cardsmith/internal/deck"
	"cardsmith/internal/llm"
	"cardsmith/internal/prompt"
)

const systemInstruction = "You write high-quality study flashcards. You respond with JSON only."

// Options tunes generation behavior.
type Options struct {
	MaxCardsPerChunk int
	Temperature      float64
	MaxTokens        int
	// RateLimitDelay is the pause between chunks in sequential mode.
	RateLimitDelay time.Duration
	// MaxConcurrent > 0 switches to bounded concurrent generation.
	MaxConcurrent int
}

// Generator produces flashcards from chunks.
type Generator struct {
	client  llm.Client
	prompts *prompt.Library
	log     *slog.Logger
	opts    Options
}

func New(client llm.Client, prompts *prompt.Library, log *slog.Logger, opts Options) *Generator {
	if opts.MaxCardsPerChunk <= 0 {
		opts.MaxCardsPerChunk = 8
	}
	return &Generator{client: client, prompts: prompts, log: log, opts: opts}
}

// Generate produces validated cards for a single chunk. An unusable model
// response is not an error; it yields zero cards.
func (g *Generator) Generate(ctx context.Context, ch chunker.Chunk) ([]deck.Card, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemInstruction},
		{Role: llm.RoleUser, Content: g.prompts.QAPrompt(ch.Text, ch.ID.String(), g.opts.MaxCardsPerChunk)},
	}
	raw, err := g.client.Complete(ctx, messages, g.opts.Temperature, g.opts.MaxTokens)
	if err != nil {
		return nil, err
	}

	entries, strat := Parse(raw)
	if strat == "" {
		g.log.Warn("unrecoverable model response", "chunk_id", ch.ID)
		return nil, nil
	}
	if strat != "direct" {
		g.log.Info("recovered cards from malformed response", "chunk_id", ch.ID, "strategy", strat, "entries", len(entries))
	}

	cards := make([]deck.Card, 0, len(entries))
	for _, e := range entries {
		if len(cards) >= g.opts.MaxCardsPerChunk {
			break
		}
		front, back := e.front(), e.back()
		if err := validateCard(front, back); err != nil {
			g.log.Debug("dropped card", "chunk_id", ch.ID, "reason", err)
			continue
		}
		card := deck.Card{
			ID:         uuid.New(),
			Front:      front,
			Back:       back,
			Tags:       e.Tags,
			Difficulty: deck.ParseDifficulty(e.Difficulty),
			ChunkID:    ch.ID,
			SourceID:   ch.SourceID,
		}
		if id, err := uuid.Parse(e.ChunkID); err == nil {
			card.ChunkID = id
		}
		card.NormalizeTags()
		cards = append(cards, card)
	}
	return cards, nil
}

// GenerateAll runs generation over every chunk. A failing chunk contributes
// zero cards and never aborts the run; only context cancellation stops it.
// progress, if non-nil, is called after each chunk completes.
func (g *Generator) GenerateAll(ctx context.Context, chunks []chunker.Chunk, progress func(done, total, cardCount int)) ([]deck.Card, error) {
	if g.opts.MaxConcurrent > 0 {
		return g.generateConcurrent(ctx, chunks, progress)
	}
	return g.generateSequential(ctx, chunks, progress)
}

func (g *Generator) generateSequential(ctx context.Context, chunks []chunker.Chunk, progress func(done, total, cardCount int)) ([]deck.Card, error) {
	var all []deck.Card
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		cards, err := g.Generate(ctx, ch)
		if err != nil {
			g.log.Warn("chunk generation failed", "chunk_id", ch.ID, "error", err)
		}
		all = append(all, cards...)
		if progress != nil {
			progress(i+1, len(chunks), len(all))
		}
		if g.opts.RateLimitDelay > 0 && i < len(chunks)-1 {
			if err := sleepCtx(ctx, g.opts.RateLimitDelay); err != nil {
				return all, err
			}
		}
	}
	return all, nil
}

func (g *Generator) generateConcurrent(ctx context.Context, chunks []chunker.Chunk, progress func(done, total, cardCount int)) ([]deck.Card, error) {
	sem := semaphore.NewWeighted(int64(g.opts.MaxConcurrent))
	results := make([][]deck.Card, len(chunks))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		done      int
		cardCount int
	)
	for i, ch := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, ch chunker.Chunk) {
			defer wg.Done()
			defer sem.Release(1)
			cards, err := g.Generate(ctx, ch)
			if err != nil {
				g.log.Warn("chunk generation failed", "chunk_id", ch.ID, "error", err)
			}
			results[i] = cards

			mu.Lock()
			done++
			cardCount += len(cards)
			d, c := done, cardCount
			mu.Unlock()
			if progress != nil {
				progress(d, len(chunks), c)
			}
		}(i, ch)
	}
	wg.Wait()

	// Chunk order is preserved regardless of completion order.
	var all []deck.Card
	for _, cards := range results {
		all = append(all, cards...)
	}
	return all, ctx.Err()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
