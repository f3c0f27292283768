package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cardsmith/internal/app"
	"cardsmith/internal/cache"
	"cardsmith/internal/cardgen"
	"cardsmith/internal/chunker"
	"cardsmith/internal/cleaner"
	"cardsmith/internal/deck"
	"cardsmith/internal/httputil"
	"cardsmith/internal/queue"
	"cardsmith/internal/store"
	"cardsmith/internal/summarize"
)

type generateTaskPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
}

type summarizeTaskPayload struct {
	DocumentID  uuid.UUID `json:"document_id"`
	TargetWords int       `json:"target_words"`
}

type worker struct {
	deps        app.Deps
	generator   *cardgen.Generator
	progressTTL time.Duration
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("worker starting")

	cfg := deps.Config
	w := &worker{
		deps: deps,
		generator: cardgen.New(deps.LLM, deps.Prompts, deps.Log, cardgen.Options{
			MaxCardsPerChunk: cfg.MaxCardsPerChunk,
			Temperature:      cfg.LLMTemperature,
			MaxTokens:        cfg.LLMMaxTokens,
			RateLimitDelay:   time.Duration(cfg.RateLimitDelay * float64(time.Second)),
			MaxConcurrent:    cfg.MaxConcurrent,
		}),
		progressTTL: time.Duration(cfg.ProgressTTL) * time.Second,
	}

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeGenerate, func(ctx context.Context, task queue.Task) error {
			var payload generateTaskPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			return w.handleGenerate(ctx, payload)
		})
	})

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeSummarize, func(ctx context.Context, task queue.Task) error {
			var payload summarizeTaskPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			return w.handleSummarize(ctx, payload)
		})
	})

	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, cfg.Port, "worker")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
	}
}

// handleGenerate runs the full document-to-deck pipeline: clean, chunk,
// persist chunks, generate cards per chunk, dedupe, persist the deck.
func (w *worker) handleGenerate(ctx context.Context, payload generateTaskPayload) error {
	deps := w.deps
	cfg := deps.Config
	log := deps.Log.With("document_id", payload.DocumentID)

	w.setProgress(ctx, payload.DocumentID, &cache.Progress{Stage: cache.StageCleaning})

	cleaned, stats := cleaner.Clean(payload.Content, cleaner.Options{
		RemoveURLs:          cfg.CleanRemoveURLs,
		RemoveEmails:        cfg.CleanRemoveEmails,
		NormalizeWhitespace: cfg.CleanWhitespace,
	})
	log.Info("cleaned document",
		"original_chars", stats.OriginalLength,
		"cleaned_chars", stats.CleanedLength,
		"reduction_pct", fmt.Sprintf("%.1f", stats.ReductionPercentage()))

	w.setProgress(ctx, payload.DocumentID, &cache.Progress{Stage: cache.StageChunking})

	chunks := chunker.Split(cleaned, payload.DocumentID, chunker.Options{
		MaxWords:     cfg.ChunkMaxWords,
		MinWords:     cfg.ChunkMinWords,
		OverlapWords: cfg.ChunkOverlapWords,
	})
	if len(chunks) == 0 {
		return w.failDocument(ctx, payload.DocumentID, "document produced no usable chunks", nil)
	}

	saved, err := deps.Store.SaveChunks(ctx, payload.DocumentID, chunks)
	if err != nil {
		return w.failDocument(ctx, payload.DocumentID, "failed to save chunks", err)
	}
	log.Info("chunked document", "chunks", len(saved))

	w.setProgress(ctx, payload.DocumentID, &cache.Progress{
		Stage:       cache.StageGenerating,
		ChunksTotal: len(saved),
	})

	cards, err := w.generator.GenerateAll(ctx, saved, func(done, total, cardCount int) {
		w.setProgress(ctx, payload.DocumentID, &cache.Progress{
			Stage:       cache.StageGenerating,
			ChunksDone:  done,
			ChunksTotal: total,
			CardCount:   cardCount,
		})
	})
	if err != nil {
		return w.failDocument(ctx, payload.DocumentID, "card generation aborted", err)
	}

	d := deck.New(payload.Title)
	d.AddAll(cards)
	if removed := d.RemoveDuplicates(); removed > 0 {
		log.Info("removed duplicate cards", "removed", removed)
	}

	if err := deps.Store.SaveCards(ctx, payload.DocumentID, d.Cards); err != nil {
		return w.failDocument(ctx, payload.DocumentID, "failed to save cards", err)
	}
	if err := deps.Store.UpdateDocumentStatus(ctx, payload.DocumentID, store.StatusReady, ""); err != nil {
		return err
	}

	w.setProgress(ctx, payload.DocumentID, &cache.Progress{
		Stage:       cache.StageDone,
		ChunksDone:  len(saved),
		ChunksTotal: len(saved),
		CardCount:   len(d.Cards),
	})
	log.Info("deck ready", "cards", len(d.Cards), "chunks", len(saved))
	return nil
}

// handleSummarize summarizes every stored chunk and combines the results
// into one document summary.
func (w *worker) handleSummarize(ctx context.Context, payload summarizeTaskPayload) error {
	deps := w.deps
	cfg := deps.Config
	log := deps.Log.With("document_id", payload.DocumentID)

	chunks, err := deps.Store.ListChunks(ctx, payload.DocumentID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks stored for document %s", payload.DocumentID)
	}

	targetWords := payload.TargetWords
	if targetWords <= 0 {
		targetWords = cfg.SummaryTargetWords
	}
	summarizer := summarize.New(deps.LLM, deps.Prompts, deps.Log, summarize.Options{
		TargetWords: targetWords,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		BatchPause:  time.Duration(cfg.BatchPause * float64(time.Second)),
	})

	w.setProgress(ctx, payload.DocumentID, &cache.Progress{
		Stage:       cache.StageSummarizing,
		ChunksTotal: len(chunks),
	})

	perChunk := summarizer.SummarizeAll(ctx, chunks)
	combined := summarizer.Combine(ctx, perChunk)

	if err := deps.Store.SaveSummary(ctx, payload.DocumentID, store.Summary{
		DocumentID:  payload.DocumentID,
		Summary:     combined,
		TargetWords: targetWords,
	}); err != nil {
		return err
	}

	w.setProgress(ctx, payload.DocumentID, &cache.Progress{
		Stage:       cache.StageDone,
		ChunksDone:  len(chunks),
		ChunksTotal: len(chunks),
	})
	log.Info("summary ready", "chunks", len(chunks), "target_words", targetWords)
	return nil
}

func (w *worker) setProgress(ctx context.Context, docID uuid.UUID, p *cache.Progress) {
	if err := w.deps.Cache.SetProgress(ctx, docID.String(), p, w.progressTTL); err != nil {
		w.deps.Log.Warn("failed to update progress", "document_id", docID, "err", err)
	}
}

// failDocument marks the document failed and surfaces the error to the
// queue, which retries with backoff until the attempt budget runs out.
func (w *worker) failDocument(ctx context.Context, docID uuid.UUID, message string, cause error) error {
	if err := w.deps.Store.UpdateDocumentStatus(ctx, docID, store.StatusFailed, message); err != nil {
		w.deps.Log.Error("failed to mark document failed", "document_id", docID, "err", err)
	}
	w.setProgress(ctx, docID, &cache.Progress{Stage: cache.StageFailed, Error: message})
	if cause != nil {
		return fmt.Errorf("%s: %w", message, cause)
	}
	return fmt.Errorf("%s", message)
}
