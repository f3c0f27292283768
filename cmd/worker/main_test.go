package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cardsmith/internal/app"
	"cardsmith/internal/cache"
	"cardsmith/internal/cardgen"
	"cardsmith/internal/chunker"
	"cardsmith/internal/config"
	"cardsmith/internal/deck"
	"cardsmith/internal/llm"
	"cardsmith/internal/prompt"
	"cardsmith/internal/store"
)

func testWorker(t *testing.T, st store.Store, llmClient llm.Client) *worker {
	t.Helper()
	prompts, err := prompt.Load("")
	require.NoError(t, err)

	cfg := config.Config{
		ChunkMaxWords:      50,
		ChunkMinWords:      1,
		ChunkOverlapWords:  0,
		MaxCardsPerChunk:   8,
		SummaryTargetWords: 100,
	}
	deps := app.Deps{
		Config:  cfg,
		Log:     slog.New(slog.DiscardHandler),
		Store:   st,
		Cache:   cache.NewNoOpCache(),
		LLM:     llmClient,
		Prompts: prompts,
	}
	return &worker{
		deps: deps,
		generator: cardgen.New(llmClient, prompts, deps.Log, cardgen.Options{
			MaxCardsPerChunk: cfg.MaxCardsPerChunk,
		}),
		progressTTL: time.Minute,
	}
}

func TestHandleGenerate(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("SaveChunks", mock.Anything, docID, mock.MatchedBy(func(chunks []chunker.Chunk) bool {
		return len(chunks) == 1 && chunks[0].SourceID == docID
	})).Return([]chunker.Chunk{
		{ID: uuid.New(), SourceID: docID, Index: 0, Text: "The cell is the basic structural unit of all known organisms."},
	}, nil)
	st.On("SaveCards", mock.Anything, docID, mock.MatchedBy(func(cards []deck.Card) bool {
		return len(cards) == 1 && cards[0].Front == "What is a cell?"
	})).Return(nil)
	st.On("UpdateDocumentStatus", mock.Anything, docID, store.StatusReady, "").Return(nil)

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(`{"cards":[{"front":"What is a cell?","back":"The basic unit of life."}]}`, nil)

	w := testWorker(t, st, client)
	err := w.handleGenerate(context.Background(), generateTaskPayload{
		DocumentID: docID,
		Title:      "biology notes",
		Content:    "The cell is the basic structural unit of all known organisms.",
	})

	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestHandleGenerateEmptyDocumentFails(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("UpdateDocumentStatus", mock.Anything, docID, store.StatusFailed, mock.Anything).Return(nil)

	w := testWorker(t, st, new(llm.MockClient))
	err := w.handleGenerate(context.Background(), generateTaskPayload{
		DocumentID: docID,
		Content:    "   \n\n  ",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable chunks")
	st.AssertExpectations(t)
}

func TestHandleSummarize(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("ListChunks", mock.Anything, docID).Return([]chunker.Chunk{
		{ID: uuid.New(), SourceID: docID, Text: "chunk one text"},
	}, nil)
	st.On("SaveSummary", mock.Anything, docID, mock.MatchedBy(func(s store.Summary) bool {
		return s.Summary == "A summary of the single chunk." && s.TargetWords == 200
	})).Return(nil)

	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("A summary of the single chunk.", nil)

	w := testWorker(t, st, client)
	err := w.handleSummarize(context.Background(), summarizeTaskPayload{
		DocumentID:  docID,
		TargetWords: 200,
	})

	require.NoError(t, err)
	st.AssertExpectations(t)
	// One chunk means one generation call and no combine call.
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestHandleSummarizeNoChunks(t *testing.T) {
	docID := uuid.New()
	st := new(store.MockStore)
	st.On("ListChunks", mock.Anything, docID).Return([]chunker.Chunk{}, nil)

	w := testWorker(t, st, new(llm.MockClient))
	err := w.handleSummarize(context.Background(), summarizeTaskPayload{DocumentID: docID})
	require.Error(t, err)
}
