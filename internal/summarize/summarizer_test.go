package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cardsmith/internal/chunker"
	"cardsmith/internal/llm"
	"cardsmith/internal/prompt"
)

func testSummarizer(t *testing.T, client llm.Client) *Summarizer {
	t.Helper()
	lib, err := prompt.Load("")
	require.NoError(t, err)
	return New(client, lib, slog.New(slog.DiscardHandler), Options{TargetWords: 100})
}

func TestSummarizeTrimsResponse(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("  A tidy summary.\n", nil)

	s := testSummarizer(t, client)
	got, err := s.Summarize(context.Background(), "some material")

	require.NoError(t, err)
	assert.Equal(t, "A tidy summary.", got)
}

func TestSummarizeAllPreservesPositions(t *testing.T) {
	chunks := []chunker.Chunk{
		{ID: uuid.New(), Text: "first"},
		{ID: uuid.New(), Text: "second"},
		{ID: uuid.New(), Text: "third"},
	}

	client := new(llm.MockClient)
	for i, ch := range chunks {
		want := ch.Text
		call := client.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
			return len(msgs) == 1 && strings.Contains(msgs[0].Content, want)
		}), mock.Anything, mock.Anything)
		if i == 1 {
			call.Return("", fmt.Errorf("model crashed"))
		} else {
			call.Return(fmt.Sprintf("summary of %s", want), nil)
		}
	}

	s := testSummarizer(t, client)
	got := s.SummarizeAll(context.Background(), chunks)

	require.Len(t, got, 3)
	assert.Equal(t, "summary of first", got[0])
	assert.Empty(t, got[1], "failed chunk must keep its empty placeholder")
	assert.Equal(t, "summary of third", got[2])
}

func TestSummarizeAllEmptyInput(t *testing.T) {
	s := testSummarizer(t, new(llm.MockClient))
	assert.Empty(t, s.SummarizeAll(context.Background(), nil))
}
