package summarize

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"cardsmith/internal/llm"
)

const mergedResponse = "A combined summary long enough to pass the length guard."

func TestCombineEmpty(t *testing.T) {
	client := new(llm.MockClient)
	s := testSummarizer(t, client)

	assert.Equal(t, emptySentinel, s.Combine(context.Background(), nil))
	assert.Equal(t, emptySentinel, s.Combine(context.Background(), []string{"", "  ", "\n"}))
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCombineSingleVerbatim(t *testing.T) {
	client := new(llm.MockClient)
	s := testSummarizer(t, client)

	got := s.Combine(context.Background(), []string{"", "only one summary here"})
	assert.Equal(t, "only one summary here", got)
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCombineDirectSingleCall(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(mergedResponse, nil)

	s := testSummarizer(t, client)
	summaries := make([]string, 20)
	for i := range summaries {
		summaries[i] = fmt.Sprintf("summary %d", i)
	}

	got := s.Combine(context.Background(), summaries)
	assert.Equal(t, mergedResponse, got)
	client.AssertNumberOfCalls(t, "Complete", 1)
}

// 25 summaries exceed the direct limit: one grouping pass of 4 groups, then
// a final direct combine of the 4 intermediates. Five model calls total.
func TestCombineHierarchical(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(mergedResponse, nil)

	s := testSummarizer(t, client)
	summaries := make([]string, 25)
	for i := range summaries {
		summaries[i] = fmt.Sprintf("chunk summary number %d with some content", i)
	}

	got := s.Combine(context.Background(), summaries)
	assert.Equal(t, mergedResponse, got)
	client.AssertNumberOfCalls(t, "Complete", 5)
}

func TestCombineFallbackOnError(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("server down"))

	s := testSummarizer(t, client)
	got := s.Combine(context.Background(), []string{
		"Cells divide by mitosis.",
		"Cells divide by mitosis.",
		"Proteins are built by ribosomes.",
	})

	assert.Equal(t, "Cells divide by mitosis. Proteins are built by ribosomes.", got)
}

func TestCombineFallbackOnShortResult(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("ok", nil)

	s := testSummarizer(t, client)
	got := s.Combine(context.Background(), []string{
		"First distinct summary sentence.",
		"Second distinct summary sentence.",
	})

	assert.Contains(t, got, "First distinct summary sentence.")
	assert.Contains(t, got, "Second distinct summary sentence.")
}

func TestFallbackCombineDedupsSubstrings(t *testing.T) {
	got := fallbackCombine([]string{
		"The Krebs cycle produces ATP in the mitochondria.",
		"the krebs cycle produces atp in the mitochondria.",
		"Glycolysis happens in the cytoplasm.",
	})
	assert.Equal(t, "The Krebs cycle produces ATP in the mitochondria. Glycolysis happens in the cytoplasm.", got)
}
