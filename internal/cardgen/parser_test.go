package cardgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormed(t *testing.T) {
	entries, strat := Parse(`{"cards":[{"front":"Q1?","back":"A1"}]}`)

	require.Equal(t, "direct", strat)
	require.Len(t, entries, 1)
	assert.Equal(t, "Q1?", entries[0].front())
	assert.Equal(t, "A1", entries[0].back())
}

func TestParseSurroundingProse(t *testing.T) {
	raw := `Sure! Here are your cards: {"cards":[{"front":"Q?","back":"A"}]} Hope that helps.`
	entries, strat := Parse(raw)

	require.Equal(t, "direct", strat)
	require.Len(t, entries, 1)
}

func TestParseMarkdownFence(t *testing.T) {
	raw := "```json\n{\"cards\":[{\"front\":\"Q?\",\"back\":\"A\"}]}\n```"
	entries, _ := Parse(raw)
	require.Len(t, entries, 1)
}

func TestParseFlashcardsKey(t *testing.T) {
	entries, strat := Parse(`{"flashcards":[{"question":"Old key?","answer":"Still works"}]}`)

	require.Equal(t, "direct", strat)
	require.Len(t, entries, 1)
	assert.Equal(t, "Old key?", entries[0].front())
	assert.Equal(t, "Still works", entries[0].back())
}

func TestParseTopLevelArray(t *testing.T) {
	entries, strat := Parse(`[{"front":"Q?","back":"A"},{"front":"Q2?","back":"A2"}]`)
	require.Equal(t, "direct", strat)
	require.Len(t, entries, 2)
}

// A response cut off mid-object must still yield every complete card that
// precedes the truncation point.
func TestParseTruncatedRecoversCompleteCards(t *testing.T) {
	raw := `{"cards":[{"front":"Q1?","back":"A1","chunk_id":"c1"},{"front":"Q2?","back":"A2","chunk_id":"c1"},{"fr`
	entries, strat := Parse(raw)

	require.Equal(t, "salvage", strat)
	require.Len(t, entries, 2)
	assert.Equal(t, "Q1?", entries[0].front())
	assert.Equal(t, "Q2?", entries[1].front())
	assert.Equal(t, "c1", entries[1].ChunkID)
}

func TestParseBareKeysRepaired(t *testing.T) {
	raw := `{cards: [{front: "Q?", back: "A", difficulty: "easy"}]}`
	entries, strat := Parse(raw)

	require.Equal(t, "repair", strat)
	require.Len(t, entries, 1)
	assert.Equal(t, "easy", entries[0].Difficulty)
}

func TestParseSkipsIncompleteEntries(t *testing.T) {
	raw := `{"cards":[{"front":"Only a front"},{"front":"Q?","back":"A"},{"back":"only a back"}]}`
	entries, strat := Parse(raw)

	require.Equal(t, "direct", strat)
	// Direct parse keeps all payload entries; the generator filters via
	// front()/back() emptiness and validation.
	require.Len(t, entries, 3)
	assert.Empty(t, entries[0].back())
	assert.Empty(t, entries[2].front())
}

func TestParseUnrecoverable(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"The model refused to answer.",
		`{"cards": [`,
	} {
		entries, strat := Parse(raw)
		assert.Empty(t, entries, "input %q", raw)
		assert.Empty(t, strat, "input %q", raw)
	}
}

func TestValidateCard(t *testing.T) {
	tests := []struct {
		name    string
		front   string
		back    string
		wantErr bool
	}{
		{"ok", "What is polymorphism?", "Ability to take many forms.", false},
		{"front too short", "Hi?", "A perfectly fine answer.", true},
		{"back too short", "What is the answer here?", "Yes", true},
		{"back echoes front", "What is polymorphism exactly?", "polymorphism", true},
		{"front echoes back", "mitochondria", "mitochondria is the powerhouse", true},
		{"generic stem", "What is this passage about?", "It covers cell division.", true},
		// 4 CJK runes are 12 bytes; the minimum counts runes, not bytes.
		{"short multi-byte front", "細胞とは？", "The basic unit of life.", true},
		{"multi-byte front long enough", "細胞分裂はどのように進行しますか？", "Through mitosis and meiosis.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCard(tt.front, tt.back)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
