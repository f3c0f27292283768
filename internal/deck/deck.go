// Package deck holds the flashcard domain types and the wire schema consumed
// by downstream exporters.
package deck

import (
	"strings"

	"github.com/google/uuid"
)

// Difficulty is an advisory tag on a card.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps free-form model output onto a known level,
// defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// Card is a single front/back flashcard.
type Card struct {
	ID         uuid.UUID  `json:"id,omitempty"`
	Front      string     `json:"front"`
	Back       string     `json:"back"`
	Tags       []string   `json:"tags,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	ChunkID    uuid.UUID  `json:"chunk_id,omitempty"`
	SourceID   uuid.UUID  `json:"source_id,omitempty"`
}

// NormalizeTags deduplicates and case-normalizes the card's tags in place,
// preserving first-seen order.
func (c *Card) NormalizeTags() {
	if len(c.Tags) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(c.Tags))
	out := c.Tags[:0]
	for _, tag := range c.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	c.Tags = out
}

// Deck is an ordered collection of cards from one pipeline run.
type Deck struct {
	ID        uuid.UUID   `json:"id,omitempty"`
	Name      string      `json:"name"`
	Cards     []Card      `json:"cards"`
	SourceIDs []uuid.UUID `json:"source_ids,omitempty"`
}

// New creates an empty named deck.
func New(name string) *Deck {
	return &Deck{ID: uuid.New(), Name: name}
}

// Add appends a card and records its source identifier.
func (d *Deck) Add(card Card) {
	d.Cards = append(d.Cards, card)
	if card.SourceID == uuid.Nil {
		return
	}
	for _, id := range d.SourceIDs {
		if id == card.SourceID {
			return
		}
	}
	d.SourceIDs = append(d.SourceIDs, card.SourceID)
}

// AddAll appends cards in order.
func (d *Deck) AddAll(cards []Card) {
	for _, c := range cards {
		d.Add(c)
	}
}

// RemoveDuplicates drops cards whose normalized (front, back) pair was
// already seen, keeping the first occurrence. Returns the number removed.
func (d *Deck) RemoveDuplicates() int {
	type key struct{ front, back string }
	seen := make(map[key]struct{}, len(d.Cards))
	unique := d.Cards[:0:0]
	for _, c := range d.Cards {
		k := key{
			front: strings.ToLower(strings.TrimSpace(c.Front)),
			back:  strings.ToLower(strings.TrimSpace(c.Back)),
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, c)
	}
	removed := len(d.Cards) - len(unique)
	d.Cards = unique
	return removed
}
