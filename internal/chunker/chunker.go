// Package chunker splits cleaned text into bounded, optionally overlapping
// windows for LLM prompting.
package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Method selects the splitting strategy.
type Method string

const (
	MethodParagraph Method = "paragraph"
	MethodSentence  Method = "sentence"
	MethodWord      Method = "word"
)

// TokenCounter estimates tokens for sizing decisions. Counts are advisory.
type TokenCounter func(text string) int

// Options controls how text is chunked.
type Options struct {
	MaxWords     int
	MinWords     int
	OverlapWords int
	Method       Method
	Tokens       TokenCounter // nil falls back to the 0.75*words estimate
}

// Chunk represents a contiguous slice of a source's cleaned text.
type Chunk struct {
	ID         uuid.UUID
	SourceID   uuid.UUID
	Index      int
	Text       string
	WordCount  int
	TokenCount int
	// StartChar/EndChar are best-effort positional metadata; overlap can
	// defeat the prefix search, in which case a monotonic cursor is used.
	StartChar int
	EndChar   int
}

const fallbackTokenRatio = 0.75 // words-to-tokens estimate, keep in sync with size tuning elsewhere

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?]+\s+`)
)

// Split chunks text for one source. It never fails: empty or whitespace-only
// input yields no chunks, and oversized paragraphs degrade to sentence and
// word splitting instead of being truncated.
func Split(text string, sourceID uuid.UUID, opts Options) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = 200
	}
	if opts.OverlapWords < 0 {
		opts.OverlapWords = 0
	}

	var raw []string
	switch opts.Method {
	case MethodSentence:
		raw = splitBySentences(text, opts.MaxWords)
	case MethodWord:
		raw = splitByWords(text, opts.MaxWords)
	default:
		raw = splitByParagraphs(text, opts.MaxWords)
	}

	windows := addOverlap(raw, opts.OverlapWords)

	// Undersized chunks are dropped, not merged. Content at document
	// boundaries can be lost; CHUNK_MIN_WORDS=0 disables the filter.
	var chunks []Chunk
	cursor := 0
	for _, w := range windows {
		body := strings.TrimSpace(w.text)
		if body == "" {
			continue
		}
		words := len(strings.Fields(body))
		if opts.MinWords > 0 && words < opts.MinWords {
			continue
		}
		start, end := locate(text, w.raw, cursor)
		cursor = end
		chunks = append(chunks, Chunk{
			ID:         uuid.New(),
			SourceID:   sourceID,
			Index:      len(chunks),
			Text:       body,
			WordCount:  words,
			TokenCount: countTokens(body, opts.Tokens),
			StartChar:  start,
			EndChar:    end,
		})
	}
	return chunks
}

func countTokens(text string, counter TokenCounter) int {
	if counter != nil {
		return counter(text)
	}
	return int(float64(len(strings.Fields(text))) * fallbackTokenRatio)
}

// splitByParagraphs greedily packs whole paragraphs up to maxWords. A single
// paragraph over the limit is handed to sentence splitting on its own.
func splitByParagraphs(text string, maxWords int) []string {
	paragraphs := paragraphBreak.Split(text, -1)

	var chunks []string
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = nil
			currentWords = 0
		}
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		words := len(strings.Fields(p))

		switch {
		case words > maxWords:
			flush()
			chunks = append(chunks, splitBySentences(p, maxWords)...)
		case currentWords+words > maxWords:
			flush()
			current = []string{p}
			currentWords = words
		default:
			current = append(current, p)
			currentWords += words
		}
	}
	flush()
	return chunks
}

// splitBySentences greedily packs sentences up to maxWords. A single sentence
// over the limit falls back to fixed word windows.
func splitBySentences(text string, maxWords int) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current []string
	currentWords := 0

	for _, s := range sentences {
		words := len(strings.Fields(s))
		if words > maxWords {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, " "))
				current = nil
				currentWords = 0
			}
			chunks = append(chunks, splitByWords(s, maxWords)...)
			continue
		}
		if len(current) > 0 && currentWords+words > maxWords {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{s}
			currentWords = words
		} else {
			current = append(current, s)
			currentWords += words
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// splitSentences breaks text at .!? runs followed by whitespace and a capital
// letter, optionally behind an opening quote. The capital check filters out
// boundaries like version numbers or lowercase continuations.
func splitSentences(text string) []string {
	locs := sentenceEnd.FindAllStringIndex(text, -1)

	var out []string
	last := 0
	for _, loc := range locs {
		if !startsSentence(text[loc[1]:]) {
			continue
		}
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

func startsSentence(rest string) bool {
	runes := []rune(rest)
	if len(runes) == 0 {
		return false
	}
	if runes[0] == '"' || runes[0] == '\'' {
		return len(runes) > 1 && unicode.IsUpper(runes[1])
	}
	return unicode.IsUpper(runes[0])
}

// splitByWords is the no-boundary-awareness fallback: fixed-size windows.
func splitByWords(text string, maxWords int) []string {
	words := strings.Fields(text)
	var chunks []string
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// window pairs a chunk's final text with its pre-overlap form, which is what
// span location searches for.
type window struct {
	text string
	raw  string
}

// addOverlap prepends the last overlapWords words of each preceding chunk to
// the next one. The first chunk is never prefixed; a short predecessor
// contributes all of its words.
func addOverlap(raw []string, overlapWords int) []window {
	windows := make([]window, len(raw))
	for i, text := range raw {
		windows[i] = window{text: text, raw: text}
	}
	if overlapWords <= 0 || len(raw) <= 1 {
		return windows
	}

	for i := 1; i < len(raw); i++ {
		prevWords := strings.Fields(raw[i-1])
		n := overlapWords
		if n > len(prevWords) {
			n = len(prevWords)
		}
		tail := strings.Join(prevWords[len(prevWords)-n:], " ")
		windows[i].text = tail + " " + raw[i]
	}
	return windows
}

// locate finds the pre-overlap chunk text in the cleaned source via a prefix
// search from the cursor, falling back to the cursor itself when overlap or
// join normalization has changed the text.
func locate(text, raw string, cursor int) (int, int) {
	prefix := raw
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	start := cursor
	if idx := strings.Index(text[min(cursor, len(text)):], prefix); idx >= 0 {
		start = cursor + idx
	}
	end := start + len(raw)
	if end > len(text) {
		end = len(text)
	}
	if end <= start {
		end = start + 1
	}
	return start, end
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
