package cardgen

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParsedCard is one card entry as recovered from a model response, before
// validation. Both the front/back and question/answer key spellings are
// accepted.
type ParsedCard struct {
	Front      string   `json:"front"`
	Question   string   `json:"question"`
	Back       string   `json:"back"`
	Answer     string   `json:"answer"`
	Difficulty string   `json:"difficulty"`
	Tags       []string `json:"tags"`
	ChunkID    string   `json:"chunk_id"`
}

func (p ParsedCard) front() string { return firstNonEmpty(p.Front, p.Question) }
func (p ParsedCard) back() string  { return firstNonEmpty(p.Back, p.Answer) }

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return strings.TrimSpace(b)
}

type cardPayload struct {
	Cards      []ParsedCard `json:"cards"`
	Flashcards []ParsedCard `json:"flashcards"`
}

func (p *cardPayload) entries() []ParsedCard {
	if len(p.Cards) > 0 {
		return p.Cards
	}
	return p.Flashcards
}

// strategy is one rung of the recovery ladder. Strategies run in order;
// the first one that yields at least one entry wins.
type strategy struct {
	name    string
	attempt func(text string) (*cardPayload, bool)
}

var ladder = []strategy{
	{"direct", attemptDirect},
	{"salvage", attemptSalvage},
	{"repair", attemptRepair},
}

// Parse extracts card entries from a raw model response, trying
// progressively more forgiving strategies. It returns the recovered entries
// and the name of the strategy that succeeded, or an empty name when the
// response is beyond repair. Parse never returns an error: an unusable
// response means zero cards, not a failed chunk.
func Parse(raw string) ([]ParsedCard, string) {
	text := stripFences(raw)
	if strings.TrimSpace(text) == "" {
		return nil, ""
	}
	for _, s := range ladder {
		if payload, ok := s.attempt(text); ok {
			if entries := payload.entries(); len(entries) > 0 {
				return entries, s.name
			}
		}
	}
	return nil, ""
}

var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// stripFences unwraps a markdown code fence if the response is wrapped in
// one. Text outside the fence is discarded.
func stripFences(raw string) string {
	if m := fenceRE.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

// attemptDirect parses the brace-bounded region of the response as JSON.
// A top-level array of card objects is accepted too.
func attemptDirect(text string) (*cardPayload, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		var entries []ParsedCard
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return nil, false
		}
		return &cardPayload{Cards: entries}, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var payload cardPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

var objectRE = regexp.MustCompile(`\{[^{}]*\}`)

// attemptSalvage scans a truncated or malformed response for complete card
// objects and keeps every one that parses on its own. Cards cut off
// mid-object are lost; everything before the truncation point survives.
func attemptSalvage(text string) (*cardPayload, bool) {
	var entries []ParsedCard
	for _, obj := range objectRE.FindAllString(text, -1) {
		var e ParsedCard
		if err := json.Unmarshal([]byte(obj), &e); err != nil {
			continue
		}
		if e.front() == "" || e.back() == "" {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, false
	}
	return &cardPayload{Cards: entries}, true
}

var bareKeyRE = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)

// attemptRepair quotes bare object keys, a common failure of small local
// models, then retries the direct parse.
func attemptRepair(text string) (*cardPayload, bool) {
	repaired := bareKeyRE.ReplaceAllString(text, `$1"$2":`)
	if repaired == text {
		return nil, false
	}
	return attemptDirect(repaired)
}
