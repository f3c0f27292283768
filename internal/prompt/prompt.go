// Package prompt loads and renders the instruction templates sent to the
// language model. Templates are plain markdown files with {placeholder}
// markers; a missing file falls back to the compiled-in default so the
// pipeline works without a prompt directory.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	qaFile      = "qa_generation.md"
	summaryFile = "summary_generation.md"
)

const defaultQATemplate = `You are a flashcard author. Read the study material below and write up to {max_cards} question/answer flashcards covering its key facts and concepts.

Rules:
- Respond with JSON only, no prose before or after.
- Use this exact shape: {"cards": [{"front": "...", "back": "...", "difficulty": "easy|medium|hard", "tags": ["..."], "chunk_id": "{chunk_id}"}]}
- Questions must be answerable from the material alone.
- Never copy a sentence verbatim as a question.

Material:
{text}`

const defaultSummaryTemplate = `Summarize the following study material in roughly {target_words} words. Keep concrete facts, definitions, and named entities; drop filler. Respond with the summary text only.

Material:
{text}`

// Library holds the loaded templates.
type Library struct {
	qa      string
	summary string
}

// Load reads templates from dir, keeping built-in defaults for any file that
// does not exist. dir may be empty to use defaults only.
func Load(dir string) (*Library, error) {
	lib := &Library{qa: defaultQATemplate, summary: defaultSummaryTemplate}
	if dir == "" {
		return lib, nil
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{qaFile, &lib.qa},
		{summaryFile, &lib.summary},
	} {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", f.name, err)
		}
		if s := strings.TrimSpace(string(data)); s != "" {
			*f.dst = s
		}
	}
	return lib, nil
}

// QAPrompt renders the flashcard-generation prompt for one chunk.
func (l *Library) QAPrompt(text, chunkID string, maxCards int) string {
	return strings.NewReplacer(
		"{text}", text,
		"{chunk_id}", chunkID,
		"{max_cards}", fmt.Sprintf("%d", maxCards),
	).Replace(l.qa)
}

// SummaryPrompt renders the summarization prompt for one chunk or for a
// block of intermediate summaries.
func (l *Library) SummaryPrompt(text string, targetWords int) string {
	return strings.NewReplacer(
		"{text}", text,
		"{target_words}", fmt.Sprintf("%d", targetWords),
	).Replace(l.summary)
}
