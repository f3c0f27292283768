// Package cleaner normalizes raw extracted text before chunking.
// Cleaning is a pure function of the input and options; it produces a new
// string and never mutates source content.
package cleaner

import (
	"regexp"
	"strings"
)

// Options toggles the configurable cleaning steps.
type Options struct {
	RemoveURLs          bool
	RemoveEmails        bool
	NormalizeWhitespace bool
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{RemoveURLs: true, RemoveEmails: true, NormalizeWhitespace: true}
}

// Stats reports what cleaning changed, for observability only.
type Stats struct {
	OriginalLength       int
	CleanedLength        int
	LinesRemoved         int
	URLsRemoved          int
	EmailsRemoved        int
	SpecialCharsReplaced int
}

// ReductionPercentage returns how much shorter the cleaned text is.
func (s Stats) ReductionPercentage() float64 {
	if s.OriginalLength == 0 {
		return 0
	}
	return float64(s.OriginalLength-s.CleanedLength) / float64(s.OriginalLength) * 100
}

var (
	urlPattern   = regexp.MustCompile(`http[s]?://[a-zA-Z0-9$\-_@.&+!*(),%]+`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Broken hyphenation from line-wrapped source formats.
	hyphenNewline = regexp.MustCompile(`(\w+)-\s*\n\s*(\w+)`)
	hyphenSpace   = regexp.MustCompile(`(\w+)-\s+(\w+)`)

	// Boilerplate lines (page headers/footers, chapter markers).
	artifactPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Page \d+ of \d+`),
		regexp.MustCompile(`(?i)^Page \d+`),
		regexp.MustCompile(`^\d+$`),
		regexp.MustCompile(`(?i)^Chapter \d+`),
	}

	dotRun         = regexp.MustCompile(`\.{3,}`)
	exclamationRun = regexp.MustCompile(`!{2,}`)
	questionRun    = regexp.MustCompile(`\?{2,}`)

	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// specialCharReplacements maps typographic characters to ASCII equivalents.
var specialCharReplacements = []struct {
	from string
	to   string
}{
	{"“", `"`}, // left double quote
	{"”", `"`}, // right double quote
	{"‘", "'"}, // left single quote
	{"’", "'"}, // right single quote
	{"–", "-"}, // en dash
	{"—", "-"}, // em dash
	{"…", "..."},
}

// Clean normalizes text in a fixed step order; later steps assume earlier
// ones ran. It is idempotent for whitespace and punctuation normalization.
func Clean(text string, opts Options) (string, Stats) {
	if strings.TrimSpace(text) == "" {
		return text, Stats{}
	}

	stats := Stats{OriginalLength: len(text)}
	cleaned := fixHyphenation(text)

	if opts.RemoveURLs {
		cleaned, stats.URLsRemoved = redactURLs(cleaned)
	}
	if opts.RemoveEmails {
		cleaned, stats.EmailsRemoved = redactEmails(cleaned)
	}

	cleaned, stats.LinesRemoved = removeArtifactLines(cleaned)
	cleaned, stats.SpecialCharsReplaced = normalizeSpecialChars(cleaned)
	cleaned = collapsePunctuation(cleaned)

	if opts.NormalizeWhitespace {
		cleaned = normalizeWhitespace(cleaned)
	}

	cleaned = strings.TrimSpace(cleaned)
	stats.CleanedLength = len(cleaned)
	return cleaned, stats
}

func fixHyphenation(text string) string {
	text = hyphenNewline.ReplaceAllString(text, "${1}${2}")
	return hyphenSpace.ReplaceAllString(text, "${1}${2}")
}

func redactURLs(text string) (string, int) {
	count := len(urlPattern.FindAllString(text, -1))
	return urlPattern.ReplaceAllString(text, " [URL] "), count
}

func redactEmails(text string) (string, int) {
	count := len(emailPattern.FindAllString(text, -1))
	return emailPattern.ReplaceAllString(text, " [EMAIL] "), count
}

func removeArtifactLines(text string) (string, int) {
	lines := strings.Split(text, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && isArtifact(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), len(lines) - len(kept)
}

func isArtifact(line string) bool {
	for _, p := range artifactPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func normalizeSpecialChars(text string) (string, int) {
	replaced := 0
	for _, r := range specialCharReplacements {
		replaced += strings.Count(text, r.from)
		text = strings.ReplaceAll(text, r.from, r.to)
	}
	return text, replaced
}

func collapsePunctuation(text string) string {
	text = dotRun.ReplaceAllString(text, "...")
	text = exclamationRun.ReplaceAllString(text, "!")
	return questionRun.ReplaceAllString(text, "?")
}

// normalizeWhitespace collapses space runs to single spaces and blank-line
// runs to exactly one blank line, preserving single paragraph breaks.
func normalizeWhitespace(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = newlineRun.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	prevEmpty := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
			prevEmpty = false
		} else if !prevEmpty {
			out = append(out, "")
			prevEmpty = true
		}
	}
	return strings.Join(out, "\n")
}
