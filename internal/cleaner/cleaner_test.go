package cleaner

import (
	"strings"
	"testing"
)

func TestCleanEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t"} {
		cleaned, stats := Clean(in, DefaultOptions())
		if cleaned != in {
			t.Errorf("expected whitespace-only input returned unchanged, got %q", cleaned)
		}
		if stats.OriginalLength != 0 {
			t.Errorf("expected zero stats for empty input, got %+v", stats)
		}
	}
}

func TestCleanHyphenation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"newline break", "infor-\nmation theory", "information theory"},
		{"space break", "infor- mation theory", "information theory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, _ := Clean(tt.in, DefaultOptions())
			if cleaned != tt.want {
				t.Errorf("got %q, want %q", cleaned, tt.want)
			}
		})
	}
}

func TestCleanRedactsURLsAndEmails(t *testing.T) {
	in := "See https://example.com/page for details or mail john@example.com today."
	cleaned, stats := Clean(in, DefaultOptions())

	if strings.Contains(cleaned, "example.com/page") {
		t.Errorf("URL not redacted: %q", cleaned)
	}
	if !strings.Contains(cleaned, "[URL]") {
		t.Errorf("expected URL sentinel in %q", cleaned)
	}
	if !strings.Contains(cleaned, "[EMAIL]") {
		t.Errorf("expected email sentinel in %q", cleaned)
	}
	if stats.URLsRemoved != 1 || stats.EmailsRemoved != 1 {
		t.Errorf("expected 1 URL and 1 email counted, got %+v", stats)
	}
}

func TestCleanTogglesRespected(t *testing.T) {
	in := "Visit https://example.com now."
	cleaned, stats := Clean(in, Options{NormalizeWhitespace: true})

	if !strings.Contains(cleaned, "https://example.com") {
		t.Errorf("URL removed despite RemoveURLs=false: %q", cleaned)
	}
	if stats.URLsRemoved != 0 {
		t.Errorf("expected no URLs counted, got %d", stats.URLsRemoved)
	}
}

func TestCleanRemovesBoilerplateLines(t *testing.T) {
	in := "Introduction to compilers.\nPage 3 of 120\n42\nChapter 7\nLexing comes first."
	cleaned, stats := Clean(in, DefaultOptions())

	for _, gone := range []string{"Page 3", "Chapter 7"} {
		if strings.Contains(cleaned, gone) {
			t.Errorf("expected %q removed, got %q", gone, cleaned)
		}
	}
	if strings.Contains(cleaned, "\n42\n") {
		t.Errorf("standalone page number kept: %q", cleaned)
	}
	if stats.LinesRemoved != 3 {
		t.Errorf("expected 3 lines removed, got %d", stats.LinesRemoved)
	}
}

func TestCleanNormalizesSpecialChars(t *testing.T) {
	in := "He said “hello” — then left… it’s over"
	cleaned, stats := Clean(in, DefaultOptions())

	want := `He said "hello" - then left... it's over`
	if cleaned != want {
		t.Errorf("got %q, want %q", cleaned, want)
	}
	if stats.SpecialCharsReplaced != 5 {
		t.Errorf("expected 5 replacements counted, got %d", stats.SpecialCharsReplaced)
	}
}

func TestCleanCollapsesPunctuation(t *testing.T) {
	in := "Wait..... what?? No!!!"
	cleaned, _ := Clean(in, DefaultOptions())

	want := "Wait... what? No!"
	if cleaned != want {
		t.Errorf("got %q, want %q", cleaned, want)
	}
}

func TestCleanWhitespaceNormalization(t *testing.T) {
	in := "first   line\t here\n\n\n\n\nsecond paragraph\n\n\nthird"
	cleaned, _ := Clean(in, DefaultOptions())

	want := "first line here\n\nsecond paragraph\n\nthird"
	if cleaned != want {
		t.Errorf("got %q, want %q", cleaned, want)
	}
}

// A second pass must not further alter already-cleaned text.
func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"Some text with   spacing,\n\n\n\nparagraphs, and “quotes”…",
		"Visit https://example.com or write to a@b.org!!\n\nPage 1 of 2\nMore text here.",
		"hyphen-\nated words and trailing   whitespace   \n\nend??",
	}

	for _, in := range inputs {
		once, _ := Clean(in, DefaultOptions())
		twice, _ := Clean(once, DefaultOptions())
		if once != twice {
			t.Errorf("clean not idempotent:\nonce:  %q\ntwice: %q", once, twice)
		}
	}
}

func TestStatsReductionPercentage(t *testing.T) {
	s := Stats{OriginalLength: 200, CleanedLength: 150}
	if got := s.ReductionPercentage(); got != 25 {
		t.Errorf("expected 25%%, got %v", got)
	}
	if (Stats{}).ReductionPercentage() != 0 {
		t.Error("expected 0%% for empty stats")
	}
}
