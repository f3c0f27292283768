package cardgen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	minFrontLen = 10
	minBackLen  = 5
)

// genericStems are question openers that signal the model asked about "this"
// instead of the material itself. Such cards are useless out of context.
var genericStems = []string{
	"what is this",
	"what does this",
	"explain this",
	"describe this",
	"summarize this",
	"what is the text",
	"what is the passage",
}

// validateCard rejects cards that are too short, echo each other, or ask a
// context-free question. front and back are already trimmed. Lengths are
// counted in runes so multi-byte scripts are not over-counted.
func validateCard(front, back string) error {
	if n := utf8.RuneCountInString(front); n < minFrontLen {
		return fmt.Errorf("front too short (%d chars)", n)
	}
	if n := utf8.RuneCountInString(back); n < minBackLen {
		return fmt.Errorf("back too short (%d chars)", n)
	}

	lf := strings.ToLower(front)
	lb := strings.ToLower(back)
	if strings.Contains(lf, lb) || strings.Contains(lb, lf) {
		return fmt.Errorf("front and back echo each other")
	}
	for _, stem := range genericStems {
		if strings.HasPrefix(lf, stem) {
			return fmt.Errorf("generic question stem %q", stem)
		}
	}
	return nil
}
