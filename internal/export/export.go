// Package export serializes decks for downstream tools: indented JSON in
// the card schema, and tab-separated front/back pairs for Anki's plain-text
// importer.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"cardsmith/internal/deck"
)

// WriteDeckJSON writes the deck in the card output schema.
func WriteDeckJSON(w io.Writer, d *deck.Deck) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteAnkiTSV writes one card per line as front<TAB>back<TAB>tags. Tabs and
// newlines inside fields are flattened to spaces; Anki treats them as column
// and record separators.
func WriteAnkiTSV(w io.Writer, d *deck.Deck) error {
	for _, c := range d.Cards {
		line := fmt.Sprintf("%s\t%s\t%s\n",
			sanitizeField(c.Front),
			sanitizeField(c.Back),
			strings.Join(c.Tags, " "))
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
