package summarize

import (
	"context"
	"strings"
)

const (
	// directLimit is the most summaries merged in a single prompt.
	directLimit = 20
	// groupSize is the hierarchical grouping width above directLimit.
	groupSize = 8
	// maxIntermediates bounds how many intermediates may reach the final
	// direct combine; more than this triggers another merge pass.
	maxIntermediates = 5
	// minCombinedLen guards against degenerate model output; anything
	// shorter falls back to mechanical concatenation.
	minCombinedLen = 30

	emptySentinel = "No summaries to combine."
)

// Combine merges chunk summaries into one document summary. Empty entries
// are discarded first. Zero summaries yield a fixed sentinel, one is
// returned verbatim, a small set is merged in a single prompt, and a large
// set goes through hierarchical combination. Combine never fails: when the
// model is unavailable or returns garbage the summaries are concatenated
// mechanically instead.
func (s *Summarizer) Combine(ctx context.Context, summaries []string) string {
	nonEmpty := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		if strings.TrimSpace(sum) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(sum))
		}
	}

	switch {
	case len(nonEmpty) == 0:
		return emptySentinel
	case len(nonEmpty) == 1:
		return nonEmpty[0]
	case len(nonEmpty) <= directLimit:
		return s.combineDirect(ctx, nonEmpty)
	default:
		return s.combineHierarchical(ctx, nonEmpty)
	}
}

// combineDirect merges summaries with a single model call.
func (s *Summarizer) combineDirect(ctx context.Context, summaries []string) string {
	joined := strings.Join(summaries, "\n\n")
	combined, err := s.Summarize(ctx, joined)
	if err != nil || len(combined) < minCombinedLen {
		s.log.Warn("direct combine fell back to concatenation", "summaries", len(summaries), "error", err)
		return fallbackCombine(summaries)
	}
	return combined
}

// combineHierarchical merges summaries in groups, repeating the grouping
// pass until few enough intermediates remain for a final direct combine.
func (s *Summarizer) combineHierarchical(ctx context.Context, summaries []string) string {
	level := summaries
	for len(level) > maxIntermediates {
		var next []string
		for start := 0; start < len(level); start += groupSize {
			end := min(start+groupSize, len(level))
			next = append(next, s.combineDirect(ctx, level[start:end]))
		}
		s.log.Info("hierarchical merge pass", "in", len(level), "out", len(next))
		level = next
	}
	if len(level) == 1 {
		return level[0]
	}
	return s.combineDirect(ctx, level)
}

// fallbackCombine concatenates summaries and drops sentences already covered
// by an earlier one (case-insensitive substring match).
func fallbackCombine(summaries []string) string {
	joined := strings.Join(summaries, " ")
	var kept []string
	var keptLower []string
	for _, sentence := range splitSentences(joined) {
		lower := strings.ToLower(sentence)
		dup := false
		for _, prev := range keptLower {
			if strings.Contains(prev, lower) || strings.Contains(lower, prev) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, sentence)
		keptLower = append(keptLower, lower)
	}
	return strings.Join(kept, " ")
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
