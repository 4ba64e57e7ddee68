package caption

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SegmentTokens dispatches to the segmenter selected by mode.
func SegmentTokens(tokens []Token, mode Mode, opts Options) ([]Segment, error) {
	switch mode {
	case ModeWord:
		return SegmentWords(tokens, opts)
	case ModeSentence:
		return SegmentSentences(tokens, opts)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, mode)
	}
}

// SegmentWords packs word-level tokens greedily into opts.Lines lines of at
// most opts.MaxLength characters.
//
// Punctuation tokens are glued to the current line without a separating
// space and never move the cursor. Punctuation that arrives before any word
// has been placed is dropped. A word that does not fit advances the cursor
// even when the current line is empty, so an oversized word lands on the
// next line; it is never split.
//
// A full segment ends at the end of the last token placed in it; the next
// segment starts GuardGap after the start of the token that overflowed.
func SegmentWords(tokens []Token, opts Options) ([]Segment, error) {
	if err := validateInput(tokens, opts); err != nil {
		return nil, err
	}
	segments := []Segment{}
	if len(tokens) == 0 {
		return segments, nil
	}

	lines := make([]string, opts.Lines)
	cursor := 0
	start := tokens[0].Start
	end := tokens[0].End

	for _, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		if text == "" {
			continue
		}

		if IsPunctuation(text) {
			if lines[cursor] != "" {
				lines[cursor] += text
				end = tok.End
			}
			continue
		}

		need := runeLen(text)
		if lines[cursor] != "" {
			need += runeLen(lines[cursor]) + 1
		}
		if need > opts.MaxLength {
			cursor++
		}

		if cursor >= opts.Lines {
			// an oversized word on an empty single-line segment starts fresh
			// without emitting a blank segment
			if hasContent(lines) {
				segments = append(segments, Segment{Text: lines, Start: start, End: end})
				lines = make([]string, opts.Lines)
				start = tok.Start + GuardGap
			}
			cursor = 0
		}

		if lines[cursor] != "" {
			lines[cursor] += " "
		}
		lines[cursor] += text
		end = tok.End
	}

	if hasContent(lines) {
		segments = append(segments, Segment{Text: lines, Start: start, End: end})
	}

	correctOverlaps(segments)
	return segments, nil
}

// SegmentSentences re-splits sentence-level tokens into display segments and
// spreads each token's time span over them in proportion to character count.
//
// Each chunk gets at least MinChunkDuration seconds. The floor is not
// rebalanced, so a token with many short chunks can run past its own end;
// overlap correction then trims the preceding segment's end.
func SegmentSentences(tokens []Token, opts Options) ([]Segment, error) {
	if err := validateInput(tokens, opts); err != nil {
		return nil, err
	}
	segments := []Segment{}
	for _, tok := range tokens {
		segments = append(segments, splitSentence(tok, opts)...)
	}
	correctOverlaps(segments)
	return segments, nil
}

// splitSentence produces the chunks for a single token, before cross-token
// overlap correction.
func splitSentence(tok Token, opts Options) []Segment {
	text := strings.TrimSpace(tok.Text)
	var parts []string
	if ContainsCJK(text) {
		parts = splitRunes(text, opts.MaxLength)
	} else {
		parts = splitWords(text, opts.MaxLength)
	}
	if len(parts) == 0 {
		return nil
	}

	var groups [][]string
	for rest := parts; len(rest) > 0; {
		n := min(opts.Lines, len(rest))
		groups = append(groups, rest[:n])
		rest = rest[n:]
	}

	total := 0
	for _, g := range groups {
		total += groupChars(g)
	}

	duration := tok.End - tok.Start
	clock := tok.Start
	out := make([]Segment, 0, len(groups))
	for _, g := range groups {
		var d float64
		if total > 0 {
			d = float64(groupChars(g)) / float64(total) * duration
			d = max(d, MinChunkDuration)
		} else {
			d = duration / float64(len(groups))
		}

		text := make([]string, opts.Lines)
		copy(text, g)
		out = append(out, Segment{Text: text, Start: clock, End: clock + d})
		clock += d
	}
	return out
}

// splitRunes packs characters into parts of at most limit runes.
func splitRunes(text string, limit int) []string {
	var parts []string
	var b strings.Builder
	n := 0
	for _, r := range text {
		if n+1 > limit && n > 0 {
			parts = append(parts, b.String())
			b.Reset()
			n = 0
		}
		b.WriteRune(r)
		n++
	}
	if n > 0 {
		parts = append(parts, b.String())
	}
	return parts
}

// splitWords packs whitespace-delimited words into parts of at most limit
// runes. A single word longer than limit becomes its own part.
func splitWords(text string, limit int) []string {
	var parts []string
	current := ""
	for _, word := range strings.Fields(text) {
		if current != "" && runeLen(current)+1+runeLen(word) > limit {
			parts = append(parts, current)
			current = word
			continue
		}
		if current != "" {
			current += " "
		}
		current += word
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

// correctOverlaps pulls each segment's end back to GuardGap before the next
// segment's start whenever the two touch or overlap.
func correctOverlaps(segments []Segment) {
	for i := 0; i+1 < len(segments); i++ {
		if segments[i].End >= segments[i+1].Start {
			segments[i].End = segments[i+1].Start - GuardGap
		}
	}
}

func validateInput(tokens []Token, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	for i, tok := range tokens {
		if tok.End < tok.Start {
			return fmt.Errorf("%w: token %d (%q) spans %.3f..%.3f", ErrInvalidToken, i, tok.Text, tok.Start, tok.End)
		}
	}
	return nil
}

func groupChars(parts []string) int {
	n := 0
	for _, p := range parts {
		n += runeLen(p)
	}
	return n
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if l != "" {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
