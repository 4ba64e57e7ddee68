// Package caption repacks timestamped text into fixed-width, multi-line
// display segments and renders them as styled subtitle tracks.
//
// Two segmentation modes are provided:
//   - Word mode packs word/punctuation tokens greedily into lines.
//   - Sentence mode re-splits sentence-level tokens and redistributes their
//     time span across the resulting segments by character count.
//
// Segmentation functions are pure: they hold no state between calls and are
// safe for concurrent use.
package caption

import (
	"errors"
	"fmt"
)

const (
	// GuardGap is the gap, in seconds, kept between consecutive segments.
	GuardGap = 0.05

	// MinChunkDuration is the floor applied to every sentence-mode chunk.
	MinChunkDuration = 0.5

	// MaxLines and MaxLineLength bound Options; larger values are rejected.
	MaxLines      = 16
	MaxLineLength = 1000
)

var (
	// ErrInvalidOptions is returned when MaxLength or Lines is not positive.
	ErrInvalidOptions = errors.New("caption: invalid segmentation options")

	// ErrInvalidToken is returned for a token whose End precedes its Start.
	ErrInvalidToken = errors.New("caption: token end precedes start")

	// ErrInvalidVTT is returned for cue timings that cannot be parsed.
	ErrInvalidVTT = errors.New("caption: invalid vtt")
)

// Token is one timestamped unit of input text: a word, a punctuation mark or
// a whole sentence depending on the producer.
type Token struct {
	Text  string  `json:"text"`
	Start float64 `json:"start_ts"`
	End   float64 `json:"end_ts"`
}

// Segment is one timed block of display text. Text always holds exactly the
// configured number of lines; unused lines are empty strings.
type Segment struct {
	Text  []string `json:"text"`
	Start float64  `json:"start_ts"`
	End   float64  `json:"end_ts"`
}

// Options configures segmentation.
type Options struct {
	// MaxLength is the maximum number of characters (code points) per line.
	MaxLength int `json:"max_length" yaml:"max_length" toml:"max_length"`

	// Lines is the number of lines per segment.
	Lines int `json:"lines" yaml:"lines" toml:"lines"`
}

// Validate rejects non-positive limits and limits above MaxLineLength or
// MaxLines. Values are never clamped.
func (o Options) Validate() error {
	if o.MaxLength <= 0 {
		return fmt.Errorf("%w: max_length must be positive, got %d", ErrInvalidOptions, o.MaxLength)
	}
	if o.MaxLength > MaxLineLength {
		return fmt.Errorf("%w: max_length must be at most %d, got %d", ErrInvalidOptions, MaxLineLength, o.MaxLength)
	}
	if o.Lines <= 0 {
		return fmt.Errorf("%w: lines must be positive, got %d", ErrInvalidOptions, o.Lines)
	}
	if o.Lines > MaxLines {
		return fmt.Errorf("%w: lines must be at most %d, got %d", ErrInvalidOptions, MaxLines, o.Lines)
	}
	return nil
}

// Mode selects the segmentation algorithm.
type Mode string

const (
	ModeWord     Mode = "word"
	ModeSentence Mode = "sentence"
)

// ParseMode maps a user supplied mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeWord, ModeSentence:
		return Mode(s), nil
	case "":
		return ModeWord, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q (must be word or sentence)", ErrInvalidOptions, s)
	}
}

// Lines joins the non-empty lines of a segment with sep.
func (s Segment) Lines(sep string) string {
	out := ""
	for _, line := range s.Text {
		if line == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += line
	}
	return out
}
