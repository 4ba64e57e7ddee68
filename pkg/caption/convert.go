package caption

import (
	"fmt"
	"io"
	"strings"
)

// Language hints accepted by ConvertVTT.
const (
	HintAuto = "auto"
	HintEN   = "en"
	HintCJK  = "cjk"
)

// ConvertOptions controls VTT to ASS conversion.
type ConvertOptions struct {
	LanguageHint string
	Options
	Style Style
}

// DefaultConvertOptions mirrors the defaults used by the HTTP API.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		LanguageHint: HintAuto,
		Options:      Options{MaxLength: 22, Lines: 2},
		Style:        DefaultStyle(),
	}
}

// ConversionResult summarizes a conversion.
type ConversionResult struct {
	Language string
	Cues     int
	Segments []Segment
}

// DetectLanguage picks "cjk" when any of the first three tokens contains
// ideographs or kana, "en" otherwise.
func DetectLanguage(tokens []Token) string {
	var sample strings.Builder
	for i := 0; i < len(tokens) && i < 3; i++ {
		sample.WriteString(tokens[i].Text)
	}
	if looksCJK(sample.String()) {
		return HintCJK
	}
	return HintEN
}

// ConvertVTT parses a WebVTT document, re-segments it in sentence mode and
// writes the styled ASS track to w.
//
// Both language branches use sentence segmentation since VTT cues already
// carry sentence-level timing; the hint is reported for logging and callers
// that tune MaxLength per script.
func ConvertVTT(vtt string, opts ConvertOptions, w io.Writer) (*ConversionResult, error) {
	tokens, err := ParseVTT(vtt)
	if err != nil {
		return nil, fmt.Errorf("parse vtt: %w", err)
	}

	lang := opts.LanguageHint
	switch lang {
	case "", HintAuto:
		lang = DetectLanguage(tokens)
	case HintEN, HintCJK:
	default:
		return nil, fmt.Errorf("%w: unknown language hint %q", ErrInvalidOptions, opts.LanguageHint)
	}

	segments, err := SegmentSentences(tokens, opts.Options)
	if err != nil {
		return nil, err
	}
	if err := RenderASS(w, segments, opts.Style); err != nil {
		return nil, fmt.Errorf("render ass: %w", err)
	}
	return &ConversionResult{Language: lang, Cues: len(tokens), Segments: segments}, nil
}
