// Package whisper provides an abstraction layer for speech-to-text engines.
// Implementations cover the go-whisper HTTP service, a local whisper.cpp CLI
// run through the dependency executor, and a degraded mock.
package whisper

import (
	"context"
	"strings"
	"time"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
)

// TranscriptionWord is one recognised word with timing in seconds.
type TranscriptionWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptionSegment is a continuous speech interval.
type TranscriptionSegment struct {
	ID    int                 `json:"id"`
	Start float64             `json:"start"`
	End   float64             `json:"end"`
	Text  string              `json:"text"`
	Words []TranscriptionWord `json:"words,omitempty"`
}

// TranscriptionResult is the complete result of a transcription.
type TranscriptionResult struct {
	Segments []TranscriptionSegment `json:"segments"`

	// Words holds top-level word timestamps when the engine reports them
	// separately from segments.
	Words []TranscriptionWord `json:"words,omitempty"`

	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Captions flattens the result into caption tokens, one per word. Engines
// that only report segments yield one token per segment.
func (r *TranscriptionResult) Captions() []caption.Token {
	words := r.Words
	if len(words) == 0 {
		for _, s := range r.Segments {
			words = append(words, s.Words...)
		}
	}

	tokens := make([]caption.Token, 0, len(words))
	if len(words) > 0 {
		for _, w := range words {
			if strings.TrimSpace(w.Word) == "" {
				continue
			}
			tokens = append(tokens, caption.Token{Text: w.Word, Start: w.Start, End: w.End})
		}
		return tokens
	}

	for _, s := range r.Segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		tokens = append(tokens, caption.Token{Text: s.Text, Start: s.Start, End: s.End})
	}
	return tokens
}

// WhisperTranscriber is implemented by every speech-to-text engine.
type WhisperTranscriber interface {
	// Transcribe recognises audioPath. Implementations must honour ctx and
	// return an empty, non-nil result for silence rather than an error.
	Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error)

	// HealthCheck reports whether the engine can take requests. It should
	// finish within a few seconds.
	HealthCheck(ctx context.Context) (bool, error)

	// Name identifies the implementation in logs and readiness output
	// (e.g. "go-whisper", "local-whisper", "mock-degraded").
	Name() string
}

// TranscribeOptions are optional per-request parameters.
type TranscribeOptions struct {
	// Model overrides the engine's default model (e.g. "ggml-base").
	Model string

	// Language is an ISO 639-1 code; empty means auto-detect.
	Language string

	// Prompt primes the decoder with domain vocabulary.
	Prompt string

	// Temperature is the sampling temperature; 0 reduces repetitions.
	Temperature float64

	// BeamSize is the beam search width (1..10, default 5).
	BeamSize int

	// Timeout bounds a single transcription.
	Timeout time.Duration
}

func (o *TranscribeOptions) beamSize() int {
	if o == nil || o.BeamSize <= 0 {
		return 5
	}
	return o.BeamSize
}
