package whisper

import (
	"context"
	"log/slog"
)

// MockTranscriber is the degraded fallback. It never blocks and never
// errors; callers get an empty result and can tell the user that speech
// recognition is unavailable.
type MockTranscriber struct{}

func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// Transcribe returns an empty result.
func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	slog.Warn("mock transcriber used, speech recognition degraded", "audio", audioPath)
	return &TranscriptionResult{
		Segments: []TranscriptionSegment{},
		Language: "unknown",
	}, nil
}

// HealthCheck always reports unhealthy so readiness shows degraded mode.
func (m *MockTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return false, nil
}

func (m *MockTranscriber) Name() string {
	return "mock-degraded"
}
