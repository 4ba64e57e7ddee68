// Package degradation switches speech-to-text between a primary engine and
// a fallback based on the primary's health.
package degradation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/health"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/whisper"
)

// Status is the readiness view of the controller.
type Status struct {
	Active   string               `json:"active"`
	Degraded bool                 `json:"degraded"`
	Primary  health.ServiceStatus `json:"primary"`
}

// DegradationController hands out the primary transcriber while its health
// checker reports healthy and the fallback (normally the mock) otherwise.
type DegradationController struct {
	primary  whisper.WhisperTranscriber
	fallback whisper.WhisperTranscriber
	checker  *health.HealthChecker

	mu       sync.Mutex
	current  whisper.WhisperTranscriber
	degraded bool
}

// NewDegradationController starts on the primary transcriber.
func NewDegradationController(primary, fallback whisper.WhisperTranscriber, hc *health.HealthChecker) *DegradationController {
	return &DegradationController{
		primary:  primary,
		fallback: fallback,
		checker:  hc,
		current:  primary,
	}
}

// GetTranscriber returns the active transcriber, switching first if the
// primary's health changed since the last call.
func (dc *DegradationController) GetTranscriber() whisper.WhisperTranscriber {
	healthy := dc.checker.GetStatus().IsHealthy

	dc.mu.Lock()
	defer dc.mu.Unlock()

	switch {
	case !healthy && !dc.degraded:
		slog.Warn("degrading transcriber", "from", dc.primary.Name(), "to", dc.fallback.Name())
		dc.current = dc.fallback
		dc.degraded = true
	case healthy && dc.degraded:
		slog.Info("recovering transcriber", "to", dc.primary.Name())
		dc.current = dc.primary
		dc.degraded = false
	}
	return dc.current
}

// Transcribe runs audioPath through the active transcriber.
func (dc *DegradationController) Transcribe(ctx context.Context, audioPath string, options *whisper.TranscribeOptions) (*whisper.TranscriptionResult, error) {
	return dc.GetTranscriber().Transcribe(ctx, audioPath, options)
}

// IsDegraded reports whether the fallback is active.
func (dc *DegradationController) IsDegraded() bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.degraded
}

// Status returns the current selection and the primary's health.
func (dc *DegradationController) Status() Status {
	active := dc.GetTranscriber()
	return Status{
		Active:   active.Name(),
		Degraded: dc.IsDegraded(),
		Primary:  dc.checker.GetStatus(),
	}
}
