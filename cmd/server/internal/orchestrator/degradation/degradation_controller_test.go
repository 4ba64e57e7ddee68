package degradation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/health"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/whisper"
)

type namedTranscriber struct {
	name    string
	mu      sync.Mutex
	healthy bool
}

func (m *namedTranscriber) Transcribe(ctx context.Context, audioPath string, options *whisper.TranscribeOptions) (*whisper.TranscriptionResult, error) {
	return &whisper.TranscriptionResult{Text: "transcribed by " + m.name, Segments: []whisper.TranscriptionSegment{}}, nil
}

func (m *namedTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy, nil
}

func (m *namedTranscriber) Name() string { return m.name }

func (m *namedTranscriber) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

func TestDegradationController(t *testing.T) {
	t.Run("initial state uses primary", func(t *testing.T) {
		primary := &namedTranscriber{name: "primary", healthy: true}
		controller := NewDegradationController(primary, whisper.NewMockTranscriber(), health.NewHealthChecker(primary, time.Hour, 3))

		if got := controller.GetTranscriber().Name(); got != "primary" {
			t.Errorf("transcriber = %q, want primary", got)
		}
		if controller.IsDegraded() {
			t.Error("initial state should not be degraded")
		}
	})

	t.Run("degrades and recovers", func(t *testing.T) {
		primary := &namedTranscriber{name: "primary"}
		hc := health.NewHealthChecker(primary, time.Hour, 1)
		controller := NewDegradationController(primary, whisper.NewMockTranscriber(), hc)
		ctx := context.Background()

		hc.CheckNow(ctx)
		if got := controller.GetTranscriber().Name(); got != "mock-degraded" {
			t.Errorf("transcriber = %q, want mock-degraded", got)
		}
		status := controller.Status()
		if !status.Degraded || status.Active != "mock-degraded" || status.Primary.IsHealthy {
			t.Errorf("unexpected status: %+v", status)
		}

		result, err := controller.Transcribe(ctx, "a.wav", nil)
		if err != nil || len(result.Segments) != 0 {
			t.Errorf("degraded transcribe should return empty result, got %+v %v", result, err)
		}

		primary.SetHealthy(true)
		hc.CheckNow(ctx)
		result, err = controller.Transcribe(ctx, "a.wav", nil)
		if err != nil || result.Text != "transcribed by primary" {
			t.Errorf("expected primary after recovery, got %+v %v", result, err)
		}
		if controller.IsDegraded() {
			t.Error("should have recovered")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		primary := &namedTranscriber{name: "primary", healthy: true}
		hc := health.NewHealthChecker(primary, time.Hour, 1)
		controller := NewDegradationController(primary, whisper.NewMockTranscriber(), hc)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%5 == 0 {
					primary.SetHealthy(i%10 == 0)
					hc.CheckNow(context.Background())
				}
				_ = controller.GetTranscriber()
				_ = controller.IsDegraded()
			}(i)
		}
		wg.Wait()
	})
}
