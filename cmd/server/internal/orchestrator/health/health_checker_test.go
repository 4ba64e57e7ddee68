package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/whisper"
)

type stubTranscriber struct {
	mu      sync.Mutex
	healthy bool
	err     error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath string, options *whisper.TranscribeOptions) (*whisper.TranscriptionResult, error) {
	return &whisper.TranscriptionResult{}, nil
}

func (s *stubTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy, s.err
}

func (s *stubTranscriber) Name() string { return "stub" }

func (s *stubTranscriber) set(healthy bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy, s.err = healthy, err
}

func TestHealthChecker(t *testing.T) {
	t.Run("initial state is healthy", func(t *testing.T) {
		checker := NewHealthChecker(&stubTranscriber{}, time.Hour, 3)
		status := checker.GetStatus()
		if !status.IsHealthy || status.ConsecutiveFails != 0 || status.Name != "stub" {
			t.Errorf("unexpected initial status: %+v", status)
		}
	})

	t.Run("threshold before marking unhealthy", func(t *testing.T) {
		stub := &stubTranscriber{}
		stub.set(false, errors.New("connection refused"))
		checker := NewHealthChecker(stub, time.Hour, 2)
		ctx := context.Background()

		if s := checker.CheckNow(ctx); !s.IsHealthy || s.ConsecutiveFails != 1 {
			t.Errorf("first failure should stay healthy: %+v", s)
		}
		s := checker.CheckNow(ctx)
		if s.IsHealthy || s.ConsecutiveFails != 2 {
			t.Errorf("second failure should mark unhealthy: %+v", s)
		}
		if s.ErrorMessage != "health check failed: connection refused" {
			t.Errorf("ErrorMessage = %q", s.ErrorMessage)
		}

		stub.set(true, nil)
		if s := checker.CheckNow(ctx); !s.IsHealthy || s.ConsecutiveFails != 0 || s.ErrorMessage != "" {
			t.Errorf("success should reset: %+v", s)
		}
	})

	t.Run("unhealthy without error", func(t *testing.T) {
		checker := NewHealthChecker(&stubTranscriber{}, time.Hour, 0)
		s := checker.CheckNow(context.Background())
		if s.IsHealthy || s.ErrorMessage != "health check failed: reported unhealthy" {
			t.Errorf("unexpected status: %+v", s)
		}
	})

	t.Run("start and stop", func(t *testing.T) {
		stub := &stubTranscriber{}
		checker := NewHealthChecker(stub, 5*time.Millisecond, 1)

		done := make(chan struct{})
		go func() {
			checker.Start(context.Background())
			close(done)
		}()

		deadline := time.After(2 * time.Second)
		for checker.GetStatus().IsHealthy {
			select {
			case <-deadline:
				t.Fatal("checker never probed")
			case <-time.After(5 * time.Millisecond):
			}
		}

		checker.Stop()
		checker.Stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Start did not return after Stop")
		}
	})

	t.Run("context cancel stops loop", func(t *testing.T) {
		checker := NewHealthChecker(&stubTranscriber{healthy: true}, time.Hour, 1)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			checker.Start(ctx)
			close(done)
		}()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Start did not return after cancel")
		}
	})
}
