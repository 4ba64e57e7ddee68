// Package health runs periodic probes against a speech-to-text engine and
// tracks consecutive failures.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/whisper"
)

// probeTimeout bounds a single HealthCheck call.
const probeTimeout = 10 * time.Second

// ServiceStatus is the JSON-safe health snapshot of one engine.
type ServiceStatus struct {
	Name             string    `json:"name"`
	IsHealthy        bool      `json:"is_healthy"`
	LastCheckTime    time.Time `json:"last_check_time"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// HealthChecker probes a transcriber every checkInterval and marks it
// unhealthy after failThreshold consecutive failures. A single success
// restores it. Safe for concurrent use.
type HealthChecker struct {
	transcriber   whisper.WhisperTranscriber
	checkInterval time.Duration
	failThreshold int
	logger        *slog.Logger

	mu       sync.RWMutex
	status   ServiceStatus
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewHealthChecker starts in the healthy state; call Start to begin probing.
func NewHealthChecker(transcriber whisper.WhisperTranscriber, checkInterval time.Duration, failThreshold int) *HealthChecker {
	if failThreshold < 1 {
		failThreshold = 1
	}
	return &HealthChecker{
		transcriber:   transcriber,
		checkInterval: checkInterval,
		failThreshold: failThreshold,
		logger:        slog.Default().With("component", "health", "engine", transcriber.Name()),
		stopChan:      make(chan struct{}),
		status: ServiceStatus{
			Name:          transcriber.Name(),
			IsHealthy:     true,
			LastCheckTime: time.Now(),
		},
	}
}

// Start probes immediately and then on every tick until Stop is called or
// ctx is done. It blocks; run it in a goroutine.
func (hc *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	hc.CheckNow(ctx)
	for {
		select {
		case <-ticker.C:
			hc.CheckNow(ctx)
		case <-hc.stopChan:
			hc.logger.Info("health checker stopped")
			return
		case <-ctx.Done():
			hc.logger.Info("health checker context cancelled")
			return
		}
	}
}

// CheckNow runs one probe and returns the updated status.
func (hc *HealthChecker) CheckNow(ctx context.Context) ServiceStatus {
	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	healthy, err := hc.transcriber.HealthCheck(checkCtx)

	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.status.LastCheckTime = time.Now()
	if healthy {
		if !hc.status.IsHealthy {
			hc.logger.Info("engine recovered")
		}
		hc.status.IsHealthy = true
		hc.status.ConsecutiveFails = 0
		hc.status.ErrorMessage = ""
		return hc.status
	}

	hc.status.ConsecutiveFails++
	msg := "reported unhealthy"
	if err != nil {
		msg = err.Error()
	}
	hc.status.ErrorMessage = fmt.Sprintf("health check failed: %s", msg)

	if hc.status.ConsecutiveFails >= hc.failThreshold {
		if hc.status.IsHealthy {
			hc.logger.Error("engine marked unhealthy", "fails", hc.status.ConsecutiveFails, "error", msg)
		}
		hc.status.IsHealthy = false
	} else {
		hc.logger.Warn("health check failed", "fails", hc.status.ConsecutiveFails, "threshold", hc.failThreshold, "error", msg)
	}
	return hc.status
}

// GetStatus returns a copy of the current status.
func (hc *HealthChecker) GetStatus() ServiceStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.status
}

// Stop ends Start. Safe to call more than once.
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() { close(hc.stopChan) })
}
