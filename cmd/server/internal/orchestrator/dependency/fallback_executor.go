package dependency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/aiagentsaz/mediaflow/pkg/metrics"
)

// FallbackExecutor tries remote execution first and switches to local after
// a network failure. Once degraded it stays local until the next successful
// HealthCheck against the remote service.
type FallbackExecutor struct {
	remote      DependencyExecutor
	local       DependencyExecutor
	primaryMode ExecutionMode
	mu          sync.RWMutex
}

// NewFallbackExecutor creates a FallbackExecutor with remote as the initial primary mode.
func NewFallbackExecutor(config ExecutorConfig) *FallbackExecutor {
	return newFallback(NewRemoteExecutor(config), NewLocalExecutor(config))
}

func newFallback(remote, local DependencyExecutor) *FallbackExecutor {
	return &FallbackExecutor{remote: remote, local: local, primaryMode: ModeRemote}
}

// Mode returns the currently active mode.
func (e *FallbackExecutor) Mode() ExecutionMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.primaryMode
}

// ExecuteCommand executes a command using the current primary mode, with automatic fallback.
func (e *FallbackExecutor) ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	start := time.Now()
	mode := e.Mode()

	var resp CommandResponse
	var err error

	if mode == ModeRemote {
		resp, err = e.remote.ExecuteCommand(ctx, req)
		if err != nil && isNetworkError(err) {
			slog.Warn("remote execution failed, attempting local fallback",
				"command", req.Command,
				"error", err.Error())

			metrics.RecordCommandExecution(req.Command, string(ModeRemote), "failed")
			metrics.RecordCommandDuration(req.Command, string(ModeRemote), time.Since(start).Seconds())

			return e.fallbackToLocal(ctx, req)
		}
	} else {
		resp, err = e.local.ExecuteCommand(ctx, req)
	}

	metrics.RecordCommandExecution(req.Command, string(mode), executionStatus(resp, err))
	metrics.RecordCommandDuration(req.Command, string(mode), time.Since(start).Seconds())

	return resp, err
}

// executionStatus categorizes a result as "success", "timeout", or "failed".
func executionStatus(resp CommandResponse, err error) string {
	if err == nil && resp.Success {
		return "success"
	}
	if err != nil && strings.Contains(err.Error(), "timeout") {
		return "timeout"
	}
	return "failed"
}

// HealthCheck prefers the remote service and degrades to local tools.
func (e *FallbackExecutor) HealthCheck(ctx context.Context) error {
	remoteErr := e.remote.HealthCheck(ctx)
	if remoteErr == nil {
		e.setPrimaryMode(ModeRemote)
		return nil
	}
	slog.Warn("remote dependency service unavailable, trying local fallback", "error", remoteErr.Error())

	if localErr := e.local.HealthCheck(ctx); localErr != nil {
		return fmt.Errorf("both remote and local dependencies unavailable [tried modes: remote → local]: remote: %v; local: %w", remoteErr, localErr)
	}
	if e.Mode() != ModeLocal {
		metrics.RecordDegradationEvent(string(ModeRemote), string(ModeLocal))
	}
	e.setPrimaryMode(ModeLocal)
	slog.Info("local dependencies available, using local mode (degraded)")
	return nil
}

func (e *FallbackExecutor) fallbackToLocal(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	start := time.Now()
	resp, err := e.local.ExecuteCommand(ctx, req)

	metrics.RecordCommandExecution(req.Command, string(ModeLocal), executionStatus(resp, err))
	metrics.RecordCommandDuration(req.Command, string(ModeLocal), time.Since(start).Seconds())

	if err == nil {
		e.setPrimaryMode(ModeLocal)
		slog.Info("local fallback succeeded, updated primary mode to local", "command", req.Command)
		metrics.RecordDegradationEvent(string(ModeRemote), string(ModeLocal))
	}
	return resp, err
}

// isNetworkError reports transport-level failures (refused, reset, DNS, timeouts).
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network error")
}

func (e *FallbackExecutor) setPrimaryMode(mode ExecutionMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.primaryMode = mode
}
