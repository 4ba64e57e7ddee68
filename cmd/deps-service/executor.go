package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/aiagentsaz/mediaflow/pkg/logger"
	"github.com/aiagentsaz/mediaflow/pkg/metrics"
)

// metricsMode labels executions in the shared dependency metrics.
const metricsMode = "deps-service"

// maxCapture bounds stdout/stderr kept per execution.
const maxCapture = 1 << 20

// ErrTimeout is returned when a command outlives its timeout.
var ErrTimeout = errors.New("command timeout")

// Executor runs whitelisted binaries.
type Executor struct {
	config *Config
	logger *slog.Logger
}

// NewExecutor creates an Executor for a compiled config.
func NewExecutor(config *Config) *Executor {
	return &Executor{config: config, logger: logger.OrDefault().With("component", "executor")}
}

// ExecuteCommand runs req in its own process group. A non-zero exit is
// reported through the response, not the error; the error is reserved for
// commands that could not start or timed out. The request timeout can only
// shorten the configured one.
func (e *Executor) ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	cmdConfig, ok := e.config.Command(req.Command)
	if !ok {
		return CommandResponse{}, fmt.Errorf("command %s is not in whitelist", req.Command)
	}
	timeout := cmdConfig.timeout
	if req.Timeout > 0 && req.Timeout < timeout {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cmdConfig.BinaryPath, req.Args...)
	cmd.Dir = req.WorkingDir
	if len(req.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range req.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}

	stdout := &cappedBuffer{limit: maxCapture}
	stderr := &cappedBuffer{limit: maxCapture}
	cmd.Stdout, cmd.Stderr = stdout, stderr

	done := metrics.TrackInFlight()
	defer done()

	e.logger.Debug("executing", "command", req.Command, "args", req.Args, "timeout", timeout)
	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	resp := CommandResponse{
		Success:    runErr == nil,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: elapsed.Milliseconds(),
	}
	if cmd.ProcessState != nil {
		resp.ExitCode = cmd.ProcessState.ExitCode()
	}
	metrics.RecordCommandDuration(req.Command, metricsMode, elapsed.Seconds())

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.RecordCommandExecution(req.Command, metricsMode, "timeout")
		e.logger.Warn("command timed out", "command", req.Command, "timeout", timeout)
		return resp, fmt.Errorf("%w after %v: %s", ErrTimeout, timeout, req.Command)
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		metrics.RecordCommandExecution(req.Command, metricsMode, "success")
		e.logger.Info("command succeeded", "command", req.Command, "duration_ms", resp.DurationMs)
		return resp, nil
	case errors.As(runErr, &exitErr):
		metrics.RecordCommandExecution(req.Command, metricsMode, "failed")
		e.logger.Warn("command failed", "command", req.Command, "exit_code", resp.ExitCode, "stderr", tail(resp.Stderr, 500))
		return resp, nil
	default:
		metrics.RecordCommandExecution(req.Command, metricsMode, "error")
		return resp, fmt.Errorf("start %s: %w", req.Command, runErr)
	}
}

// cappedBuffer keeps the first limit bytes and silently drops the rest.
type cappedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
		} else {
			b.Buffer.Write(p)
		}
	}
	return len(p), nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
