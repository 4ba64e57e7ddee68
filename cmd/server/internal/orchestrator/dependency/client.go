package dependency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ErrCommandFailed marks a command that ran and exited non-zero.
var ErrCommandFailed = errors.New("command failed")

// CommandError describes a failed external command.
type CommandError struct {
	Command  string
	Step     string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s (%s) failed with exit code %d: %s", e.Step, e.Command, e.ExitCode, lastLines(e.Stderr, 5))
}

// Is reports ErrCommandFailed for errors.Is.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// DependencyClient is the facade the API layer uses for media tooling. It
// builds command lines, validates them, and runs them on whichever executor
// the configuration selected.
type DependencyClient struct {
	executor    DependencyExecutor
	config      ExecutorConfig
	pathManager *PathManager
	logger      *slog.Logger
}

// NewClient creates a DependencyClient, selecting the executor by config.Mode.
func NewClient(config ExecutorConfig) (*DependencyClient, error) {
	var executor DependencyExecutor
	switch config.Mode {
	case ModeLocal:
		executor = NewLocalExecutor(config)
	case ModeRemote:
		executor = NewRemoteExecutor(config)
	case ModeFallback:
		executor = NewFallbackExecutor(config)
	default:
		return nil, fmt.Errorf("invalid execution mode: %s (must be 'local', 'remote', or 'fallback')", config.Mode)
	}
	return NewClientWithExecutor(executor, config), nil
}

// NewClientWithExecutor wraps an existing executor.
func NewClientWithExecutor(executor DependencyExecutor, config ExecutorConfig) *DependencyClient {
	return &DependencyClient{
		executor:    executor,
		config:      config,
		pathManager: NewPathManager(config.OutputRoot),
		logger:      slog.Default().With("component", "dependency"),
	}
}

// run validates and executes req, turning non-zero exits into *CommandError.
func (c *DependencyClient) run(ctx context.Context, req CommandRequest, step string) (CommandResponse, error) {
	if req.Timeout == 0 {
		req.Timeout = c.config.DefaultTimeout
	}
	if err := ValidateCommandRequest(req, c.config); err != nil {
		return CommandResponse{}, fmt.Errorf("command validation failed: %w", err)
	}

	c.logger.Debug("executing", "step", step, "command", req.Command, "args", strings.Join(req.Args, " "))
	start := time.Now()
	resp, err := c.executor.ExecuteCommand(ctx, req)
	if err != nil {
		c.logger.Error("execution failed", "step", step, "command", req.Command, "error", err)
		return resp, fmt.Errorf("%s: %w", step, err)
	}
	if !resp.Success || resp.ExitCode != 0 {
		c.logger.Error("command failed", "step", step, "exit_code", resp.ExitCode, "stderr", lastLines(resp.Stderr, 5))
		return resp, &CommandError{Command: req.Command, Step: step, ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	}
	c.logger.Info("command succeeded", "step", step, "duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

// ProbeDuration returns a media file's duration in seconds via ffprobe.
func (c *DependencyClient) ProbeDuration(ctx context.Context, path string) (float64, error) {
	req := CommandRequest{
		Command: "ffprobe",
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
		Timeout: 30 * time.Second,
	}
	resp, err := c.run(ctx, req, "probe duration")
	if err != nil {
		return 0, err
	}
	return parseProbeDuration(resp.Stdout)
}

func parseProbeDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("could not determine duration from ffprobe output %q", out)
	}
	return d, nil
}

// HealthCheck delegates to the executor.
func (c *DependencyClient) HealthCheck(ctx context.Context) error {
	return c.executor.HealthCheck(ctx)
}

// PathManager returns the output-root path manager.
func (c *DependencyClient) PathManager() *PathManager {
	return c.pathManager
}

// Config returns the executor configuration.
func (c *DependencyClient) Config() ExecutorConfig {
	return c.config
}

// ExecuteCommand runs a validated request directly. Used by the local
// whisper transcriber.
func (c *DependencyClient) ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	return c.run(ctx, req, req.Command)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
