// Package dependency runs the external media tools (ffmpeg, ffprobe,
// whisper-cli) in local, remote or fallback mode, and builds the render
// command lines used for captioned videos and slideshows.
package dependency

import "time"

// ExecutionMode specifies how commands should be executed.
type ExecutionMode string

const (
	// ModeLocal executes commands directly on the local system using exec.Command.
	ModeLocal ExecutionMode = "local"

	// ModeRemote executes commands by calling the deps-service over HTTP.
	ModeRemote ExecutionMode = "remote"

	// ModeFallback tries remote execution first, then falls back to local on failure.
	ModeFallback ExecutionMode = "fallback"
)

// CommandRequest encapsulates all information needed to execute a command.
// Its JSON form is the deps-service wire format.
type CommandRequest struct {
	// Command is the binary name or alias (e.g., "ffmpeg", "ffprobe").
	Command string `json:"command" yaml:"command"`

	// Args are the command-line arguments, without the binary itself.
	Args []string `json:"args" yaml:"args"`

	// Env contains extra environment variables.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// WorkingDir is the directory to execute the command in (default: current dir).
	WorkingDir string `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`

	// Timeout is the maximum execution duration (0 means executor default).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// CommandResponse contains the result of a command execution.
type CommandResponse struct {
	Success     bool     `json:"success" yaml:"success"`
	ExitCode    int      `json:"exit_code" yaml:"exit_code"`
	Stdout      string   `json:"stdout" yaml:"stdout"`
	Stderr      string   `json:"stderr" yaml:"stderr"`
	DurationMs  int64    `json:"duration_ms" yaml:"duration_ms"`
	OutputFiles []string `json:"output_files,omitempty" yaml:"output_files,omitempty"`
}

// ExecutorConfig defines the configuration for dependency execution.
type ExecutorConfig struct {
	// Mode specifies the execution strategy: "local", "remote", or "fallback".
	Mode ExecutionMode `json:"mode" yaml:"mode"`

	// ServiceURL is the deps-service endpoint (e.g., "http://deps-service:9090").
	// Required for "remote" and "fallback" modes.
	ServiceURL string `json:"service_url" yaml:"service_url"`

	// OutputRoot is the directory every generated file must live under. In
	// remote mode it must be the volume shared with deps-service.
	OutputRoot string `json:"output_root" yaml:"output_root"`

	// LocalBinaryPaths maps command names to local binary paths
	// (e.g., {"ffmpeg": "/usr/local/bin/ffmpeg"}).
	LocalBinaryPaths map[string]string `json:"local_binary_paths" yaml:"local_binary_paths"`

	// DefaultTimeout is the default execution timeout for all commands.
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout"`

	// AllowedCommands whitelists executable commands. Empty allows all.
	AllowedCommands []string `json:"allowed_commands" yaml:"allowed_commands"`
}

// DefaultAllowedCommands is the whitelist used by the server.
var DefaultAllowedCommands = []string{"ffmpeg", "ffprobe", "whisper-cli"}
