package main

import (
	"regexp"
	"time"
)

// Config is the deps-service configuration file (commands.yaml).
type Config struct {
	Commands []CommandConfig `yaml:"commands"`
	Security SecurityConfig  `yaml:"security"`
	Limits   LimitsConfig    `yaml:"limits"`
}

// CommandConfig whitelists one binary and the arguments it may receive.
type CommandConfig struct {
	Name                string   `yaml:"name"`
	BinaryPath          string   `yaml:"binary_path"`
	AllowedArgsPatterns []string `yaml:"allowed_args_patterns"`
	EnvWhitelist        []string `yaml:"env_whitelist"`
	Timeout             string   `yaml:"timeout"`
	MaxConcurrent       int      `yaml:"max_concurrent"`

	patterns []*regexp.Regexp
	timeout  time.Duration
}

// SecurityConfig bounds where commands may read and write.
type SecurityConfig struct {
	SharedVolumePath string   `yaml:"shared_volume_path"`
	ExtraAllowedDirs []string `yaml:"extra_allowed_dirs"`
	ForbiddenPaths   []string `yaml:"forbidden_paths"`
	MaxCommandLength int      `yaml:"max_command_length"`
	AuditLogPath     string   `yaml:"audit_log_path"`
}

// LimitsConfig tunes request admission.
type LimitsConfig struct {
	AcquireTimeout string `yaml:"acquire_timeout"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`

	acquireTimeout time.Duration
}

// CommandRequest mirrors dependency.CommandRequest on the server side.
// Timeout is encoded as nanoseconds.
type CommandRequest struct {
	Command    string            `json:"command"`
	Args       []string          `json:"args"`
	Env        map[string]string `json:"env,omitempty"`
	WorkingDir string            `json:"working_dir,omitempty"`
	Timeout    time.Duration     `json:"timeout"`
}

// CommandResponse mirrors dependency.CommandResponse.
type CommandResponse struct {
	Success     bool     `json:"success"`
	ExitCode    int      `json:"exit_code"`
	Stdout      string   `json:"stdout"`
	Stderr      string   `json:"stderr"`
	DurationMs  int64    `json:"duration_ms"`
	OutputFiles []string `json:"output_files,omitempty"`
}
