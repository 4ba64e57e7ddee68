package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commands.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigValid(t *testing.T) {
	path := writeConfig(t, `
commands:
  - name: ffprobe
    binary_path: /usr/bin/ffprobe
    allowed_args_patterns: ['^-[a-z_]+$', '^/data/.*$']
    timeout: 1m
    max_concurrent: 4
security:
  shared_volume_path: /data/
  forbidden_paths: [/etc]
  max_command_length: 1024
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	cmd, ok := cfg.Command("ffprobe")
	if !ok {
		t.Fatalf("ffprobe not found")
	}
	if cmd.timeout != time.Minute {
		t.Errorf("timeout = %v, want 1m", cmd.timeout)
	}
	if len(cmd.patterns) != 2 {
		t.Errorf("compiled %d patterns, want 2", len(cmd.patterns))
	}
	if cfg.Security.SharedVolumePath != "/data" {
		t.Errorf("shared volume not cleaned: %q", cfg.Security.SharedVolumePath)
	}
	if cfg.Security.AuditLogPath != defaultAuditLogPath {
		t.Errorf("audit path default = %q", cfg.Security.AuditLogPath)
	}
	if cfg.Limits.acquireTimeout != defaultAcquireTimeout || cfg.Limits.MaxBodyBytes != defaultMaxBodyBytes {
		t.Errorf("limits defaults not applied: %+v", cfg.Limits)
	}
	if _, ok := cfg.Command("ffmpeg"); ok {
		t.Errorf("unexpected ffmpeg entry")
	}
}

func TestLoadConfigShippedExample(t *testing.T) {
	cfg, err := LoadConfig("commands.yaml")
	if err != nil {
		t.Fatalf("shipped commands.yaml does not load: %v", err)
	}
	for _, name := range []string{"ffmpeg", "ffprobe", "whisper-cli"} {
		if _, ok := cfg.Command(name); !ok {
			t.Errorf("missing %s", name)
		}
	}
}

func TestLoadConfigReportsEveryProblem(t *testing.T) {
	path := writeConfig(t, `
commands:
  - name: a
    binary_path: /bin/a
    allowed_args_patterns: ['([']
    timeout: soon
    max_concurrent: 0
  - name: a
    binary_path: ""
    allowed_args_patterns: []
    timeout: 1s
    max_concurrent: 1
security:
  shared_volume_path: ""
limits:
  acquire_timeout: never
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{
		"bad pattern",
		"invalid timeout",
		"max_concurrent",
		"duplicate name",
		"binary_path cannot be empty",
		"allowed_args_patterns cannot be empty",
		"shared_volume_path",
		"forbidden_paths",
		"max_command_length",
		"acquire_timeout",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestLoadConfigMissingAndMalformed(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
	if _, err := LoadConfig(writeConfig(t, "commands: [")); err == nil {
		t.Errorf("expected error for malformed YAML")
	}
}
