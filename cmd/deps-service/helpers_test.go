package main

import (
	"testing"
)

// testConfig whitelists echo, sh and sleep with a shared volume at shared.
func testConfig(t *testing.T, shared string) *Config {
	t.Helper()
	cfg := &Config{
		Commands: []CommandConfig{
			{
				Name:                "echo",
				BinaryPath:          "/bin/echo",
				AllowedArgsPatterns: []string{`^[a-zA-Z0-9_\-\./=:]+$`},
				EnvWhitelist:        []string{"GREETING"},
				Timeout:             "5s",
				MaxConcurrent:       2,
			},
			{
				Name:                "sh",
				BinaryPath:          "/bin/sh",
				AllowedArgsPatterns: []string{`.*`},
				EnvWhitelist:        []string{"GREETING"},
				Timeout:             "5s",
				MaxConcurrent:       1,
			},
			{
				Name:                "sleep",
				BinaryPath:          "/bin/sleep",
				AllowedArgsPatterns: []string{`^[0-9.]+$`},
				Timeout:             "200ms",
				MaxConcurrent:       1,
			},
		},
		Security: SecurityConfig{
			SharedVolumePath: shared,
			ExtraAllowedDirs: []string{"/models"},
			ForbiddenPaths:   []string{"/etc", "/proc"},
			MaxCommandLength: 256,
		},
		Limits: LimitsConfig{AcquireTimeout: "100ms"},
	}
	if err := cfg.compile(); err != nil {
		t.Fatalf("compile test config: %v", err)
	}
	return cfg
}
