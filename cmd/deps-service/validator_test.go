package main

import (
	"strings"
	"testing"
)

func TestValidateRequest(t *testing.T) {
	v := NewValidator(testConfig(t, "/data"))

	tests := []struct {
		name    string
		req     CommandRequest
		wantErr string
	}{
		{"plain args", CommandRequest{Command: "echo", Args: []string{"hello", "-n"}}, ""},
		{"shared file", CommandRequest{Command: "echo", Args: []string{"/data/tts/a.wav"}}, ""},
		{"extra dir", CommandRequest{Command: "echo", Args: []string{"/models/ggml-base.bin"}}, ""},
		{"not whitelisted", CommandRequest{Command: "rm", Args: []string{"-rf"}}, "not in whitelist"},
		{"pattern mismatch", CommandRequest{Command: "echo", Args: []string{"a b"}}, "does not match"},
		{"traversal", CommandRequest{Command: "echo", Args: []string{"/data/../etc/passwd"}}, "traversal"},
		{"forbidden", CommandRequest{Command: "echo", Args: []string{"/etc/passwd"}}, "forbidden"},
		{"outside", CommandRequest{Command: "echo", Args: []string{"/tmp/x"}}, "must be within"},
		{"sibling prefix", CommandRequest{Command: "echo", Args: []string{"/database/x"}}, "must be within"},
		{"embedded ok", CommandRequest{Command: "echo", Args: []string{"subtitles=/data/a.ass"}}, ""},
		{"embedded outside", CommandRequest{Command: "echo", Args: []string{"subtitles=/tmp/a.ass"}}, "must be within"},
		{"too long", CommandRequest{Command: "echo", Args: []string{strings.Repeat("a", 300)}}, "exceeds maximum"},
		{"working dir ok", CommandRequest{Command: "echo", WorkingDir: "/data/work"}, ""},
		{"working dir bad", CommandRequest{Command: "echo", WorkingDir: "/proc/1"}, "working directory"},
		{"env ok", CommandRequest{Command: "echo", Env: map[string]string{"GREETING": "hi"}}, ""},
		{"env bad", CommandRequest{Command: "echo", Env: map[string]string{"LD_PRELOAD": "x"}}, "environment variable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	cases := []struct {
		path, dir string
		want      bool
	}{
		{"/data", "/data", true},
		{"/data/a", "/data", true},
		{"/data/a", "/data/", true},
		{"/datax", "/data", false},
		{"/", "/data", false},
	}
	for _, c := range cases {
		if got := within(c.path, c.dir); got != c.want {
			t.Errorf("within(%q, %q) = %v, want %v", c.path, c.dir, got, c.want)
		}
	}
}
