package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecuteCommandSuccess(t *testing.T) {
	e := NewExecutor(testConfig(t, "/data"))
	resp, err := e.ExecuteCommand(context.Background(), CommandRequest{Command: "echo", Args: []string{"hello"}})
	if err != nil {
		t.Fatalf("ExecuteCommand: %v", err)
	}
	if !resp.Success || resp.ExitCode != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if strings.TrimSpace(resp.Stdout) != "hello" {
		t.Errorf("stdout = %q", resp.Stdout)
	}
}

func TestExecuteCommandEnvAndExitCode(t *testing.T) {
	e := NewExecutor(testConfig(t, "/data"))
	resp, err := e.ExecuteCommand(context.Background(), CommandRequest{
		Command: "sh",
		Args:    []string{"-c", `echo "$GREETING" >&2; exit 3`},
		Env:     map[string]string{"GREETING": "bonjour"},
	})
	if err != nil {
		t.Fatalf("non-zero exit must not be an error: %v", err)
	}
	if resp.Success || resp.ExitCode != 3 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if strings.TrimSpace(resp.Stderr) != "bonjour" {
		t.Errorf("stderr = %q", resp.Stderr)
	}
}

func TestExecuteCommandTimeout(t *testing.T) {
	e := NewExecutor(testConfig(t, "/data"))
	start := time.Now()
	_, err := e.ExecuteCommand(context.Background(), CommandRequest{Command: "sleep", Args: []string{"5"}})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("process was not killed promptly: %v", elapsed)
	}
}

func TestExecuteCommandRequestTimeoutOnlyShortens(t *testing.T) {
	e := NewExecutor(testConfig(t, "/data"))
	_, err := e.ExecuteCommand(context.Background(), CommandRequest{
		Command: "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected request timeout to apply, got %v", err)
	}

	// a longer request timeout cannot extend sleep's 200ms limit
	_, err = e.ExecuteCommand(context.Background(), CommandRequest{
		Command: "sleep",
		Args:    []string{"5"},
		Timeout: time.Hour,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected configured timeout to apply, got %v", err)
	}
}

func TestExecuteCommandUnknown(t *testing.T) {
	e := NewExecutor(testConfig(t, "/data"))
	if _, err := e.ExecuteCommand(context.Background(), CommandRequest{Command: "rm"}); err == nil {
		t.Errorf("expected error for unknown command")
	}
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	n, err := b.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	b.Write([]byte("gh"))
	if b.String() != "abcd" {
		t.Errorf("buffer = %q, want abcd", b.String())
	}
	if tail("abcdef", 2) != "ef" || tail("ab", 5) != "ab" {
		t.Errorf("tail misbehaves")
	}
}
