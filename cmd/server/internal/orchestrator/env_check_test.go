package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct{ err error }

func (f fakeExecutor) HealthCheck(ctx context.Context) error { return f.err }

type fakeTranscriber struct {
	ok  bool
	err error
}

func (f fakeTranscriber) HealthCheck(ctx context.Context) (bool, error) { return f.ok, f.err }
func (f fakeTranscriber) Name() string                                  { return "go-whisper" }

func TestCheckEnvironmentReady(t *testing.T) {
	kokoro := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer kokoro.Close()

	old := minFreeBytes
	minFreeBytes = 1
	t.Cleanup(func() { minFreeBytes = old })

	root := t.TempDir()
	status := CheckEnvironment(context.Background(), EnvProbes{
		OutputRoot:   root,
		ExecutorMode: "local",
		Executor:     fakeExecutor{},
		Transcriber:  fakeTranscriber{ok: true},
		KokoroURL:    kokoro.URL + "/",
	})

	require.True(t, status.Ready, "issues: %v", status.Issues)
	assert.Empty(t, status.Warnings)
	assert.True(t, status.Details.OutputRoot.Writable)
	assert.NotZero(t, status.Details.OutputRoot.FreeBytes)
	assert.True(t, status.Details.Executor.Available)
	assert.Equal(t, "local", status.Details.Executor.Mode)
	assert.True(t, status.Details.Whisper.Reachable)
	assert.True(t, status.Details.Kokoro.Reachable)
}

func TestCheckEnvironmentIssuesAndWarnings(t *testing.T) {
	kokoro := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer kokoro.Close()

	status := CheckEnvironment(context.Background(), EnvProbes{
		OutputRoot:  filepath.Join(t.TempDir(), "missing"),
		FontsDir:    filepath.Join(t.TempDir(), "nofonts"),
		Executor:    fakeExecutor{err: errors.New("ffmpeg not found in PATH")},
		Transcriber: fakeTranscriber{err: errors.New("connection refused")},
		KokoroURL:   kokoro.URL,
	})

	assert.False(t, status.Ready)
	assert.Len(t, status.Issues, 2)
	assert.Contains(t, status.Issues[1], "ffmpeg not found")
	assert.Len(t, status.Warnings, 3)
	assert.Equal(t, "HTTP 503", status.Details.Kokoro.Error)
	assert.Equal(t, "connection refused", status.Details.Whisper.Error)
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		INVALID_INPUT:       http.StatusBadRequest,
		NOT_FOUND:           http.StatusNotFound,
		OUTSIDE_OUTPUT_ROOT: http.StatusForbidden,
		WHISPER_UNAVAILABLE: http.StatusServiceUnavailable,
		TTS_FAILED:          http.StatusBadGateway,
		DISK_FULL:           http.StatusInsufficientStorage,
		FFMPEG_FAILED:       http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestOrchErrorChain(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewFFmpegError(cause)
	wrapped := errors.Join(errors.New("render"), err)

	assert.Equal(t, FFMPEG_FAILED, CodeOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "[FFMPEG_FAILED] FFmpeg 执行失败: exit status 1", err.Error())
	assert.Equal(t, ErrorCode(""), CodeOf(cause))
	assert.Equal(t, "[NOT_FOUND] 文件不存在: a.wav", NewNotFoundError("a.wav").Error())
}
