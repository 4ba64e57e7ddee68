package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
)

// GoWhisperImpl talks to a go-whisper HTTP service
// (ghcr.io/mutablelogic/go-whisper) and requests word-level timestamps.
type GoWhisperImpl struct {
	apiURL       string
	defaultModel string
	httpClient   *http.Client
}

// NewGoWhisperImpl creates a client for apiURL (e.g. "http://localhost:8082").
// Transcription time roughly tracks audio length, hence the long timeout.
func NewGoWhisperImpl(apiURL, defaultModel string) *GoWhisperImpl {
	if defaultModel == "" {
		defaultModel = "ggml-base"
	}
	return &GoWhisperImpl{
		apiURL:       apiURL,
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: 10 * time.Minute},
	}
}

// Transcribe posts the audio as multipart/form-data to
// {apiURL}/api/whisper/transcribe.
func (g *GoWhisperImpl) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}

	model := g.defaultModel
	if options != nil && options.Model != "" {
		model = options.Model
	}
	fields := [][2]string{
		{"model", model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
	}
	temperature := 0.0
	if options != nil {
		temperature = options.Temperature
		if options.Language != "" {
			fields = append(fields, [2]string{"language", options.Language})
		}
		if options.Prompt != "" {
			fields = append(fields, [2]string{"prompt", options.Prompt})
		}
	}
	fields = append(fields, [2]string{"temperature", strconv.FormatFloat(temperature, 'f', 1, 64)})
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", f[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	if options != nil && options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	endpoint := g.apiURL + "/api/whisper/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	slog.Debug("go-whisper transcribe", "endpoint", endpoint, "audio", audioPath, "model", model)
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, orchestrator.NewWhisperUnavailableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Warn("go-whisper error response", "status", resp.StatusCode, "body", string(bodyBytes))
		return nil, orchestrator.NewWhisperHTTPError(resp.StatusCode, string(bodyBytes))
	}

	var result TranscriptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if errors.Is(err, io.EOF) {
			return &TranscriptionResult{Segments: []TranscriptionSegment{}}, nil
		}
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if result.Segments == nil {
		result.Segments = []TranscriptionSegment{}
	}
	return &result, nil
}

// HealthCheck probes GET {apiURL}/api/whisper/model.
func (g *GoWhisperImpl) HealthCheck(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"/api/whisper/model", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	return false, fmt.Errorf("health check failed: status %d", resp.StatusCode)
}

func (g *GoWhisperImpl) Name() string {
	return "go-whisper"
}
