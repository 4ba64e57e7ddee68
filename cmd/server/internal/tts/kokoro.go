package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
	"github.com/aiagentsaz/mediaflow/pkg/logger"
)

// Synthesizer is the part of a Kokoro server the Service needs.
type Synthesizer interface {
	CaptionedSpeech(ctx context.Context, text, voice string, speed float64) (*CaptionedAudio, error)
	Speech(ctx context.Context, text, voice, langCode string, speed float64) ([]byte, error)
	Health(ctx context.Context) error
}

// WordTimestamp is one word as timed by Kokoro. Start and End are nil for
// tokens Kokoro could not align.
type WordTimestamp struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start_time"`
	End   *float64 `json:"end_time"`
}

// CaptionedAudio is a wav file with word timings.
type CaptionedAudio struct {
	Audio      []byte
	Timestamps []WordTimestamp
}

// KokoroClient calls a Kokoro-FastAPI server.
type KokoroClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewKokoroClient creates a client for baseURL (e.g. "http://localhost:8880").
func NewKokoroClient(baseURL string) *KokoroClient {
	return &KokoroClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logger.OrDefault().With("component", "kokoro"),
	}
}

type speechRequest struct {
	Model            string  `json:"model"`
	Input            string  `json:"input"`
	Voice            string  `json:"voice"`
	Speed            float64 `json:"speed"`
	ResponseFormat   string  `json:"response_format"`
	Stream           bool    `json:"stream"`
	LangCode         string  `json:"lang_code,omitempty"`
	ReturnTimestamps bool    `json:"return_timestamps,omitempty"`
}

type captionedResponse struct {
	Audio      string          `json:"audio"`
	Timestamps []WordTimestamp `json:"timestamps"`
}

// CaptionedSpeech synthesizes text and returns word timestamps.
func (k *KokoroClient) CaptionedSpeech(ctx context.Context, text, voice string, speed float64) (*CaptionedAudio, error) {
	body, err := k.post(ctx, "/dev/captioned_speech", speechRequest{
		Model: "kokoro", Input: text, Voice: voice, Speed: speed,
		ResponseFormat: "wav", ReturnTimestamps: true,
	})
	if err != nil {
		return nil, err
	}
	var resp captionedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode captioned speech: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return &CaptionedAudio{Audio: audio, Timestamps: resp.Timestamps}, nil
}

// Speech synthesizes text as wav without timestamps.
func (k *KokoroClient) Speech(ctx context.Context, text, voice, langCode string, speed float64) ([]byte, error) {
	return k.post(ctx, "/v1/audio/speech", speechRequest{
		Model: "kokoro", Input: text, Voice: voice, Speed: speed,
		ResponseFormat: "wav", LangCode: langCode,
	})
}

// Health checks GET /health.
func (k *KokoroClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kokoro unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kokoro health returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (k *KokoroClient) post(ctx context.Context, path string, payload speechRequest) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kokoro request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read kokoro response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kokoro %s returned HTTP %d: %s", path, resp.StatusCode, truncate(string(body), 300))
	}
	k.logger.Debug("kokoro request done",
		"path", path, "voice", payload.Voice, "chars", len(payload.Input),
		"duration_ms", time.Since(start).Milliseconds())
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// wordCaptions turns Kokoro word timings into caption tokens. A word
// without timing is appended to the previous caption, which then extends
// to chunkEnd.
func wordCaptions(words []WordTimestamp, chunkEnd float64) []caption.Token {
	var out []caption.Token
	for _, w := range words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		if w.Start == nil || w.End == nil {
			if len(out) == 0 {
				continue
			}
			last := &out[len(out)-1]
			last.Text += text
			last.End = chunkEnd
			continue
		}
		out = append(out, caption.Token{Text: text, Start: *w.Start, End: *w.End})
	}
	return out
}

var errNoAudio = errors.New("kokoro returned no audio")
