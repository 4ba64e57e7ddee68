package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
	"github.com/aiagentsaz/mediaflow/pkg/logger"
)

const (
	DefaultVoice  = "af_heart"
	DefaultOutDir = "audio"
	minSpeed      = 0.25
	maxSpeed      = 4.0
)

var (
	ErrEmptyText    = errors.New("text cannot be empty or whitespace")
	ErrInvalidVoice = errors.New("unknown voice")
)

// Request is a synthesis request. Nil sidecar flags mean true.
type Request struct {
	Text             string  `json:"text"`
	Voice            string  `json:"voice"`
	Speed            float64 `json:"speed"`
	OutDir           string  `json:"outdir"`
	Filename         string  `json:"filename"`
	SaveVTT          *bool   `json:"save_vtt"`
	SaveCaptionsJSON *bool   `json:"save_captions_json"`
}

// Result describes the written wav and its sidecars.
type Result struct {
	Status       string          `json:"status"`
	Path         string          `json:"path"`
	Duration     float64         `json:"duration"`
	SampleRate   int             `json:"sample_rate"`
	NumChannels  int             `json:"num_channels"`
	CaptionsPath string          `json:"captions_path,omitempty"`
	VTTPath      string          `json:"vtt_path,omitempty"`
	Captions     []caption.Token `json:"-"`
}

// Service writes Kokoro narration under the output root.
type Service struct {
	synth  Synthesizer
	paths  *dependency.PathManager
	logger *slog.Logger
	now    func() time.Time

	voice string
	speed float64
}

// NewService creates a Service writing below paths' root.
func NewService(synth Synthesizer, paths *dependency.PathManager) *Service {
	return &Service{
		synth:  synth,
		paths:  paths,
		logger: logger.OrDefault().With("component", "tts"),
		now:    time.Now,
		voice:  DefaultVoice,
		speed:  1.0,
	}
}

// SetDefaults overrides the voice and speed used when a request leaves
// them empty. Zero values keep the built-in defaults.
func (s *Service) SetDefaults(voice string, speed float64) {
	if voice != "" {
		s.voice = voice
	}
	if speed > 0 {
		s.speed = speed
	}
}

// Health reports whether the Kokoro server answers.
func (s *Service) Health(ctx context.Context) error {
	return s.synth.Health(ctx)
}

// Synthesize renders req.Text to outdir/YYYYMMDD/<name>.wav and, unless
// disabled, writes captions as .json and .vtt next to it. Sidecar write
// failures are logged and leave the corresponding path empty.
func (s *Service) Synthesize(ctx context.Context, req Request) (*Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, orchestrator.NewInvalidInputError(ErrEmptyText.Error(), ErrEmptyText)
	}
	voice := req.Voice
	if voice == "" {
		voice = s.voice
	}
	lang, ok := LookupVoice(voice)
	if !ok {
		return nil, orchestrator.NewInvalidInputError(fmt.Sprintf("invalid voice: %s", voice), ErrInvalidVoice)
	}
	speed := req.Speed
	if speed == 0 {
		speed = s.speed
	}
	if speed < minSpeed || speed > maxSpeed {
		return nil, orchestrator.NewInvalidInputError(fmt.Sprintf("speed must be between %.2f and %.1f", minSpeed, maxSpeed), nil)
	}

	wavPath, err := s.outputPath(req, voice)
	if err != nil {
		return nil, err
	}

	start := s.now()
	var (
		audio    *WAV
		captions []caption.Token
	)
	if lang.International {
		audio, captions, err = s.international(ctx, text, voice, lang.Code, speed)
	} else {
		audio, captions, err = s.english(ctx, text, voice, speed)
	}
	if err != nil {
		logger.LogMediaStage(ctx, s.logger, "tts", "error", voice, time.Since(start).Milliseconds(), string(orchestrator.TTS_FAILED))
		return nil, orchestrator.NewTTSError(err)
	}
	audio = audio.Stereo()

	if err := os.WriteFile(wavPath, audio.Encode(), 0o644); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}

	res := &Result{
		Status:      "ok",
		Path:        wavPath,
		Duration:    audio.Duration(),
		SampleRate:  int(audio.Format.SampleRate),
		NumChannels: int(audio.Format.Channels),
		Captions:    captions,
	}
	base := strings.TrimSuffix(wavPath, ".wav")
	if enabled(req.SaveCaptionsJSON) {
		if err := writeCaptionsJSON(base+".json", captions); err != nil {
			s.logger.Warn("failed to write captions json", "path", base+".json", "error", err)
		} else {
			res.CaptionsPath = base + ".json"
		}
	}
	if enabled(req.SaveVTT) {
		if err := writeVTT(base+".vtt", captions); err != nil {
			s.logger.Warn("failed to write vtt", "path", base+".vtt", "error", err)
		} else {
			res.VTTPath = base + ".vtt"
		}
	}

	logger.LogMediaStage(ctx, s.logger, "tts", "success", filepath.Base(wavPath), time.Since(start).Milliseconds(), "")
	return res, nil
}

// english uses Kokoro's word timestamps.
func (s *Service) english(ctx context.Context, text, voice string, speed float64) (*WAV, []caption.Token, error) {
	out, err := s.synth.CaptionedSpeech(ctx, text, voice, speed)
	if err != nil {
		return nil, nil, err
	}
	if len(out.Audio) == 0 {
		return nil, nil, errNoAudio
	}
	w, err := ParseWAV(out.Audio)
	if err != nil {
		return nil, nil, err
	}
	return w, wordCaptions(out.Timestamps, w.Duration()), nil
}

// international synthesizes sentence by sentence; each sentence becomes one
// caption spanning its audio.
func (s *Service) international(ctx context.Context, text, voice, langCode string, speed float64) (*WAV, []caption.Token, error) {
	sentences := SplitSentences(text, langCode)
	parts := make([][]byte, 0, len(sentences))
	captions := make([]caption.Token, 0, len(sentences))
	offset := 0.0
	for i, sentence := range sentences {
		audio, err := s.synth.Speech(ctx, sentence, voice, langCode, speed)
		if err != nil {
			return nil, nil, fmt.Errorf("sentence %d: %w", i+1, err)
		}
		w, err := ParseWAV(audio)
		if err != nil {
			return nil, nil, fmt.Errorf("sentence %d: %w", i+1, err)
		}
		length := w.Duration()
		captions = append(captions, caption.Token{Text: sentence, Start: offset, End: offset + length})
		offset += length
		parts = append(parts, audio)
	}
	if len(parts) == 0 {
		return nil, nil, errNoAudio
	}
	joined, err := ConcatWAV(parts...)
	if err != nil {
		return nil, nil, err
	}
	return joined, captions, nil
}

// outputPath resolves outdir/YYYYMMDD/<filename|kokoro_voice_ts>.wav inside
// the output root.
func (s *Service) outputPath(req Request, voice string) (string, error) {
	outDir := req.OutDir
	if outDir == "" {
		outDir = filepath.Join(s.paths.Root(), DefaultOutDir)
	}
	dir, err := s.paths.Resolve(outDir)
	if err != nil {
		if errors.Is(err, dependency.ErrOutsideRoot) {
			return "", orchestrator.NewOutsideRootError(outDir)
		}
		return "", err
	}

	now := s.now()
	name := req.Filename
	if name == "" {
		name = fmt.Sprintf("kokoro_%s_%s.wav", voice, now.Format("20060102_150405"))
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", orchestrator.NewInvalidInputError("filename must not contain a directory", nil)
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + ".wav"

	dir = filepath.Join(dir, now.Format("20060102"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

func writeCaptionsJSON(path string, captions []caption.Token) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if captions == nil {
		captions = []caption.Token{}
	}
	if err := enc.Encode(captions); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func writeVTT(path string, captions []caption.Token) error {
	var buf bytes.Buffer
	if err := caption.WriteVTT(&buf, captions); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
