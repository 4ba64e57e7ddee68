package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
)

// CommandRunner is the part of dependency.DependencyClient the local
// transcriber needs.
type CommandRunner interface {
	ExecuteCommand(ctx context.Context, req dependency.CommandRequest) (dependency.CommandResponse, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
	PathManager() *dependency.PathManager
}

// LocalWhisperImpl runs the whisper.cpp CLI (whisper-cli) through the
// dependency executor. Audio is first resampled to 16 kHz mono PCM, then
// transcribed with one word per segment and JSON output.
type LocalWhisperImpl struct {
	runner    CommandRunner
	modelPath string
}

// NewLocalWhisperImpl creates a local transcriber using the GGML model file
// at modelPath.
func NewLocalWhisperImpl(runner CommandRunner, modelPath string) *LocalWhisperImpl {
	return &LocalWhisperImpl{runner: runner, modelPath: modelPath}
}

// cliOutput mirrors whisper-cli -oj output.
type cliOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe converts the audio and runs whisper-cli in a temporary work
// directory under the output root.
func (l *LocalWhisperImpl) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	workDir, err := l.runner.PathManager().TempDir("stt")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	duration, err := l.runner.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, orchestrator.NewWhisperCLIError(err)
	}

	wav := filepath.Join(workDir, "input.wav")
	convert := dependency.CommandRequest{
		Command: "ffmpeg",
		Args:    []string{"-y", "-hide_banner", "-loglevel", "error", "-i", audioPath, "-ar", "16000", "-ac", "1", "-c:a", "pcm_s16le", wav},
	}
	if _, err := l.runner.ExecuteCommand(ctx, convert); err != nil {
		return nil, orchestrator.NewWhisperCLIError(fmt.Errorf("resample audio: %w", err))
	}

	outBase := filepath.Join(workDir, "transcript")
	req := dependency.CommandRequest{Command: "whisper-cli", Args: l.cliArgs(wav, outBase, options)}
	if options != nil {
		req.Timeout = options.Timeout
	}
	slog.Debug("local whisper transcribe", "audio", audioPath, "model", l.modelPath)
	if _, err := l.runner.ExecuteCommand(ctx, req); err != nil {
		return nil, orchestrator.NewWhisperCLIError(err)
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return nil, orchestrator.NewWhisperCLIError(fmt.Errorf("read whisper output: %w", err))
	}
	result, err := parseCLIOutput(data)
	if err != nil {
		return nil, orchestrator.NewWhisperCLIError(err)
	}
	result.Duration = duration
	return result, nil
}

func (l *LocalWhisperImpl) cliArgs(wav, outBase string, options *TranscribeOptions) []string {
	model := l.modelPath
	if options != nil && options.Model != "" {
		model = options.Model
	}
	lang := "auto"
	if options != nil && options.Language != "" {
		lang = options.Language
	}
	args := []string{
		"-m", model,
		"-f", wav,
		"-l", lang,
		"-bs", strconv.Itoa(options.beamSize()),
		"-ml", "1", "-sow",
		"-oj", "-of", outBase,
		"-np",
	}
	if options != nil && options.Prompt != "" {
		args = append(args, "--prompt", options.Prompt)
	}
	return args
}

// parseCLIOutput turns whisper-cli JSON (one word per entry, offsets in
// milliseconds) into a result with word timestamps.
func parseCLIOutput(data []byte) (*TranscriptionResult, error) {
	var out cliOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	result := &TranscriptionResult{Segments: []TranscriptionSegment{}, Language: out.Result.Language}
	var text []string
	for i, t := range out.Transcription {
		word := strings.TrimSpace(t.Text)
		if word == "" {
			continue
		}
		start := float64(t.Offsets.From) / 1000
		end := float64(t.Offsets.To) / 1000
		w := TranscriptionWord{Word: word, Start: start, End: end}
		result.Segments = append(result.Segments, TranscriptionSegment{ID: i, Start: start, End: end, Text: word, Words: []TranscriptionWord{w}})
		text = append(text, word)
	}
	result.Text = strings.Join(text, " ")
	return result, nil
}

// HealthCheck verifies the model file exists and the CLI starts.
func (l *LocalWhisperImpl) HealthCheck(ctx context.Context) (bool, error) {
	if _, err := os.Stat(l.modelPath); err != nil {
		return false, fmt.Errorf("whisper model not available: %w", err)
	}
	if _, err := l.runner.ExecuteCommand(ctx, dependency.CommandRequest{Command: "whisper-cli", Args: []string{"--help"}}); err != nil {
		return false, fmt.Errorf("whisper-cli check failed: %w", err)
	}
	return true, nil
}

func (l *LocalWhisperImpl) Name() string {
	return "local-whisper"
}
