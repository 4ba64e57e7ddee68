package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/metrics"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/whisper"
	"github.com/aiagentsaz/mediaflow/pkg/logger"
)

// Transcriber is implemented by the degradation controller and by every
// whisper backend.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, options *whisper.TranscribeOptions) (*whisper.TranscriptionResult, error)
}

// DurationProber measures media length; dependency.DependencyClient
// implements it.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// TranscribeRequest is the body of POST /stt/transcribe.
type TranscribeRequest struct {
	AudioPath string `json:"audio_path" binding:"required"`
	Language  string `json:"language"`
	BeamSize  int    `json:"beam_size"`
	Prompt    string `json:"prompt"`
}

// TranscribeResponse carries word-level captions.
type TranscribeResponse struct {
	Duration float64         `json:"duration"`
	Language string          `json:"language,omitempty"`
	Captions []caption.Token `json:"captions"`
}

// HandleTranscribe 语音识别，返回词级时间戳
// POST /stt/transcribe
func HandleTranscribe(t Transcriber, prober DurationProber) gin.HandlerFunc {
	return func(c *gin.Context) {
		if t == nil {
			unavailable(c, "transcriber not initialized")
			return
		}
		req := TranscribeRequest{BeamSize: 5}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
		if req.BeamSize < 1 || req.BeamSize > 10 {
			badRequest(c, "beam_size must be between 1 and 10")
			return
		}
		audio, err := filepath.Abs(req.AudioPath)
		if err != nil || !fileExists(audio) {
			respondError(c, "stt", orchestrator.NewNotFoundError(req.AudioPath))
			return
		}

		start := time.Now()
		result, err := t.Transcribe(c.Request.Context(), audio, &whisper.TranscribeOptions{
			Language: req.Language,
			BeamSize: req.BeamSize,
			Prompt:   req.Prompt,
		})
		if err != nil {
			respondError(c, "stt", err)
			return
		}
		captions := result.Captions()
		if captions == nil {
			captions = []caption.Token{}
		}

		duration := result.Duration
		if duration <= 0 && prober != nil {
			if d, perr := prober.ProbeDuration(c.Request.Context(), audio); perr == nil {
				duration = d
			}
		}
		if duration <= 0 && len(captions) > 0 {
			duration = captions[len(captions)-1].End
		}

		elapsed := time.Since(start)
		metrics.RecordJob("stt", true)
		metrics.RecordDuration("stt", elapsed.Seconds())
		logger.LogMediaStage(c.Request.Context(), logger.OrDefault(), "stt", "success", filepath.Base(audio), elapsed.Milliseconds(), "")
		c.JSON(http.StatusOK, TranscribeResponse{Duration: duration, Language: result.Language, Captions: captions})
	}
}
