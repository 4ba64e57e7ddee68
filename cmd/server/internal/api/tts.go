package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/metrics"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/tts"
)

// Synthesizer is implemented by tts.Service.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.Request) (*tts.Result, error)
}

// HandleKokoroSynthesize 使用 Kokoro 合成语音并生成字幕旁路文件
// POST /tts/kokoro/synthesize
func HandleKokoroSynthesize(s Synthesizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s == nil {
			unavailable(c, "tts service not initialized")
			return
		}
		var req tts.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
		res, err := s.Synthesize(c.Request.Context(), req)
		if err != nil {
			metrics.RecordJob("tts", false)
			respondError(c, "tts", err)
			return
		}
		metrics.RecordJob("tts", true)
		c.JSON(http.StatusOK, res)
	}
}

// HandleKokoroVoices 列出可用音色
// GET /tts/kokoro/voices?locale=en-us
func HandleKokoroVoices() gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := c.Query("locale")
		voices := tts.Voices(locale)
		if voices == nil {
			voices = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"locale": locale, "voices": voices})
	}
}
