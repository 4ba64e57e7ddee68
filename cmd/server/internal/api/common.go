package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/imagegen"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/jobs"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/metrics"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/n8n"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/tts"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify 将错误映射为错误码与 HTTP 状态码
func classify(err error) (orchestrator.ErrorCode, int) {
	var oe *orchestrator.OrchError
	switch {
	case errors.As(err, &oe):
		return oe.Code, oe.Code.HTTPStatus()
	case errors.Is(err, dependency.ErrOutsideRoot):
		return orchestrator.OUTSIDE_OUTPUT_ROOT, http.StatusForbidden
	case errors.Is(err, os.ErrNotExist), errors.Is(err, jobs.ErrNotFound):
		return orchestrator.NOT_FOUND, http.StatusNotFound
	case errors.Is(err, caption.ErrInvalidOptions),
		errors.Is(err, caption.ErrInvalidToken),
		errors.Is(err, caption.ErrInvalidVTT),
		errors.Is(err, n8n.ErrInvalidEPUB),
		errors.Is(err, tts.ErrEmptyText),
		errors.Is(err, tts.ErrInvalidVoice):
		return orchestrator.INVALID_INPUT, http.StatusBadRequest
	case errors.Is(err, dependency.ErrCommandFailed):
		return orchestrator.FFMPEG_FAILED, http.StatusInternalServerError
	case errors.Is(err, imagegen.ErrNotStarted), errors.Is(err, imagegen.ErrProfileLocked):
		return orchestrator.ENV_NOT_READY, http.StatusServiceUnavailable
	default:
		return "INTERNAL", http.StatusInternalServerError
	}
}

// respondError 写入错误响应并记录错误指标
// component 用于指标标签（caption/tts/stt/video/imagegen/n8n）
func respondError(c *gin.Context, component string, err error) {
	code, status := classify(err)
	metrics.RecordError(component, string(code))
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: string(code)})
}

// badRequest 返回 400 响应
func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: string(orchestrator.INVALID_INPUT)})
}

// unavailable 返回 503 响应
func unavailable(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: message, Code: string(orchestrator.ENV_NOT_READY)})
}
