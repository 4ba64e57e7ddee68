package orchestrator

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode 表示媒体处理错误类型代码
type ErrorCode string

const (
	// INVALID_INPUT 请求参数非法（缺少字段、取值越界、格式错误）
	INVALID_INPUT ErrorCode = "INVALID_INPUT"

	// NOT_FOUND 输入文件或资源不存在
	NOT_FOUND ErrorCode = "NOT_FOUND"

	// OUTSIDE_OUTPUT_ROOT 路径位于输出目录之外
	OUTSIDE_OUTPUT_ROOT ErrorCode = "OUTSIDE_OUTPUT_ROOT"

	// ENV_NOT_READY 环境未就绪（引擎未启动、浏览器未连接等）
	ENV_NOT_READY ErrorCode = "ENV_NOT_READY"

	// WHISPER_UNAVAILABLE Whisper 服务不可用（网络错误、服务未启动）
	WHISPER_UNAVAILABLE ErrorCode = "WHISPER_UNAVAILABLE"

	// WHISPER_HTTP_ERROR Whisper HTTP API 错误（非 200 响应）
	WHISPER_HTTP_ERROR ErrorCode = "WHISPER_HTTP_ERROR"

	// WHISPER_CLI_ERROR Whisper CLI 命令执行错误
	WHISPER_CLI_ERROR ErrorCode = "WHISPER_CLI_ERROR"

	// TTS_FAILED Kokoro 语音合成失败
	TTS_FAILED ErrorCode = "TTS_FAILED"

	// FFMPEG_FAILED FFmpeg/FFprobe 执行失败
	FFMPEG_FAILED ErrorCode = "FFMPEG_FAILED"

	// BROWSER_FAILED 图片生成浏览器自动化失败
	BROWSER_FAILED ErrorCode = "BROWSER_FAILED"

	// DISK_FULL 磁盘空间不足
	DISK_FULL ErrorCode = "DISK_FULL"
)

// HTTPStatus 返回错误码对应的 HTTP 状态码
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case INVALID_INPUT:
		return http.StatusBadRequest
	case NOT_FOUND:
		return http.StatusNotFound
	case OUTSIDE_OUTPUT_ROOT:
		return http.StatusForbidden
	case ENV_NOT_READY, WHISPER_UNAVAILABLE:
		return http.StatusServiceUnavailable
	case WHISPER_HTTP_ERROR, TTS_FAILED, BROWSER_FAILED:
		return http.StatusBadGateway
	case DISK_FULL:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

// OrchError 表示媒体处理链路上的错误
type OrchError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error 实现 error 接口
func (e *OrchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现错误链支持
func (e *OrchError) Unwrap() error {
	return e.Cause
}

// NewOrchError 创建新的错误
func NewOrchError(code ErrorCode, message string, cause error) *OrchError {
	return &OrchError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// CodeOf 提取错误链中的 ErrorCode，非 OrchError 返回空字符串
func CodeOf(err error) ErrorCode {
	var oe *OrchError
	if errors.As(err, &oe) {
		return oe.Code
	}
	return ""
}

// NewInvalidInputError 创建参数错误
func NewInvalidInputError(message string, cause error) *OrchError {
	return NewOrchError(INVALID_INPUT, message, cause)
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(path string) *OrchError {
	return NewOrchError(NOT_FOUND, fmt.Sprintf("文件不存在: %s", path), nil)
}

// NewOutsideRootError 创建越界路径错误
func NewOutsideRootError(path string) *OrchError {
	return NewOrchError(OUTSIDE_OUTPUT_ROOT, fmt.Sprintf("路径不在输出目录内: %s", path), nil)
}

// NewEnvNotReadyError 创建环境未就绪错误
func NewEnvNotReadyError(message string) *OrchError {
	return NewOrchError(ENV_NOT_READY, message, nil)
}

// NewWhisperUnavailableError 创建 Whisper 服务不可用错误
func NewWhisperUnavailableError(cause error) *OrchError {
	return NewOrchError(WHISPER_UNAVAILABLE, "Whisper 服务不可达", cause)
}

// NewWhisperHTTPError 创建 Whisper HTTP 错误
func NewWhisperHTTPError(statusCode int, body string) *OrchError {
	msg := fmt.Sprintf("Whisper API 返回错误 HTTP %d: %s", statusCode, body)
	return NewOrchError(WHISPER_HTTP_ERROR, msg, nil)
}

// NewWhisperCLIError 创建 Whisper CLI 错误
func NewWhisperCLIError(cause error) *OrchError {
	return NewOrchError(WHISPER_CLI_ERROR, "Whisper CLI 执行失败", cause)
}

// NewTTSError 创建语音合成错误
func NewTTSError(cause error) *OrchError {
	return NewOrchError(TTS_FAILED, "Kokoro 语音合成失败", cause)
}

// NewFFmpegError 创建 FFmpeg 错误
func NewFFmpegError(cause error) *OrchError {
	return NewOrchError(FFMPEG_FAILED, "FFmpeg 执行失败", cause)
}

// NewBrowserError 创建浏览器自动化错误
func NewBrowserError(cause error) *OrchError {
	return NewOrchError(BROWSER_FAILED, "图片生成浏览器操作失败", cause)
}

// NewDiskFullError 创建磁盘空间不足错误
func NewDiskFullError(path string) *OrchError {
	msg := fmt.Sprintf("磁盘空间不足: %s", path)
	return NewOrchError(DISK_FULL, msg, nil)
}
