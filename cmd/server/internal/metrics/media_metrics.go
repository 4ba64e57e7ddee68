package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MediaJobsTotal 媒体处理任务总数计数器
	// Labels: component (caption/tts/stt/video/slideshow/imagegen), status (success/error)
	MediaJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaflow_jobs_total",
			Help: "Total number of media jobs processed by component",
		},
		[]string{"component", "status"},
	)

	// MediaErrorsTotal 媒体处理错误总数计数器
	// Labels: component, error_code (INVALID_INPUT/FFMPEG_FAILED/TTS_FAILED/...)
	MediaErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaflow_errors_total",
			Help: "Total number of media processing errors by component and error code",
		},
		[]string{"component", "error_code"},
	)

	// EnvironmentReady 环境就绪状态量规（0=未就绪，1=就绪）
	EnvironmentReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediaflow_environment_ready",
			Help: "Environment readiness status (0=not ready, 1=ready)",
		},
	)

	// ProcessingDuration 媒体处理耗时直方图（秒）
	// Labels: component
	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaflow_processing_duration_seconds",
			Help:    "Media processing duration in seconds by component",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 900},
		},
		[]string{"component"},
	)

	// CaptionSegmentsTotal 字幕分段产生的片段数
	// Labels: mode (words/sentences)
	CaptionSegmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaflow_caption_segments_total",
			Help: "Total number of caption segments produced by segmentation mode",
		},
		[]string{"mode"},
	)
)

// RecordJob 记录一次媒体任务完成
func RecordJob(component string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	MediaJobsTotal.WithLabelValues(component, status).Inc()
}

// RecordError 记录媒体处理错误
func RecordError(component, errorCode string) {
	MediaErrorsTotal.WithLabelValues(component, errorCode).Inc()
}

// SetEnvironmentReady 设置环境就绪状态
func SetEnvironmentReady(ready bool) {
	if ready {
		EnvironmentReady.Set(1)
	} else {
		EnvironmentReady.Set(0)
	}
}

// RecordDuration 记录媒体处理耗时（秒）
func RecordDuration(component string, durationSeconds float64) {
	ProcessingDuration.WithLabelValues(component).Observe(durationSeconds)
}

// RecordSegments 记录字幕分段数量
func RecordSegments(mode string, n int) {
	CaptionSegmentsTotal.WithLabelValues(mode).Add(float64(n))
}
