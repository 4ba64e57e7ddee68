package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRecordJob(t *testing.T) {
	MediaJobsTotal.Reset()
	RecordJob("caption", true)
	RecordJob("caption", true)
	RecordJob("caption", false)

	assert.Equal(t, 2.0, counterValue(t, MediaJobsTotal.WithLabelValues("caption", "success")))
	assert.Equal(t, 1.0, counterValue(t, MediaJobsTotal.WithLabelValues("caption", "error")))
}

func TestRecordErrorAndSegments(t *testing.T) {
	MediaErrorsTotal.Reset()
	CaptionSegmentsTotal.Reset()

	RecordError("video", "FFMPEG_FAILED")
	RecordSegments("words", 12)
	RecordSegments("words", 3)

	assert.Equal(t, 1.0, counterValue(t, MediaErrorsTotal.WithLabelValues("video", "FFMPEG_FAILED")))
	assert.Equal(t, 15.0, counterValue(t, CaptionSegmentsTotal.WithLabelValues("words")))
}

func TestSetEnvironmentReady(t *testing.T) {
	m := &dto.Metric{}
	SetEnvironmentReady(true)
	require.NoError(t, EnvironmentReady.Write(m))
	assert.Equal(t, 1.0, m.GetGauge().GetValue())

	SetEnvironmentReady(false)
	require.NoError(t, EnvironmentReady.Write(m))
	assert.Equal(t, 0.0, m.GetGauge().GetValue())
}

func TestRecordDuration(t *testing.T) {
	ProcessingDuration.Reset()
	RecordDuration("stt", 1.5)
	RecordDuration("stt", 0.5)

	m := &dto.Metric{}
	h, ok := ProcessingDuration.WithLabelValues("stt").(prometheus.Histogram)
	require.True(t, ok)
	require.NoError(t, h.Write(m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	assert.Equal(t, 2.0, m.GetHistogram().GetSampleSum())
}
