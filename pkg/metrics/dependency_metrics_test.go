package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordCommandExecution(t *testing.T) {
	tests := []struct {
		name    string
		command string
		mode    string
		status  string
		times   int
	}{
		{"local success", "ffmpeg", "local", "success", 2},
		{"remote failure", "ffprobe", "remote", "failed", 1},
		{"whisper timeout", "whisper-cli", "local", "timeout", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commandExecutionTotal.Reset()
			for i := 0; i < tt.times; i++ {
				RecordCommandExecution(tt.command, tt.mode, tt.status)
			}

			metric := &dto.Metric{}
			if err := commandExecutionTotal.WithLabelValues(tt.command, tt.mode, tt.status).Write(metric); err != nil {
				t.Fatalf("write metric: %v", err)
			}
			if got := metric.GetCounter().GetValue(); got != float64(tt.times) {
				t.Errorf("expected %d, got %f", tt.times, got)
			}
		})
	}
}

func TestRecordCommandDuration(t *testing.T) {
	commandExecutionDuration.Reset()
	RecordCommandDuration("ffmpeg", "local", 1.5)
	RecordCommandDuration("ffmpeg", "local", 120)

	h, ok := commandExecutionDuration.WithLabelValues("ffmpeg", "local").(prometheus.Histogram)
	if !ok {
		t.Fatal("expected histogram")
	}
	metric := &dto.Metric{}
	if err := h.Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.GetHistogram().GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.GetHistogram().GetSampleCount())
	}
	if metric.GetHistogram().GetSampleSum() != 121.5 {
		t.Errorf("expected sum 121.5, got %f", metric.GetHistogram().GetSampleSum())
	}
}

func TestRecordDegradationEvent(t *testing.T) {
	degradationEventsTotal.Reset()
	RecordDegradationEvent("remote", "local")

	metric := &dto.Metric{}
	if err := degradationEventsTotal.WithLabelValues("remote", "local").Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if metric.GetCounter().GetValue() != 1 {
		t.Errorf("expected 1, got %f", metric.GetCounter().GetValue())
	}
}

func TestTrackInFlight(t *testing.T) {
	read := func() float64 {
		m := &dto.Metric{}
		if err := commandsInFlight.Write(m); err != nil {
			t.Fatalf("write metric: %v", err)
		}
		return m.GetGauge().GetValue()
	}

	base := read()
	done1 := TrackInFlight()
	done2 := TrackInFlight()
	if read() != base+2 {
		t.Fatalf("expected %f in flight", base+2)
	}
	done1()
	done2()
	if read() != base {
		t.Fatalf("expected gauge back at %f", base)
	}
}
