// Package metrics provides Prometheus metrics for the external media tool
// executors (ffmpeg, ffprobe, whisper-cli). Shared by the server and
// deps-service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// commandExecutionTotal counts executions by command, mode (local/remote)
	// and status (success/failed/timeout/rejected).
	commandExecutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediaflow",
			Name:      "dependency_command_executions_total",
			Help:      "Total number of dependency command executions",
		},
		[]string{"command", "mode", "status"},
	)

	// commandExecutionDuration observes wall time. Renders can run for
	// minutes, so the buckets reach 15m.
	commandExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediaflow",
			Name:      "dependency_command_duration_seconds",
			Help:      "Duration of dependency command executions in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"command", "mode"},
	)

	// degradationEventsTotal counts executor mode switches, e.g. remote -> local.
	degradationEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediaflow",
			Name:      "dependency_degradation_events_total",
			Help:      "Total number of execution mode degradation events",
		},
		[]string{"from_mode", "to_mode"},
	)

	// commandsInFlight tracks running commands in deps-service.
	commandsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mediaflow",
			Name:      "dependency_commands_in_flight",
			Help:      "Number of dependency commands currently running",
		},
	)
)

func init() {
	prometheus.MustRegister(commandExecutionTotal, commandExecutionDuration, degradationEventsTotal, commandsInFlight)
}

// RecordCommandExecution records one execution result.
func RecordCommandExecution(command, mode, status string) {
	commandExecutionTotal.WithLabelValues(command, mode, status).Inc()
}

// RecordCommandDuration records how long a command ran.
func RecordCommandDuration(command, mode string, durationSeconds float64) {
	commandExecutionDuration.WithLabelValues(command, mode).Observe(durationSeconds)
}

// RecordDegradationEvent records a switch between execution modes.
func RecordDegradationEvent(fromMode, toMode string) {
	degradationEventsTotal.WithLabelValues(fromMode, toMode).Inc()
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func TrackInFlight() func() {
	commandsInFlight.Inc()
	return commandsInFlight.Dec
}
