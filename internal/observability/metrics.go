package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coverage_gateway_active_sessions",
		Help: "Number of live client connections",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coverage_gateway_sessions_total",
		Help: "Total number of sessions handled",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_gateway_session_duration_seconds",
		Help:    "Duration of client sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	// Audio metrics
	audioBytesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coverage_gateway_audio_bytes_total",
		Help: "Total audio bytes ingested from clients",
	})

	utterancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_gateway_utterances_total",
		Help: "Closed utterance buffers by outcome",
	}, []string{"outcome"}) // outcome: "finalized", "discarded", or "failed"

	// Transcription metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_gateway_transcription_requests_total",
		Help: "Total number of transcription engine invocations",
	}, []string{"status"})

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_gateway_transcription_latency_seconds",
		Help:    "Transcription engine latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	transcriptsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_gateway_transcripts_rejected_total",
		Help: "Transcripts dropped before dispatch by reason",
	}, []string{"reason"}) // reason: "empty", "no_letters", "hallucination"

	// Inference metrics
	inferenceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_gateway_inference_requests_total",
		Help: "Total number of topic-completion inference invocations",
	}, []string{"status"})

	inferenceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "coverage_gateway_inference_latency_seconds",
		Help:    "Topic-completion inference latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coverage_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// RecordSessionStart records a new client connection
func RecordSessionStart() {
	activeSessions.Inc()
	totalSessions.Inc()
}

// RecordSessionEnd records a closed connection and its lifetime
func RecordSessionEnd(duration time.Duration) {
	activeSessions.Dec()
	sessionDuration.Observe(duration.Seconds())
}

// RecordAudioBytes records ingested audio volume
func RecordAudioBytes(n int) {
	audioBytesIngested.Add(float64(n))
}

// RecordUtterance records a closed utterance buffer by outcome
func RecordUtterance(outcome string) {
	utterancesTotal.WithLabelValues(outcome).Inc()
}

// RecordTranscription records one transcription engine call
func RecordTranscription(success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	transcriptionRequests.WithLabelValues(status).Inc()
	transcriptionLatency.Observe(latency.Seconds())
}

// RecordTranscriptRejected records a transcript dropped by the filter rules
func RecordTranscriptRejected(reason string) {
	transcriptsRejected.WithLabelValues(reason).Inc()
}

// RecordInference records one topic-completion inference call
func RecordInference(success bool, latency time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	inferenceRequests.WithLabelValues(status).Inc()
	inferenceLatency.Observe(latency.Seconds())
}

// RecordError records an error by type and component
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
