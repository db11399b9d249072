package metrics

import (
	"strconv"
	"time"

	"voicebridge/handlers/turn"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice bridge.
// It implements turn.Recorder.
type Metrics struct {
	// Turn metrics
	Turns        *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec

	// Stage metrics
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec

	// Conversation store
	Sessions prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

var _ turn.Recorder = (*Metrics)(nil)

// NewMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on promhttp.Handler().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_turns_total",
			Help: "Total number of turns by final status",
		}, []string{"status"}),
		TurnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicebridge_turn_duration_seconds",
			Help:    "Wall time of a whole turn",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
		}, []string{"status"}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicebridge_stage_duration_seconds",
			Help:    "Duration of provider calls per stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"stage", "service"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_stage_failures_total",
			Help: "Total number of failed provider calls per stage",
		}, []string{"stage", "service"}),

		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicebridge_sessions",
			Help: "Current number of sessions held in memory",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicebridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// ObserveStage records one provider call.
func (m *Metrics) ObserveStage(stage turn.Stage, service string, elapsed time.Duration, err error) {
	m.StageDuration.WithLabelValues(string(stage), service).Observe(elapsed.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(string(stage), service).Inc()
	}
}

// ObserveTurn records a finished turn.
func (m *Metrics) ObserveTurn(status turn.Status, elapsed time.Duration) {
	m.Turns.WithLabelValues(string(status)).Inc()
	m.TurnDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

// SetSessions sets the current session count
func (m *Metrics) SetSessions(count int) {
	m.Sessions.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	if statusCode >= 400 {
		errorType := "client_error"
		if statusCode >= 500 {
			errorType = "server_error"
		}
		m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
	}
}
