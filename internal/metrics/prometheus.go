package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway request outcomes
const (
	OutcomeHit         = "hit"
	OutcomeStale       = "stale"
	OutcomeNetwork     = "network"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Recorder records footcast metrics with Prometheus. A nil *Recorder is a no-op.
type Recorder struct {
	gatewayRequests *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	callDuration    *prometheus.HistogramVec
	verifications   *prometheus.CounterVec
	forecasts       *prometheus.CounterVec
}

// New creates a recorder registered against reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatewayRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footcast_gateway_requests_total",
				Help: "Gateway requests by action and how they were served",
			},
			[]string{"action", "outcome"},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "footcast_gateway_queue_depth",
				Help: "Requests waiting for the provider",
			},
		),
		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "footcast_gateway_call_duration_seconds",
				Help:    "Duration of provider calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footcast_verification_total",
				Help: "Reconciliation outcomes per forecast",
			},
			[]string{"outcome"},
		),
		forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "footcast_forecasts_total",
				Help: "Forecasts produced",
			},
			[]string{"ai_enhanced"},
		),
	}
}

// RecordGatewayRequest counts a served gateway request
func (r *Recorder) RecordGatewayRequest(action, outcome string) {
	if r == nil {
		return
	}
	r.gatewayRequests.WithLabelValues(action, outcome).Inc()
}

// SetQueueDepth records the current gateway queue length
func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

// RecordCallDuration records a provider call latency in seconds
func (r *Recorder) RecordCallDuration(action string, seconds float64) {
	if r == nil {
		return
	}
	r.callDuration.WithLabelValues(action).Observe(seconds)
}

// RecordVerification counts a reconciliation outcome (verified, not_found, skipped, error)
func (r *Recorder) RecordVerification(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.verifications.WithLabelValues(outcome).Add(float64(n))
}

// RecordForecast counts a produced forecast
func (r *Recorder) RecordForecast(aiEnhanced bool) {
	if r == nil {
		return
	}
	label := "false"
	if aiEnhanced {
		label = "true"
	}
	r.forecasts.WithLabelValues(label).Inc()
}
