package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// MetricsObserver exports attempt counters and latencies to prometheus
type MetricsObserver struct {
	attempts    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	transitions *prometheus.CounterVec
}

// NewMetricsObserver creates the collectors and registers them with reg
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	o := &MetricsObserver{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authenticity_validator",
			Name:      "attempts_total",
			Help:      "Completed validation attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authenticity_validator",
			Name:      "attempt_duration_seconds",
			Help:      "Time spent waiting for the validation service.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "authenticity_validator",
			Name:      "submissions_in_flight",
			Help:      "Submissions currently waiting for the validation service.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authenticity_validator",
			Name:      "state_transitions_total",
			Help:      "Interaction state transitions by target phase.",
		}, []string{"to"}),
	}

	for _, c := range []prometheus.Collector{o.attempts, o.duration, o.inFlight, o.transitions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnStateChange updates the collectors
func (o *MetricsObserver) OnStateChange(ctx context.Context, change StateChange) {
	o.transitions.WithLabelValues(change.To.String()).Inc()

	if change.To == models.PhaseSubmitting && change.From != models.PhaseSubmitting {
		o.inFlight.Inc()
	}
	if change.From == models.PhaseSubmitting && change.To != models.PhaseSubmitting {
		o.inFlight.Dec()
	}

	if change.Attempt != nil {
		o.attempts.WithLabelValues(change.Attempt.Outcome).Inc()
		// Local failures never reach the service
		if change.Attempt.FileName != "" {
			o.duration.WithLabelValues(change.Attempt.Outcome).Observe(change.Attempt.Duration.Seconds())
		}
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
