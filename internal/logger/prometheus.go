package logger

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// StatementsMetric is the name of the log statement counter.
const StatementsMetric = "confetti_log_statements_total"

// PrometheusHook counts log statements per level.
type PrometheusHook struct {
	counter *prometheus.CounterVec
}

// Run implements zerolog.Hook run method.
func (h *PrometheusHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level != zerolog.NoLevel {
		h.counter.WithLabelValues(level.String()).Inc()
	}
}

// NewPrometheusHook registers the log statement counter of service with reg.
// A counter registered by an earlier Init is reused, so the logger can be
// reconfigured at runtime without losing counts.
func NewPrometheusHook(reg prometheus.Registerer, service string) (*PrometheusHook, error) {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        StatementsMetric,
			Help:        "Number of log statements of the settings service, differentiated by log level.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"level"},
	)

	if err := reg.Register(counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, errors.Wrap(err, "register log statement counter")
		}

		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, errors.Wrap(err, "log statement counter has a foreign type")
		}

		counter = existing
	}

	return &PrometheusHook{counter: counter}, nil
}
