package httpcall

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for storage_call_total.
const (
	outcomeSuccess         = "success"
	outcomeNotFound        = "not_found"
	outcomeRequestError    = "request_error"
	outcomeConversionError = "conversion_error"
	outcomeTransportError  = "transport_error"
	outcomeCanceled        = "canceled"
)

type callMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// newCallMetrics registers the call collectors with reg. Collectors already
// registered by another factory on the same registry are reused.
func newCallMetrics(reg prometheus.Registerer) (*callMetrics, error) {
	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_call_total",
			Help: "Total number of storage calls by name and outcome.",
		},
		[]string{"name", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_call_duration_seconds",
			Help:    "Storage call duration in seconds, including body conversion.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name"},
	)

	var err error
	if calls, err = register(reg, calls); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &callMetrics{calls: calls, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// observe records one finished execution. Safe on a nil receiver.
func (m *callMetrics) observe(name string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(name, outcome(err)).Inc()
	m.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	var conv *ConversionError
	switch {
	case err == nil:
		return outcomeSuccess
	case IsNotFound(err):
		return outcomeNotFound
	case IsRequestError(err):
		return outcomeRequestError
	case errors.As(err, &conv):
		return outcomeConversionError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	default:
		return outcomeTransportError
	}
}
