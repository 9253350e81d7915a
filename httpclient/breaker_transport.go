package httpclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

type circuitBreakerTransport struct {
	breaker    CircuitBreaker
	next       http.RoundTripper
	classifier BreakerClassifier
	metrics    *metrics
	name       string
}

// errSyntheticFailure tells the breaker that a response (e.g. 503) is a
// failure even though RoundTrip returned no error. It never reaches callers.
var errSyntheticFailure = errors.New("synthetic failure")

// ignoredError carries an error the classifier does not count against the
// breaker (e.g. caller cancellation) through Execute.
type ignoredError struct{ err error }

func (e *ignoredError) Error() string { return e.err.Error() }
func (e *ignoredError) Unwrap() error { return e.err }

// RoundTrip implements http.RoundTripper.
func (t *circuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	res, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req) //nolint:bodyclose
		if t.classifier(resp, err) {
			if err != nil {
				return resp, err
			}
			return resp, errSyntheticFailure
		}
		if err != nil {
			return nil, &ignoredError{err: err}
		}
		return resp, nil
	})

	var ignored *ignoredError
	if errors.As(err, &ignored) {
		return nil, ignored.err
	}

	switch {
	case err == nil:
		t.metrics.recordBreakerRequest(ctx, t.name, "success")
	case IsBreakerOpen(err):
		t.metrics.recordBreakerRequest(ctx, t.name, "rejected")
		return nil, err
	default:
		t.metrics.recordBreakerRequest(ctx, t.name, "failure")
		if !errors.Is(err, errSyntheticFailure) {
			return nil, err
		}
	}

	if resp, ok := res.(*http.Response); ok {
		return resp, nil
	}
	return nil, errors.New("circuit breaker returned unknown response type")
}

// newCircuitBreakerTransport builds the breaker named after the service.
func newCircuitBreakerTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.BreakerConfig == nil {
		return next
	}
	bc := *cfg.BreakerConfig
	if bc.Classifier == nil {
		bc.Classifier = DefaultBreakerClassifier
	}

	name := cfg.ServiceName
	if name == "" {
		name = "default-http-client"
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		IsSuccessful: func(err error) bool {
			var ignored *ignoredError
			return err == nil || errors.As(err, &ignored)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if bc.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= bc.ConsecutiveFailures {
				return true
			}
			if counts.Requests < bc.FailureThreshold || bc.FailureRatio <= 0 || counts.TotalFailures == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.Metrics.recordBreakerState(context.Background(), name, int64(to))
			cfg.Logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if bc.OnStateChange != nil {
				bc.OnStateChange(name, from, to)
			}
		},
	}

	var cb CircuitBreaker = gobreaker.NewCircuitBreaker[interface{}](st)
	if bc.Store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[interface{}](bc.Store, st)
		if err != nil {
			// Keep process-level protection when the shared store is unusable.
			cfg.Logger.Error().Err(err).Str("breaker", name).
				Msg("distributed circuit breaker unavailable, using local breaker")
		} else {
			cb = dcb
		}
	}

	return &circuitBreakerTransport{
		breaker:    cb,
		next:       next,
		classifier: bc.Classifier,
		metrics:    cfg.Metrics,
		name:       name,
	}
}
