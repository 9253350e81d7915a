package httpclient

import "net/http"

// Decorator wraps an http.RoundTripper with a single concern.
//
// Decorators are composed by Chain into an explicit, ordered pipeline rather
// than by nesting transports by hand. Each decorator must forward status
// codes, headers and body bytes unchanged unless altering them is its purpose.
type Decorator func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts an ordinary function to http.RoundTripper.
type RoundTripperFunc func(req *http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain composes decorators around base. The first decorator is the outermost
// stage and sees the request first; nil decorators are skipped.
//
// Example:
//
//	rt := httpclient.Chain(http.DefaultTransport,
//	    httpclient.Naming(),         // 1st: identity + exchange log
//	    httpclient.ContentCapture(), // 2nd: body aggregation
//	)
func Chain(base http.RoundTripper, decorators ...Decorator) http.RoundTripper {
	rt := base
	for i := len(decorators) - 1; i >= 0; i-- {
		if decorators[i] == nil {
			continue
		}
		rt = decorators[i](rt)
	}
	return rt
}

// pipeline returns the client's stages in order, outermost first:
// naming → logging → content-capture → user decorators → interceptors →
// rate limit → circuit breaker → instrumentation.
//
// Logging sits outside content capture so that, by the time it logs, the
// inner stage has already recorded both bodies into the exchange log.
func (cfg *internalConfig) pipeline() []Decorator {
	stages := []Decorator{Naming(cfg.ExchangeListeners...)}

	if cfg.LoggingLevel > LoggingNone {
		stages = append(stages, Logging(cfg.Logger, cfg.LoggingLevel))
	}

	if cfg.ContentCapture || cfg.LoggingLevel >= LoggingBody {
		stages = append(stages, ContentCapture())
	}

	stages = append(stages, cfg.Decorators...)

	if len(cfg.Interceptors) > 0 {
		stages = append(stages, Interceptors(cfg.Interceptors...))
	}

	if cfg.RateLimit != nil {
		rl := *cfg.RateLimit
		stages = append(stages, func(next http.RoundTripper) http.RoundTripper {
			return newRateLimitTransport(next, rl)
		})
	}

	if cfg.BreakerConfig != nil {
		stages = append(stages, func(next http.RoundTripper) http.RoundTripper {
			return newCircuitBreakerTransport(next, cfg)
		})
	}

	stages = append(stages, func(next http.RoundTripper) http.RoundTripper {
		return newOtelTransport(next, cfg)
	})

	return stages
}
