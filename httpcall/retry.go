package httpcall

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

// DefaultRetryTries is the attempt limit used by Retry unless overridden with
// backoff.WithMaxTries.
const DefaultRetryTries = 3

// Retry runs call until it succeeds, fails permanently, or the attempts are
// exhausted. Every attempt executes a fresh Clone; call itself is used only
// as a template and is never executed, so it can be retried again later.
//
// Defaults are an exponential backoff and DefaultRetryTries attempts; opts
// are applied after the defaults and override them. Errors are classified
// with IsRetryable. Retry notifications are logged with the logger carried by
// ctx (see zerolog.Ctx).
//
// Example:
//
//	health := httpcall.NewCall(factory, httpcall.Get("/_cluster/health"),
//	    httpcall.Field("status"), "health")
//	status, err := httpcall.Retry(ctx, health,
//	    backoff.WithMaxTries(10),
//	    backoff.WithMaxElapsedTime(30*time.Second),
//	)
func Retry[T any](ctx context.Context, call Call[T], opts ...backoff.RetryOption) (T, error) {
	logger := zerolog.Ctx(ctx)
	attempt := 0

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(DefaultRetryTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug().
				Err(err).
				Str("call", call.Name()).
				Int("attempt", attempt).
				Dur("next", next).
				Msg("retrying call")
		}),
	}
	retryOpts = append(retryOpts, opts...)

	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		value, err := call.Clone().Execute(ctx)
		if err != nil && !IsRetryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}, retryOpts...)
}

// IsRetryable reports whether another attempt of a failed call may succeed:
// transport failures, 5xx and 429 responses, client-side rate limiting and an
// open circuit breaker. Not-found, other 4xx, conversion failures, state
// errors and context cancellation are permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrAlreadyExecuted) || IsNotFound(err) {
		return false
	}
	var conv *ConversionError
	if errors.As(err, &conv) {
		return false
	}
	if errors.Is(err, httpclient.ErrRateLimited) || httpclient.IsBreakerOpen(err) {
		return true
	}
	if IsRequestError(err) {
		code := StatusCode(err)
		return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
	}
	return true
}
