// Package httpcall provides single-shot, typed calls against an HTTP storage
// backend.
//
// A Call wraps one request, a BodyConverter and a display name. It runs at
// most once, either synchronously:
//
//	version, err := httpcall.NewCall(factory, httpcall.Get("/"),
//	    httpcall.Field("version.number"), "get-version").Execute(ctx)
//
// or asynchronously, with the outcome delivered to a Callback on the
// factory's Dispatcher:
//
//	err := call.Enqueue(ctx, httpcall.NewCallback(
//	    func(v string) { log.Info().Str("version", v).Msg("connected") },
//	    func(err error) { log.Error().Err(err).Msg("version check failed") },
//	))
//
// A second Execute or Enqueue on the same call returns ErrAlreadyExecuted.
// To run the operation again, Clone the call; Retry does exactly that per
// attempt.
//
// # Errors
//
// Responses with status >= 400 are classified before the converter runs:
//
//   - 404: *NotFoundError, whose message is the request path
//   - other: *RequestError, whose message is the body's top-level "message"
//     field (any letter case), or "response for <path> failed: <body>"
//
// Converter failures are wrapped in *ConversionError. Empty bodies skip the
// converter and yield the zero value.
//
// Fatal faults in a converter (runtime errors, *FatalError, panics with a
// non-error value) are not routed to Callback.OnError or returned from
// Execute. They are logged and re-panicked on the goroutine running the
// conversion.
package httpcall
