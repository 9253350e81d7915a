package httpclient

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the exchange identifier to the backend.
const RequestIDHeader = "X-Request-ID"

// namingTransport gives each exchange an identity: the operation name from the
// request context and an exchange ID. It owns the exchange log lifecycle.
type namingTransport struct {
	next      http.RoundTripper
	listeners []ExchangeListener
}

// Naming returns the stage that names each exchange.
//
// Behavior:
//   - Attaches an ExchangeLog to the request context if the caller did not
//   - Uses X-Request-ID from the request, or generates a UUID v4 and sets it
//   - Records the operation name (see WithOperationName), method and URL
//   - Completes the log and notifies listeners once the exchange finishes
func Naming(listeners ...ExchangeListener) Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		return &namingTransport{next: next, listeners: listeners}
	}
}

// RoundTrip implements http.RoundTripper.
func (t *namingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, log := ensureExchangeLog(req.Context())

	id := req.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	log.start(id, OperationNameFromContext(ctx), req.Method, req.URL.String())

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(ctx)
	out.Header.Set(RequestIDHeader, id)

	start := time.Now()
	resp, err := t.next.RoundTrip(out)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	log.complete(statusCode, time.Since(start), err)

	for _, l := range t.listeners {
		l(log)
	}

	return resp, err
}
