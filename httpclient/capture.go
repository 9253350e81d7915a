package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// contentCaptureTransport records raw request and response bodies into the
// exchange log. It is purely an observability side channel: callers see the
// same status, headers and body bytes they would without it.
type contentCaptureTransport struct {
	next http.RoundTripper
}

// ContentCapture returns the stage that records request/response bodies.
//
// Streaming bodies cannot be logged incrementally, so the request is fully
// aggregated before it is forwarded and the response is fully aggregated
// before it is returned. Only non-empty bodies are recorded.
func ContentCapture() Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		return &contentCaptureTransport{next: next}
	}
}

// RoundTrip implements http.RoundTripper.
func (t *contentCaptureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, log := ensureExchangeLog(req.Context())

	content, err := aggregateBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("aggregate request body: %w", err)
	}
	if len(content) > 0 {
		log.recordRequestContent(string(content))
	}

	out := req.Clone(ctx)
	if req.Body != nil && req.Body != http.NoBody {
		out.Body = io.NopCloser(bytes.NewReader(content))
		out.ContentLength = int64(len(content))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		}
	}

	resp, err := t.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	body, err := aggregateBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("aggregate response body: %w", err)
	}
	if len(body) > 0 {
		log.recordResponseContent(string(body))
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// aggregateBody reads and closes body. A nil body aggregates to nil.
func aggregateBody(body io.ReadCloser) ([]byte, error) {
	if body == nil || body == http.NoBody {
		return nil, nil
	}
	defer body.Close()
	return io.ReadAll(body)
}
