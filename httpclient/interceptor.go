package httpclient

import (
	"net/http"
)

// RequestInterceptor modifies a request before it is sent.
// Interceptors run in the order they are added and receive a clone of the
// caller's request, so they may mutate headers freely.
//
// Common use cases:
//   - Adding authentication headers (Basic, Bearer, API keys)
//   - Setting a User-Agent
//   - Adding static headers to every request
type RequestInterceptor func(req *http.Request) error

type interceptorTransport struct {
	next         http.RoundTripper
	interceptors []RequestInterceptor
}

// Interceptors returns the stage that applies request interceptors.
// The first interceptor error aborts the exchange and is returned unchanged.
func Interceptors(interceptors ...RequestInterceptor) Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		if len(interceptors) == 0 {
			return next
		}
		return &interceptorTransport{next: next, interceptors: interceptors}
	}
}

// RoundTrip implements http.RoundTripper.
func (t *interceptorTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	for _, interceptor := range t.interceptors {
		if err := interceptor(out); err != nil {
			return nil, err
		}
	}
	if log := ExchangeLogFromContext(out.Context()); log != nil {
		log.recordRequestHeader(out.Header.Clone())
	}
	return t.next.RoundTrip(out)
}

// BasicAuthInterceptor sets HTTP Basic credentials. An empty username is a no-op.
func BasicAuthInterceptor(username, password string) RequestInterceptor {
	return func(req *http.Request) error {
		if username == "" {
			return nil
		}
		req.SetBasicAuth(username, password)
		return nil
	}
}

// AuthBearerInterceptor adds a Bearer token.
func AuthBearerInterceptor(token string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// AuthBearerFuncInterceptor adds a Bearer token obtained from tokenFunc on
// every request (useful for refreshable tokens).
func AuthBearerFuncInterceptor(tokenFunc func() (string, error)) RequestInterceptor {
	return func(req *http.Request) error {
		token, err := tokenFunc()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// APIKeyInterceptor adds an API key header.
func APIKeyInterceptor(headerName, apiKey string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(headerName, apiKey)
		return nil
	}
}

// UserAgentInterceptor sets the User-Agent header.
func UserAgentInterceptor(userAgent string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set("User-Agent", userAgent)
		return nil
	}
}

// HeaderInterceptor sets each header in headers unless the request already
// carries it.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(req *http.Request) error {
		for k, v := range headers {
			if req.Header.Get(k) == "" {
				req.Header.Set(k, v)
			}
		}
		return nil
	}
}
