package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// MockTransport is a scriptable http.RoundTripper for tests. Responses carry
// a full status line ("500 Internal Server Error") like a real server would.
//
//	mock := httpclient.NewMockTransport().
//	    StubPath("/_cluster/health", 200, `{"status":"green"}`)
//	client := httpclient.New(httpclient.WithMockTransport(mock))
type MockTransport struct {
	mu          sync.Mutex
	stubs       []stub
	queue       []stub
	fallback    *stub
	requests    []recordedRequest
	requestHook func(*http.Request)
}

type stub struct {
	matcher    func(*http.Request) bool
	statusCode int
	header     http.Header
	body       string
	err        error
}

// recordedRequest keeps the request and its body, which is consumed by RoundTrip.
type recordedRequest struct {
	req  *http.Request
	body []byte
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// StubResponse answers every unmatched request with statusCode and body.
func (m *MockTransport) StubResponse(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{statusCode: statusCode, body: body}
	return m
}

// StubJSON is StubResponse with a JSON content type.
func (m *MockTransport) StubJSON(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{
		statusCode: statusCode,
		body:       body,
		header:     http.Header{"Content-Type": []string{"application/json"}},
	}
	return m
}

// StubError fails every unmatched request with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{err: err}
	return m
}

// StubPath answers requests for path with statusCode and body.
func (m *MockTransport) StubPath(path string, statusCode int, body string) *MockTransport {
	return m.StubFunc(func(req *http.Request) bool {
		return req.URL.Path == path
	}, statusCode, body)
}

// StubFunc answers requests matching matcher. The first matching stub wins.
func (m *MockTransport) StubFunc(
	matcher func(*http.Request) bool,
	statusCode int,
	body string,
) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{matcher: matcher, statusCode: statusCode, body: body})
	return m
}

// Enqueue answers the next request, ahead of any other stub, with
// statusCode and body. Queued answers are consumed in order.
func (m *MockTransport) Enqueue(statusCode int, body string) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, stub{statusCode: statusCode, body: body})
	return m
}

// EnqueueError fails the next request with err.
func (m *MockTransport) EnqueueError(err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, stub{err: err})
	return m
}

// OnRequest sets a hook called for each request before it is answered.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestHook = fn
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}

	m.mu.Lock()
	m.requests = append(m.requests, recordedRequest{req: req, body: body})
	hook := m.requestHook
	s, ok := m.next(req)
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}

	if !ok {
		return nil, fmt.Errorf("no stub found for request: %s %s", req.Method, req.URL)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.response(req), nil
}

// next picks the answer for req. Callers hold m.mu.
func (m *MockTransport) next(req *http.Request) (stub, bool) {
	if len(m.queue) > 0 {
		s := m.queue[0]
		m.queue = m.queue[1:]
		return s, true
	}
	for _, s := range m.stubs {
		if s.matcher(req) {
			return s, true
		}
	}
	if m.fallback != nil {
		return *m.fallback, true
	}
	return stub{}, false
}

func (s stub) response(req *http.Request) *http.Response {
	header := s.header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Content-Length", strconv.Itoa(len(s.body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", s.statusCode, http.StatusText(s.statusCode)),
		StatusCode:    s.statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewBufferString(s.body)),
		ContentLength: int64(len(s.body)),
		Request:       req,
	}
}

// Requests returns all requests made through this transport.
func (m *MockTransport) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*http.Request, len(m.requests))
	for i, r := range m.requests {
		out[i] = r.req
	}
	return out
}

// RequestCount returns the number of requests made.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1].req
}

// LastRequestBody returns the body of the most recent request.
func (m *MockTransport) LastRequestBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ""
	}
	return string(m.requests[len(m.requests)-1].body)
}

// Reset clears recorded requests and all stubs.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.stubs = nil
	m.queue = nil
	m.fallback = nil
	m.requestHook = nil
}
