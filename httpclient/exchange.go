package httpclient

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// ExchangeLog is the diagnostic record of a single request/response exchange.
//
// Pipeline stages write to it as the exchange progresses: the naming stage sets
// the identity, the content-capture stage records bodies, and the naming stage
// completes it once the response headers (or an error) arrive. It is safe for
// concurrent use.
//
// Attach a log before sending to inspect it afterwards:
//
//	log := httpclient.NewExchangeLog()
//	ctx = httpclient.WithExchangeLog(ctx, log)
//	resp, err := client.HTTP().Do(req.WithContext(ctx))
//	content, ok := log.ResponseContent()
type ExchangeLog struct {
	mu sync.RWMutex

	id     string
	name   string
	method string
	url    string

	statusCode int
	duration   time.Duration
	err        error
	completed  bool

	requestContent  *string
	responseContent *string

	requestHeader http.Header
}

// NewExchangeLog returns an empty exchange log.
func NewExchangeLog() *ExchangeLog {
	return &ExchangeLog{}
}

// ID returns the exchange identifier, also sent as the X-Request-ID header.
func (l *ExchangeLog) ID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.id
}

// Name returns the operation name of the call that produced the exchange.
func (l *ExchangeLog) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.name
}

// Method returns the HTTP method.
func (l *ExchangeLog) Method() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.method
}

// URL returns the full request URL.
func (l *ExchangeLog) URL() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.url
}

// StatusCode returns the response status code, or 0 if none was received.
func (l *ExchangeLog) StatusCode() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.statusCode
}

// Duration returns the time from dispatch until response headers arrived.
func (l *ExchangeLog) Duration() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.duration
}

// Err returns the transport error of the exchange, if any.
func (l *ExchangeLog) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Completed reports whether the exchange has finished.
func (l *ExchangeLog) Completed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.completed
}

// RequestContent returns the captured request body as UTF-8 text.
// The boolean is false when nothing was captured (empty body or no capture stage).
func (l *ExchangeLog) RequestContent() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.requestContent == nil {
		return "", false
	}
	return *l.requestContent, true
}

// ResponseContent returns the captured response body as UTF-8 text.
// The boolean is false when nothing was captured (empty body or no capture stage).
func (l *ExchangeLog) ResponseContent() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.responseContent == nil {
		return "", false
	}
	return *l.responseContent, true
}

// RequestHeader returns the headers as forwarded after request interceptors
// ran, or nil when no interceptor stage saw the exchange.
func (l *ExchangeLog) RequestHeader() http.Header {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.requestHeader
}

func (l *ExchangeLog) start(id, name, method, url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.id = id
	l.name = name
	l.method = method
	l.url = url
}

func (l *ExchangeLog) recordRequestContent(content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requestContent = &content
}

func (l *ExchangeLog) recordRequestHeader(h http.Header) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requestHeader = h
}

func (l *ExchangeLog) recordResponseContent(content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responseContent = &content
}

func (l *ExchangeLog) complete(statusCode int, duration time.Duration, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statusCode = statusCode
	l.duration = duration
	l.err = err
	l.completed = true
}

// ExchangeListener is notified when an exchange completes.
type ExchangeListener func(log *ExchangeLog)

type (
	exchangeLogKey   struct{}
	operationNameKey struct{}
)

// WithExchangeLog attaches log to ctx so pipeline stages record into it.
func WithExchangeLog(ctx context.Context, log *ExchangeLog) context.Context {
	return context.WithValue(ctx, exchangeLogKey{}, log)
}

// ExchangeLogFromContext returns the exchange log attached to ctx, or nil.
func ExchangeLogFromContext(ctx context.Context) *ExchangeLog {
	log, _ := ctx.Value(exchangeLogKey{}).(*ExchangeLog)
	return log
}

// WithOperationName attaches a human-readable operation name to ctx.
//
// The naming stage copies it into the exchange log and the instrumentation
// stage uses it for span names (e.g. "HTTP GET search-spans").
func WithOperationName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationNameKey{}, name)
}

// OperationNameFromContext returns the operation name attached to ctx, or "".
func OperationNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(operationNameKey{}).(string)
	return name
}

// ensureExchangeLog returns the log attached to ctx, attaching a new one if absent.
func ensureExchangeLog(ctx context.Context) (context.Context, *ExchangeLog) {
	if log := ExchangeLogFromContext(ctx); log != nil {
		return ctx, log
	}
	log := NewExchangeLog()
	return WithExchangeLog(ctx, log), log
}
