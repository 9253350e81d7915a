package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/kroma-labs/sentinel-call-go/httpclient"

// Config holds the HTTP transport configuration parameters.
// Use DefaultConfig() to get a properly initialized configuration,
// then modify specific fields as needed.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Timeout = 5 * time.Second
//	cfg.MaxIdleConnsPerHost = 25
//
//	client := httpclient.New(
//	    httpclient.WithConfig(cfg),
//	    httpclient.WithServiceName("span-store"),
//	)
type Config struct {
	// Timeout bounds the entire exchange, including reading the body.
	// Zero means no timeout.
	//
	// Default: 15s
	Timeout time.Duration

	// MaxIdleConns is the idle (keep-alive) pool size across all hosts.
	//
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost is the idle pool size per host. Storage clients
	// usually talk to one cluster, so keep it close to MaxIdleConns.
	//
	// Default: 20
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits idle plus active connections per host.
	// Zero means unlimited.
	//
	// Default: 100
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	//
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout is the maximum time to wait for a TLS handshake.
	//
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ExpectContinueTimeout is how long to wait for "100 Continue".
	//
	// Default: 1s
	ExpectContinueTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers after
	// the request is written. Zero defers to Timeout.
	ResponseHeaderTimeout time.Duration

	// DialTimeout is the maximum time to establish a TCP connection.
	//
	// Default: 5s
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval.
	//
	// Default: 30s
	KeepAlive time.Duration

	// FallbackDelay is the Happy Eyeballs delay before falling back to IPv4.
	//
	// Default: 300ms
	FallbackDelay time.Duration

	// WriteBufferSize and ReadBufferSize size the per-connection buffers.
	//
	// Default: 64KB
	WriteBufferSize int
	ReadBufferSize  int

	// MaxResponseHeaderBytes limits response header size. Zero uses the
	// net/http default.
	MaxResponseHeaderBytes int64

	DisableKeepAlives  bool
	DisableCompression bool
	ForceHTTP2         bool
}

// DefaultConfig returns balanced settings for general-purpose use.
func DefaultConfig() Config {
	return Config{
		Timeout: 15 * time.Second,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DialTimeout:   5 * time.Second,
		KeepAlive:     30 * time.Second,
		FallbackDelay: 300 * time.Millisecond,

		WriteBufferSize: 64 * 1024,
		ReadBufferSize:  64 * 1024,

		DisableCompression: true,
	}
}

// HighThroughputConfig returns settings for bulk indexing and other
// high-concurrency workloads.
func HighThroughputConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Second
	cfg.MaxIdleConns = 500
	cfg.MaxIdleConnsPerHost = 100
	cfg.MaxConnsPerHost = 0
	cfg.IdleConnTimeout = 120 * time.Second
	cfg.WriteBufferSize = 128 * 1024
	cfg.ReadBufferSize = 128 * 1024
	return cfg
}

// LowLatencyConfig returns settings for latency-sensitive queries.
func LowLatencyConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	cfg.MaxIdleConns = 50
	cfg.MaxIdleConnsPerHost = 25
	cfg.MaxConnsPerHost = 50
	cfg.IdleConnTimeout = 60 * time.Second
	cfg.TLSHandshakeTimeout = 5 * time.Second
	cfg.ExpectContinueTimeout = 500 * time.Millisecond
	cfg.ResponseHeaderTimeout = 3 * time.Second
	cfg.DialTimeout = 2 * time.Second
	cfg.KeepAlive = 15 * time.Second
	cfg.FallbackDelay = 150 * time.Millisecond
	cfg.WriteBufferSize = 32 * 1024
	cfg.ReadBufferSize = 32 * 1024
	cfg.ForceHTTP2 = true
	return cfg
}

// ConservativeConfig returns resource-conscious settings.
func ConservativeConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Second
	cfg.MaxIdleConns = 20
	cfg.MaxIdleConnsPerHost = 5
	cfg.MaxConnsPerHost = 20
	cfg.IdleConnTimeout = 30 * time.Second
	cfg.WriteBufferSize = 4 * 1024
	cfg.ReadBufferSize = 4 * 1024
	return cfg
}

// SpanNameFormatter formats span names from a request.
type SpanNameFormatter func(req *http.Request) string

// internalConfig holds all configuration for the client.
type internalConfig struct {
	httpConfig Config

	BaseURL string

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *metrics

	// ServiceName identifies the client on spans, metrics and the breaker.
	ServiceName string

	DisableNetworkTrace bool
	SpanNameFormatter   SpanNameFormatter
	Propagators         propagation.TextMapPropagator

	TLSConfig            *tls.Config
	ProxyURL             *url.URL
	ProxyFromEnvironment bool

	Logger       zerolog.Logger
	LoggingLevel LoggingLevel

	ContentCapture    bool
	ExchangeListeners []ExchangeListener
	Decorators        []Decorator
	Interceptors      []RequestInterceptor

	RateLimit     *RateLimitConfig
	BreakerConfig *BreakerConfig

	// BaseTransport replaces the built *http.Transport (mocks, tests).
	BaseTransport http.RoundTripper
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:     DefaultConfig(),
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Propagators: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		SpanNameFormatter:    defaultSpanName,
		ProxyFromEnvironment: true,
		Logger:               defaultLogger,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Metrics stay nil on error; every record method is nil-safe.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates an *http.Transport from the config.
func (cfg *internalConfig) buildTransport() *http.Transport {
	hc := cfg.httpConfig

	dialer := &net.Dialer{
		Timeout:       hc.DialTimeout,
		KeepAlive:     hc.KeepAlive,
		FallbackDelay: hc.FallbackDelay,
	}

	transport := &http.Transport{
		DialContext:            dialer.DialContext,
		MaxIdleConns:           hc.MaxIdleConns,
		MaxIdleConnsPerHost:    hc.MaxIdleConnsPerHost,
		MaxConnsPerHost:        hc.MaxConnsPerHost,
		IdleConnTimeout:        hc.IdleConnTimeout,
		TLSHandshakeTimeout:    hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout:  hc.ResponseHeaderTimeout,
		ExpectContinueTimeout:  hc.ExpectContinueTimeout,
		DisableKeepAlives:      hc.DisableKeepAlives,
		DisableCompression:     hc.DisableCompression,
		WriteBufferSize:        hc.WriteBufferSize,
		ReadBufferSize:         hc.ReadBufferSize,
		MaxResponseHeaderBytes: hc.MaxResponseHeaderBytes,
		TLSClientConfig:        cfg.TLSConfig,
		ForceAttemptHTTP2:      hc.ForceHTTP2,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	} else if cfg.ProxyFromEnvironment {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return transport
}

// baseTransport returns the innermost RoundTripper of the pipeline.
func (cfg *internalConfig) baseTransport() http.RoundTripper {
	if cfg.BaseTransport != nil {
		return cfg.BaseTransport
	}
	return cfg.buildTransport()
}

// baseAttributes returns a fresh slice of attributes common to every span
// and metric; callers may append to it.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 8)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// Option configures the client.
type Option func(*internalConfig)

// WithConfig sets the HTTP transport configuration.
// Any zero-valued fields in c will use the zero value (not defaults).
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithBaseURL sets the URL that relative request paths resolve against.
func WithBaseURL(baseURL string) Option {
	return func(cfg *internalConfig) {
		cfg.BaseURL = baseURL
	}
}

// WithServiceName sets the logical name of the remote service.
// It is added as "http.client.name" and names the circuit breaker.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		if tp != nil {
			cfg.TracerProvider = tp
		}
	}
}

// WithMeterProvider sets the meter provider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		if mp != nil {
			cfg.MeterProvider = mp
		}
	}
}

// WithTLSConfig sets the TLS configuration of the built transport.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithProxyURL routes requests through proxyURL.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyURL = proxyURL
	}
}

// WithProxyFromEnvironment toggles HTTP_PROXY/HTTPS_PROXY/NO_PROXY support.
// Enabled by default.
func WithProxyFromEnvironment(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyFromEnvironment = enabled
	}
}

// WithDisableNetworkTrace disables DNS/connect/TLS span events and timing metrics.
func WithDisableNetworkTrace() Option {
	return func(cfg *internalConfig) {
		cfg.DisableNetworkTrace = true
	}
}

// WithSpanNameFormatter overrides the default "HTTP {method} {operation}" span name.
func WithSpanNameFormatter(f SpanNameFormatter) Option {
	return func(cfg *internalConfig) {
		if f != nil {
			cfg.SpanNameFormatter = f
		}
	}
}

// WithPropagators sets the context propagators. Defaults to W3C TraceContext and Baggage.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *internalConfig) {
		if p != nil {
			cfg.Propagators = p
		}
	}
}

// WithLogger sets the zerolog logger used by the logging stage.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithHTTPLogging sets how much of each exchange is logged.
// LoggingBody also installs the content-capture stage.
func WithHTTPLogging(level LoggingLevel) Option {
	return func(cfg *internalConfig) {
		cfg.LoggingLevel = level
	}
}

// WithContentCapture installs the content-capture stage without logging,
// so callers can read bodies from an ExchangeLog.
func WithContentCapture() Option {
	return func(cfg *internalConfig) {
		cfg.ContentCapture = true
	}
}

// WithExchangeListener registers a function called after every exchange.
func WithExchangeListener(l ExchangeListener) Option {
	return func(cfg *internalConfig) {
		if l != nil {
			cfg.ExchangeListeners = append(cfg.ExchangeListeners, l)
		}
	}
}

// WithDecorator inserts a custom stage after content capture.
func WithDecorator(d Decorator) Option {
	return func(cfg *internalConfig) {
		if d != nil {
			cfg.Decorators = append(cfg.Decorators, d)
		}
	}
}

// WithRequestInterceptor adds a request interceptor.
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(cfg *internalConfig) {
		if i != nil {
			cfg.Interceptors = append(cfg.Interceptors, i)
		}
	}
}

// WithBasicAuth sends HTTP Basic credentials on every request.
func WithBasicAuth(username, password string) Option {
	return WithRequestInterceptor(BasicAuthInterceptor(username, password))
}

// WithDefaultHeaders sets headers on every request that does not already carry them.
func WithDefaultHeaders(headers map[string]string) Option {
	return WithRequestInterceptor(HeaderInterceptor(headers))
}

// WithRateLimit enables client-level rate limiting.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RateLimit = &rl
	}
}

// WithBreaker enables the circuit breaker stage.
func WithBreaker(b BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &b
	}
}

// WithBaseTransport replaces the built transport, e.g. with a MockTransport
// or a test server's transport.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.BaseTransport = rt
	}
}

// WithMockTransport is WithBaseTransport for a MockTransport.
func WithMockTransport(m *MockTransport) Option {
	return WithBaseTransport(m)
}
