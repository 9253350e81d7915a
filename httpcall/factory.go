package httpcall

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

// Factory binds a process-wide *httpclient.Client to the calls it creates.
// The client's connection pool and decorator pipeline are shared by every call.
type Factory struct {
	client     *httpclient.Client
	dispatcher Dispatcher
	logger     zerolog.Logger
	metrics    *callMetrics
}

// FactoryOption configures a Factory.
type FactoryOption func(*factoryConfig)

type factoryConfig struct {
	dispatcher Dispatcher
	logger     *zerolog.Logger
	registerer prometheus.Registerer
}

// WithDispatcher sets how Enqueue runs exchanges. Defaults to GoDispatcher.
func WithDispatcher(d Dispatcher) FactoryOption {
	return func(c *factoryConfig) {
		if d != nil {
			c.dispatcher = d
		}
	}
}

// WithLogger sets the logger for state conflicts and fatal conversion
// faults. Defaults to the client's logger.
func WithLogger(logger zerolog.Logger) FactoryOption {
	return func(c *factoryConfig) {
		c.logger = &logger
	}
}

// WithRegisterer enables call metrics on reg:
//
//   - storage_call_total{name, outcome}
//   - storage_call_duration_seconds{name}
//
// Example:
//
//	factory, err := httpcall.NewFactory(client,
//	    httpcall.WithRegisterer(prometheus.DefaultRegisterer),
//	)
func WithRegisterer(reg prometheus.Registerer) FactoryOption {
	return func(c *factoryConfig) {
		c.registerer = reg
	}
}

// NewFactory creates a call factory on top of client.
//
// Example:
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("http://localhost:9200"),
//	    httpclient.WithHTTPLogging(httpclient.LoggingBody),
//	)
//	factory, err := httpcall.NewFactory(client)
func NewFactory(client *httpclient.Client, opts ...FactoryOption) (*Factory, error) {
	if client == nil {
		return nil, fmt.Errorf("httpcall: nil client")
	}

	cfg := factoryConfig{dispatcher: GoDispatcher}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Factory{
		client:     client,
		dispatcher: cfg.dispatcher,
		logger:     client.Logger(),
	}
	if cfg.logger != nil {
		f.logger = *cfg.logger
	}
	if cfg.registerer != nil {
		m, err := newCallMetrics(cfg.registerer)
		if err != nil {
			return nil, fmt.Errorf("register call metrics: %w", err)
		}
		f.metrics = m
	}
	return f, nil
}

// Client returns the underlying client.
func (f *Factory) Client() *httpclient.Client {
	return f.client
}

// send performs the exchange and returns the aggregated response, or the
// classified error for status >= 400.
func (f *Factory) send(ctx context.Context, req *Request, name string) (*Response, error) {
	ctx = httpclient.WithOperationName(ctx, name)

	httpReq, err := req.build(ctx, f.client)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", name, err)
	}

	httpResp, err := f.client.HTTP().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response of %s: %w", name, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       body,
	}
	if err := resp.classify(req.Target()); err != nil {
		return resp, err
	}
	return resp, nil
}
