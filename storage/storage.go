package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/kroma-labs/sentinel-call-go/httpcall"
	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

// HealthPath is queried by Check.
const HealthPath = "/_cluster/health"

// Client is a search backend client built from Options. It owns one
// *httpclient.Client and the call factory shared by everything issuing
// requests against the backend.
type Client struct {
	opts    Options
	http    *httpclient.Client
	factory *httpcall.Factory
	logger  zerolog.Logger
}

// CheckResult is the outcome of a health check.
type CheckResult struct {
	OK     bool
	Status string
	Err    error
}

// New validates opts and builds the client. clientOpts are applied after the
// options derived from opts, so they can override them (for example
// httpclient.WithMockTransport in tests).
func New(opts Options, clientOpts ...httpclient.Option) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cfg := httpclient.DefaultConfig()
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}

	base := []httpclient.Option{
		httpclient.WithConfig(cfg),
		httpclient.WithBaseURL(opts.URL),
		httpclient.WithServiceName(opts.ServiceName),
		httpclient.WithHTTPLogging(opts.HTTPLogging),
		httpclient.WithDefaultHeaders(map[string]string{
			"Accept": "application/json",
		}),
	}
	if opts.Username != "" {
		base = append(base, httpclient.WithBasicAuth(opts.Username, opts.Password))
	}

	hc, err := httpclient.NewE(append(base, clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	var factoryOpts []httpcall.FactoryOption
	if opts.MaxInFlight > 0 {
		factoryOpts = append(factoryOpts, httpcall.WithDispatcher(httpcall.NewBoundedDispatcher(opts.MaxInFlight)))
	}
	if opts.Registerer != nil {
		factoryOpts = append(factoryOpts, httpcall.WithRegisterer(opts.Registerer))
	}
	factory, err := httpcall.NewFactory(hc, factoryOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	return &Client{
		opts:    opts,
		http:    hc,
		factory: factory,
		logger:  hc.Logger(),
	}, nil
}

// Factory returns the call factory.
func (c *Client) Factory() *httpcall.Factory {
	return c.factory
}

// Index returns the configured index prefix.
func (c *Client) Index() string {
	return c.opts.Index
}

// Check queries cluster health. A red cluster, an error status or a transport
// failure is reported as not OK; yellow and green are OK.
func (c *Client) Check(ctx context.Context) CheckResult {
	call := httpcall.NewCall(c.factory, httpcall.Get(HealthPath), httpcall.Field("status"), "check-health")

	status, err := call.Execute(ctx)
	if err != nil {
		return CheckResult{Err: err}
	}
	switch status {
	case "green", "yellow":
		return CheckResult{OK: true, Status: status}
	case "":
		return CheckResult{Err: fmt.Errorf("empty health response from %s", c.http.BaseURL())}
	default:
		return CheckResult{Status: status, Err: fmt.Errorf("cluster health is %s", status)}
	}
}

// WaitReady runs Check until it succeeds, a permanent error occurs, or the
// backoff gives up. opts override the defaults of an exponential backoff
// with ten attempts.
func (c *Client) WaitReady(ctx context.Context, opts ...backoff.RetryOption) error {
	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(10),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Info().Err(err).Dur("next", next).Msg("storage not ready")
		}),
	}
	retryOpts = append(retryOpts, opts...)

	_, err := backoff.Retry(ctx, func() (string, error) {
		res := c.Check(ctx)
		if res.OK {
			return res.Status, nil
		}
		if res.Status == "" && !httpcall.IsRetryable(res.Err) {
			return "", backoff.Permanent(res.Err)
		}
		return res.Status, res.Err
	}, retryOpts...)
	if err != nil {
		return fmt.Errorf("storage not ready: %w", err)
	}
	return nil
}

// EnsureIndex creates index with body unless it already exists. It reports
// whether the index was created.
func (c *Client) EnsureIndex(ctx context.Context, index string, body any) (bool, error) {
	_, err := httpcall.NewCall(c.factory, httpcall.Head("/"+index),
		httpcall.Discard[struct{}](), "index-exists").Execute(ctx)
	switch {
	case err == nil:
		return false, nil
	case !httpcall.IsNotFound(err):
		return false, err
	}

	acknowledged, err := httpcall.NewCall(c.factory, httpcall.Put("/"+index).Body(body),
		httpcall.BoolField("acknowledged"), "create-index").Execute(ctx)
	if err != nil {
		// Lost a race with another writer.
		if httpcall.StatusCode(err) == http.StatusBadRequest && isAlreadyExists(err) {
			return false, nil
		}
		return false, err
	}
	if !acknowledged {
		return true, fmt.Errorf("creation of index %s was not acknowledged", index)
	}
	return true, nil
}

func isAlreadyExists(err error) bool {
	var re *httpcall.RequestError
	if !errors.As(err, &re) {
		return false
	}
	return gjson.GetBytes(re.Body, "error.type").String() == "resource_already_exists_exception"
}
