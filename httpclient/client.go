package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Client is an *http.Client whose transport is the ordered decorator pipeline
// (naming, logging, content capture, interceptors, rate limit, breaker,
// instrumentation) configured by Options.
//
// Create a Client using New():
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("http://localhost:9200"),
//	    httpclient.WithServiceName("span-store"),
//	    httpclient.WithHTTPLogging(httpclient.LoggingBody),
//	)
type Client struct {
	httpClient *http.Client
	config     *internalConfig
	baseURL    *url.URL
}

// New creates a Client from options. It panics only if WithBaseURL was given
// an unparseable URL; use NewE to handle that as an error.
func New(opts ...Option) *Client {
	c, err := NewE(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// NewE is New returning configuration errors.
func NewE(opts ...Option) (*Client, error) {
	cfg := newConfig(opts...)
	return newClient(cfg, cfg.baseTransport())
}

// NewWithTransport creates a Client whose pipeline wraps base instead of a
// transport built from Config.
//
//	client := httpclient.NewWithTransport(server.Client().Transport,
//	    httpclient.WithBaseURL(server.URL),
//	)
func NewWithTransport(base http.RoundTripper, opts ...Option) *Client {
	cfg := newConfig(append(opts, WithBaseTransport(base))...)
	c, err := newClient(cfg, base)
	if err != nil {
		panic(err)
	}
	return c
}

// NewTransport returns the configured pipeline around base, for callers that
// manage their own *http.Client.
func NewTransport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	cfg := newConfig(opts...)
	return Chain(base, cfg.pipeline()...)
}

func newClient(cfg *internalConfig, base http.RoundTripper) (*Client, error) {
	var baseURL *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("parse base URL %q: %w", cfg.BaseURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
		}
		baseURL = u
	}

	return &Client{
		httpClient: &http.Client{
			Transport: Chain(base, cfg.pipeline()...),
			Timeout:   cfg.httpConfig.Timeout,
		},
		config:  cfg,
		baseURL: baseURL,
	}, nil
}

// HTTP returns the underlying *http.Client.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// BaseURL returns the configured base URL, or "" if none.
func (c *Client) BaseURL() string {
	if c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// ServiceName returns the configured service name.
func (c *Client) ServiceName() string {
	return c.config.ServiceName
}

// Logger returns the client's logger.
func (c *Client) Logger() zerolog.Logger {
	return c.config.Logger
}

// ResolveURL joins path and query onto the base URL. Absolute URLs are
// returned unchanged; relative paths without a base URL are an error.
func (c *Client) ResolveURL(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}

	var u *url.URL
	switch {
	case ref.IsAbs():
		u = ref
	case c.baseURL == nil:
		return nil, fmt.Errorf("relative path %q requires a base URL", path)
	default:
		joined := *c.baseURL
		// Join both forms so escapes such as %2F inside a segment survive.
		joined.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
		joined.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimLeft(ref.EscapedPath(), "/")
		joined.RawQuery = ref.RawQuery
		u = &joined
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}
