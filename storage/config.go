package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

// Environment variables read by ApplyEnv.
const (
	EnvURL      = "SEARCH_URL"
	EnvIndex    = "SEARCH_INDEX"
	EnvUsername = "SEARCH_USERNAME"
	EnvPassword = "SEARCH_PASSWORD"
	EnvDebug    = "SEARCH_DEBUG"
	EnvTimeout  = "SEARCH_TIMEOUT"
)

// Options configures a search backend client.
//
// Example YAML:
//
//	url: http://localhost:9200
//	index: zipkin
//	username: elastic
//	password: changeme
//	timeout: 10s
//	http_logging: headers
//	max_in_flight: 64
type Options struct {
	// URL is the backend base address, e.g. "http://localhost:9200".
	URL string `yaml:"url"`

	// Index is the index name prefix.
	Index string `yaml:"index"`

	// Username and Password enable basic authentication when Username is set.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Timeout bounds each exchange, including reading the body.
	Timeout time.Duration `yaml:"timeout"`

	// HTTPLogging is one of none, basic, headers, body.
	HTTPLogging httpclient.LoggingLevel `yaml:"http_logging"`

	// ServiceName labels spans, metrics and the circuit breaker.
	ServiceName string `yaml:"service_name"`

	// MaxInFlight caps concurrent asynchronous calls. Zero means unbounded.
	MaxInFlight int64 `yaml:"max_in_flight"`

	// Registerer enables call metrics when set.
	Registerer prometheus.Registerer `yaml:"-"`
}

// DefaultOptions returns options for a local, unauthenticated backend.
func DefaultOptions() Options {
	return Options{
		URL:         "http://localhost:9200",
		Index:       "zipkin",
		Timeout:     10 * time.Second,
		HTTPLogging: httpclient.LoggingNone,
		ServiceName: "search",
	}
}

// LoadOptions reads YAML from path on top of DefaultOptions, so absent keys
// keep their defaults.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read storage config: %w", err)
	}

	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse storage config: %w", err)
	}
	return opts, nil
}

// ApplyEnv overrides fields from environment variables found by lookup
// (usually os.LookupEnv). SEARCH_DEBUG=true selects body-level HTTP logging.
func (o *Options) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvURL); ok && v != "" {
		o.URL = v
	}
	if v, ok := lookup(EnvIndex); ok && v != "" {
		o.Index = v
	}
	if v, ok := lookup(EnvUsername); ok {
		o.Username = v
	}
	if v, ok := lookup(EnvPassword); ok {
		o.Password = v
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		debug, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		if debug {
			o.HTTPLogging = httpclient.LoggingBody
		}
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		o.Timeout = d
	}
	return nil
}

// Validate reports the first invalid field.
func (o Options) Validate() error {
	if o.URL == "" {
		return errors.New("storage: url is required")
	}
	u, err := url.Parse(o.URL)
	if err != nil {
		return fmt.Errorf("storage: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("storage: url scheme must be http or https, got %q", u.Scheme)
	}
	if o.Index == "" {
		return errors.New("storage: index is required")
	}
	if strings.ContainsAny(o.Index, "*?,/ ") {
		return fmt.Errorf("storage: invalid index name %q", o.Index)
	}
	if o.Timeout < 0 {
		return errors.New("storage: timeout must not be negative")
	}
	if o.MaxInFlight < 0 {
		return errors.New("storage: max_in_flight must not be negative")
	}
	return nil
}
