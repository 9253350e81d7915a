package httpclient

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// defaultLogger is used when no logger is configured.
var defaultLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// LoggingLevel controls how much of each exchange the logging stage writes.
type LoggingLevel int

const (
	// LoggingNone disables exchange logging.
	LoggingNone LoggingLevel = iota
	// LoggingBasic logs method, URL, status and duration.
	LoggingBasic
	// LoggingHeaders also logs request and response headers.
	LoggingHeaders
	// LoggingBody also logs request and response contents and a cURL
	// reproduction. Enabling it installs the content-capture stage. Headers
	// and the cURL command include those added by request interceptors.
	LoggingBody
)

// String returns the lower-case level name.
func (l LoggingLevel) String() string {
	switch l {
	case LoggingBasic:
		return "basic"
	case LoggingHeaders:
		return "headers"
	case LoggingBody:
		return "body"
	default:
		return "none"
	}
}

// ParseLoggingLevel parses a level name. Matching is case-insensitive and
// "" maps to LoggingNone.
func ParseLoggingLevel(s string) (LoggingLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LoggingNone, nil
	case "basic":
		return LoggingBasic, nil
	case "headers":
		return LoggingHeaders, nil
	case "body":
		return LoggingBody, nil
	default:
		return LoggingNone, fmt.Errorf("unknown logging level %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for config decoding.
func (l *LoggingLevel) UnmarshalText(text []byte) error {
	level, err := ParseLoggingLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// redactedHeaders are never written to logs verbatim.
var redactedHeaders = map[string]struct{}{
	"Authorization":       {},
	"Proxy-Authorization": {},
	"Cookie":              {},
	"Set-Cookie":          {},
}

type loggingTransport struct {
	next   http.RoundTripper
	logger zerolog.Logger
	level  LoggingLevel
}

// Logging returns the stage that writes one log event per exchange.
//
// Place it outside ContentCapture: request and response contents are read
// from the exchange log after the inner stages have recorded them.
func Logging(logger zerolog.Logger, level LoggingLevel) Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		if level <= LoggingNone {
			return next
		}
		return &loggingTransport{next: next, logger: logger, level: level}
	}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, log := ensureExchangeLog(req.Context())
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	event := t.logger.Info()
	if err != nil {
		event = t.logger.Warn().Err(err)
	}

	event = event.
		Str("exchange_id", log.ID()).
		Str("name", OperationNameFromContext(ctx)).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Dur("duration", duration)

	if resp != nil {
		event = event.Int("status", resp.StatusCode)
	}

	// Interceptors run further in; log what they actually forwarded.
	sent := req
	if h := log.RequestHeader(); h != nil {
		sent = req.Clone(ctx)
		sent.Header = h
	}

	if t.level >= LoggingHeaders {
		event = event.Dict("request_headers", headerDict(sent.Header))
		if resp != nil {
			event = event.Dict("response_headers", headerDict(resp.Header))
		}
	}

	if t.level >= LoggingBody {
		requestContent, hasRequest := log.RequestContent()
		if hasRequest {
			event = event.Str("request_content", requestContent)
		}
		if content, ok := log.ResponseContent(); ok {
			event = event.Str("response_content", content)
		}
		event = event.Str("curl", generateCurlCommand(sent, []byte(requestContent)))
	}

	event.Msg("HTTP exchange")

	return resp, err
}

func headerDict(h http.Header) *zerolog.Event {
	dict := zerolog.Dict()
	for _, k := range sortedHeaderKeys(h) {
		dict = dict.Str(k, headerValue(k, h.Values(k)))
	}
	return dict
}

func headerValue(key string, values []string) string {
	if _, ok := redactedHeaders[http.CanonicalHeaderKey(key)]; ok {
		return "***"
	}
	return strings.Join(values, ", ")
}

func sortedHeaderKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// generateCurlCommand creates a cURL command equivalent for the given request.
// Credential headers are masked.
//
// Example output:
//
//	curl -X POST 'http://localhost:9200/zipkin-span-2024-01-01/_search' -H 'Content-Type: application/json' -d '{"size":0}'
func generateCurlCommand(req *http.Request, body []byte) string {
	parts := []string{"curl"}

	if req.Method != http.MethodGet {
		parts = append(parts, "-X", req.Method)
	}

	parts = append(parts, fmt.Sprintf("'%s'", req.URL.String()))

	for _, k := range sortedHeaderKeys(req.Header) {
		for _, v := range req.Header[k] {
			if _, ok := redactedHeaders[k]; ok {
				v = "***"
			}
			parts = append(parts, "-H", fmt.Sprintf("'%s: %s'", k, v))
		}
	}

	if len(body) > 0 {
		bodyStr := strings.ReplaceAll(string(body), "'", "'\\''")
		parts = append(parts, "-d", fmt.Sprintf("'%s'", bodyStr))
	}

	return strings.Join(parts, " ")
}
