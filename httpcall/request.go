package httpcall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

// Request describes one backend operation: method, path relative to the
// client's base URL, query, headers and an optional body.
//
// Setters return the request for chaining. A Call never mutates its Request;
// Clone deep-copies it.
//
//	req := httpcall.NewRequest(http.MethodPost, "/zipkin-span-*/_search").
//	    QueryParam("ignore_unavailable", "true").
//	    Body(map[string]any{"size": 0})
type Request struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte

	// err records a body encoding failure, reported when the call executes.
	err error
}

// NewRequest creates a request for method and path.
func NewRequest(method, path string) *Request {
	return &Request{
		method: method,
		path:   path,
		query:  url.Values{},
		header: http.Header{},
	}
}

// Get creates a GET request for path.
func Get(path string) *Request { return NewRequest(http.MethodGet, path) }

// Head creates a HEAD request for path.
func Head(path string) *Request { return NewRequest(http.MethodHead, path) }

// Post creates a POST request for path.
func Post(path string) *Request { return NewRequest(http.MethodPost, path) }

// Put creates a PUT request for path.
func Put(path string) *Request { return NewRequest(http.MethodPut, path) }

// Delete creates a DELETE request for path.
func Delete(path string) *Request { return NewRequest(http.MethodDelete, path) }

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// Path returns the request path as given, without query.
func (r *Request) Path() string { return r.path }

// Target returns the path with the encoded query parameters appended, as
// reported in not-found and request-failure messages.
func (r *Request) Target() string {
	if len(r.query) == 0 {
		return r.path
	}
	sep := "?"
	if strings.Contains(r.path, "?") {
		sep = "&"
	}
	return r.path + sep + r.query.Encode()
}

// QueryParam adds a query parameter.
func (r *Request) QueryParam(key, value string) *Request {
	r.query.Add(key, value)
	return r
}

// Header sets a request header.
func (r *Request) Header(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

// Body sets the request body.
//
// []byte and string are sent as-is; anything else is encoded as JSON and
// the Content-Type defaults to application/json. Encoding errors surface when
// the call executes.
func (r *Request) Body(v any) *Request {
	switch b := v.(type) {
	case nil:
		r.body = nil
	case []byte:
		r.body = slices.Clone(b)
	case string:
		r.body = []byte(b)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			r.err = fmt.Errorf("encode request body: %w", err)
			return r
		}
		r.body = data
		if r.header.Get("Content-Type") == "" {
			r.header.Set("Content-Type", "application/json")
		}
	}
	return r
}

// BodyNDJSON encodes each item as one JSON line, as bulk APIs expect.
func (r *Request) BodyNDJSON(items ...any) *Request {
	var buf bytes.Buffer
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			r.err = fmt.Errorf("encode request body line: %w", err)
			return r
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	r.body = buf.Bytes()
	if r.header.Get("Content-Type") == "" {
		r.header.Set("Content-Type", "application/x-ndjson")
	}
	return r
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	return &Request{
		method: r.method,
		path:   r.path,
		query:  cloneValues(r.query),
		header: r.header.Clone(),
		body:   slices.Clone(r.body),
		err:    r.err,
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = slices.Clone(vs)
	}
	return out
}

// build creates the *http.Request against the client's base URL.
func (r *Request) build(ctx context.Context, client *httpclient.Client) (*http.Request, error) {
	if r.err != nil {
		return nil, r.err
	}

	u, err := client.ResolveURL(r.path, r.query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(r.body) > 0 {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = r.header.Clone()
	return req, nil
}
