package httpcall

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Response is a fully aggregated backend response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// classify maps error statuses to the error taxonomy. Status < 400 is nil.
func (r *Response) classify(path string) error {
	if r.StatusCode < http.StatusBadRequest {
		return nil
	}
	if r.StatusCode == http.StatusNotFound {
		return &NotFoundError{Path: path}
	}

	message, ok := extractMessage(r.Body)
	if !ok {
		detail := string(r.Body)
		if len(r.Body) == 0 {
			detail = r.statusLine()
		}
		message = fmt.Sprintf("response for %s failed: %s", path, detail)
	}

	return &RequestError{
		StatusCode: r.StatusCode,
		Path:       path,
		Message:    message,
		Body:       r.Body,
	}
}

// statusLine returns e.g. "500 Internal Server Error".
func (r *Response) statusLine() string {
	if r.Status != "" {
		return r.Status
	}
	return fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
}

// extractMessage returns the value of a top-level "message" key, matched
// case-insensitively. An exact "message" key wins; otherwise the first
// matching key in sorted order is used. Non-string values are returned as
// their raw JSON text.
func extractMessage(body []byte) (string, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return "", false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.EqualFold(k, "message") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "message" {
			return true
		}
		if keys[j] == "message" {
			return false
		}
		return keys[i] < keys[j]
	})

	raw := fields[keys[0]]
	var message string
	if err := json.Unmarshal(raw, &message); err != nil {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" || message == "null" {
		return "", false
	}
	return message, true
}
