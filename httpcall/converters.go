package httpcall

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// BodyConverter turns a non-empty response body into a typed result.
//
// Converters are stateless values supplied per call. They are never invoked
// for an empty body; the call yields the zero value of T instead.
type BodyConverter[T any] func(content []byte) (T, error)

// errInvalidJSON is returned by the gjson-based converters for malformed bodies.
var errInvalidJSON = errors.New("invalid JSON body")

// Discard ignores the content and yields the zero value. Use it for calls
// whose success is signalled by status alone (index creation, health checks).
func Discard[T any]() BodyConverter[T] {
	return func([]byte) (T, error) {
		var zero T
		return zero, nil
	}
}

// String yields the body as UTF-8 text.
func String() BodyConverter[string] {
	return func(content []byte) (string, error) {
		return string(content), nil
	}
}

// Bytes yields a copy of the body.
func Bytes() BodyConverter[[]byte] {
	return func(content []byte) ([]byte, error) {
		return slices.Clone(content), nil
	}
}

// JSON decodes the body into T.
func JSON[T any]() BodyConverter[T] {
	return func(content []byte) (T, error) {
		var v T
		if err := json.Unmarshal(content, &v); err != nil {
			return v, fmt.Errorf("decode JSON: %w", err)
		}
		return v, nil
	}
}

// lookup validates the body and resolves a gjson path.
func lookup(content []byte, path string) (gjson.Result, error) {
	if !gjson.ValidBytes(content) {
		return gjson.Result{}, errInvalidJSON
	}
	res := gjson.GetBytes(content, path)
	if !res.Exists() {
		return res, fmt.Errorf("field %q not found", path)
	}
	return res, nil
}

// Field yields the string value at a gjson path, e.g. "version.number" or
// "hits.hits.#._source.traceId". Non-string values yield their raw JSON.
func Field(path string) BodyConverter[string] {
	return func(content []byte) (string, error) {
		res, err := lookup(content, path)
		if err != nil {
			return "", err
		}
		if res.Type == gjson.String {
			return res.Str, nil
		}
		return res.Raw, nil
	}
}

// BoolField yields the boolean at path, e.g. "acknowledged".
func BoolField(path string) BodyConverter[bool] {
	return func(content []byte) (bool, error) {
		res, err := lookup(content, path)
		if err != nil {
			return false, err
		}
		if !res.IsBool() {
			return false, fmt.Errorf("field %q is %s, not a boolean", path, res.Type)
		}
		return res.Bool(), nil
	}
}

// IntField yields the integer at path, e.g. "count" or "hits.total.value".
func IntField(path string) BodyConverter[int64] {
	return func(content []byte) (int64, error) {
		res, err := lookup(content, path)
		if err != nil {
			return 0, err
		}
		if res.Type != gjson.Number {
			return 0, fmt.Errorf("field %q is %s, not a number", path, res.Type)
		}
		return res.Int(), nil
	}
}

// Strings yields every string found at a gjson path that resolves to an
// array, e.g. "aggregations.services.buckets.#.key".
func Strings(path string) BodyConverter[[]string] {
	return func(content []byte) ([]string, error) {
		res, err := lookup(content, path)
		if err != nil {
			return nil, err
		}
		if !res.IsArray() {
			return nil, fmt.Errorf("field %q is not an array", path)
		}
		items := res.Array()
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.String())
		}
		return out, nil
	}
}
