package httpcall

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrAlreadyExecuted is returned when Execute or Enqueue is invoked on a call
// that has already been started. Use Clone to run the same operation again.
var ErrAlreadyExecuted = errors.New("call already executed")

// NotFoundError reports a 404 from the backend. Its message is exactly the
// request target: the path plus the encoded query string when the request
// has query parameters, e.g. "/zipkin-span/_doc/1?routing=a".
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return e.Path
}

// RequestError reports any other status >= 400.
//
// Message is the backend's top-level "message" field (matched
// case-insensitively) when the body is a JSON object carrying one, otherwise
// "response for <path> failed: <body or status line>", where path is the
// request target as in NotFoundError.
type RequestError struct {
	StatusCode int
	Path       string
	Message    string
	Body       []byte
}

func (e *RequestError) Error() string {
	return e.Message
}

// ConversionError wraps a failure of the body converter. errors.Is and
// errors.As reach the converter's original error; compare with those rather
// than by identity.
type ConversionError struct {
	Name string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert response of %s: %v", e.Name, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// FatalError marks an unrecoverable fault. A converter that panics with (or
// returns) a *FatalError aborts the goroutine running the conversion instead
// of reporting through the error channel or a callback.
type FatalError struct {
	Err error
}

// Fatal wraps err as unrecoverable.
func Fatal(err error) *FatalError {
	return &FatalError{Err: err}
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// isFatal reports whether a recovered panic value must keep unwinding:
// runtime faults, *FatalError, and values that are not errors at all.
func isFatal(r any) bool {
	err, ok := r.(error)
	if !ok {
		return true
	}
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return true
	}
	var rtErr runtime.Error
	return errors.As(err, &rtErr)
}

// IsNotFound reports whether err is, or wraps, a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRequestError reports whether err is, or wraps, a *RequestError.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not a
// classified response error.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	if IsNotFound(err) {
		return http.StatusNotFound
	}
	return 0
}
