package httpcall

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

func newMockFactory(t *testing.T, mock *httpclient.MockTransport) *Factory {
	t.Helper()
	client := httpclient.New(
		httpclient.WithBaseURL("http://search:9200"),
		httpclient.WithMockTransport(mock),
		httpclient.WithLogger(zerolog.Nop()),
	)
	f, err := NewFactory(client)
	require.NoError(t, err)
	return f
}

func TestRetry(t *testing.T) {
	type step struct {
		status int
		body   string
	}

	tests := []struct {
		name         string
		steps        []step
		want         string
		wantErr      bool
		wantRequests int
	}{
		{
			name:         "given immediate success, then single attempt",
			steps:        []step{{http.StatusOK, "green"}},
			want:         "green",
			wantRequests: 1,
		},
		{
			name:         "given transient 503 then success, then retries",
			steps:        []step{{http.StatusServiceUnavailable, ""}, {http.StatusOK, "green"}},
			want:         "green",
			wantRequests: 2,
		},
		{
			name:         "given 429 then success, then retries",
			steps:        []step{{http.StatusTooManyRequests, ""}, {http.StatusOK, "yellow"}},
			want:         "yellow",
			wantRequests: 2,
		},
		{
			name:         "given 400, then stops immediately",
			steps:        []step{{http.StatusBadRequest, `{"message":"bad query"}`}, {http.StatusOK, "green"}},
			wantErr:      true,
			wantRequests: 1,
		},
		{
			name:         "given 404, then stops immediately",
			steps:        []step{{http.StatusNotFound, ""}, {http.StatusOK, "green"}},
			wantErr:      true,
			wantRequests: 1,
		},
		{
			name: "given persistent 500, then gives up after max tries",
			steps: []step{
				{http.StatusInternalServerError, ""},
				{http.StatusInternalServerError, ""},
				{http.StatusInternalServerError, ""},
				{http.StatusOK, "too late"},
			},
			wantErr:      true,
			wantRequests: DefaultRetryTries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httpclient.NewMockTransport()
			for _, s := range tt.steps {
				mock.Enqueue(s.status, s.body)
			}
			f := newMockFactory(t, mock)

			template := NewCall(f, Get("/_cluster/health"), String(), "health")
			got, err := Retry[string](context.Background(), template,
				backoff.WithBackOff(&backoff.ZeroBackOff{}),
			)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantRequests, mock.RequestCount())
			assert.False(t, template.executed.Load(), "template call must stay idle")
		})
	}
}

func TestRetry_ConversionErrorIsPermanent(t *testing.T) {
	mock := httpclient.NewMockTransport().StubResponse(http.StatusOK, "not a number")
	f := newMockFactory(t, mock)

	_, err := Retry[int64](context.Background(),
		NewCall(f, Get("/_count"), IntField("count"), "count"),
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
	)

	var conv *ConversionError
	assert.ErrorAs(t, err, &conv)
	assert.Equal(t, 1, mock.RequestCount())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "given nil, then false", err: nil, want: false},
		{name: "given transport error, then true", err: errors.New("connection reset"), want: true},
		{name: "given rate limit, then true", err: fmt.Errorf("call x: %w", httpclient.ErrRateLimited), want: true},
		{name: "given 503, then true", err: &RequestError{StatusCode: http.StatusServiceUnavailable}, want: true},
		{name: "given 429, then true", err: &RequestError{StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "given 401, then false", err: &RequestError{StatusCode: http.StatusUnauthorized}, want: false},
		{name: "given not found, then false", err: &NotFoundError{Path: "/"}, want: false},
		{name: "given conversion error, then false", err: &ConversionError{Name: "x", Err: errors.New("bad")}, want: false},
		{name: "given state error, then false", err: fmt.Errorf("%w: x", ErrAlreadyExecuted), want: false},
		{name: "given canceled context, then false", err: fmt.Errorf("call x: %w", context.Canceled), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
