package httpcall

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

func TestFactory_Metrics(t *testing.T) {
	mock := httpclient.NewMockTransport().
		StubPath("/ok", http.StatusOK, "fine").
		StubPath("/missing", http.StatusNotFound, "").
		StubPath("/bad", http.StatusOK, "nope")
	client := httpclient.New(
		httpclient.WithBaseURL("http://search:9200"),
		httpclient.WithMockTransport(mock),
		httpclient.WithLogger(zerolog.Nop()),
	)

	reg := prometheus.NewRegistry()
	f, err := NewFactory(client, WithRegisterer(reg))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = NewCall(f, Get("/ok"), String(), "ok").Execute(ctx)
	require.NoError(t, err)
	_, err = NewCall(f, Get("/missing"), String(), "missing").Execute(ctx)
	require.Error(t, err)
	_, err = NewCall(f, Get("/bad"), BoolField("acknowledged"), "bad").Execute(ctx)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.calls.WithLabelValues("ok", outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.calls.WithLabelValues("missing", outcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.calls.WithLabelValues("bad", outcomeConversionError)))
	assert.Equal(t, 3, testutil.CollectAndCount(f.metrics.duration))
}

func TestFactory_Metrics_SharedRegistry(t *testing.T) {
	client := httpclient.New(httpclient.WithLogger(zerolog.Nop()))
	reg := prometheus.NewRegistry()

	f1, err := NewFactory(client, WithRegisterer(reg))
	require.NoError(t, err)
	f2, err := NewFactory(client, WithRegisterer(reg))
	require.NoError(t, err)

	assert.Same(t, f1.metrics.calls, f2.metrics.calls)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "given nil, then success", want: outcomeSuccess},
		{name: "given not found, then not_found", err: &NotFoundError{Path: "/"}, want: outcomeNotFound},
		{name: "given request error, then request_error", err: &RequestError{StatusCode: 500}, want: outcomeRequestError},
		{name: "given conversion error, then conversion_error", err: &ConversionError{Err: errors.New("x")}, want: outcomeConversionError},
		{name: "given deadline, then canceled", err: context.DeadlineExceeded, want: outcomeCanceled},
		{name: "given other error, then transport_error", err: errors.New("dial"), want: outcomeTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.err))
		})
	}
}

func TestNewFactory_NilClient(t *testing.T) {
	_, err := NewFactory(nil)
	assert.Error(t, err)
}
