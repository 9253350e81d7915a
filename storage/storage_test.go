package storage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sentinel-call-go/httpcall"
	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

func newTestClient(t *testing.T, mock *httpclient.MockTransport, mutate ...func(*Options)) *Client {
	t.Helper()
	opts := DefaultOptions()
	opts.URL = "http://search:9200"
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts,
		httpclient.WithMockTransport(mock),
		httpclient.WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Index = ""

	_, err := New(opts)
	assert.ErrorContains(t, err, "index is required")
}

func TestClient_Check(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantOK     bool
		wantStatus string
		wantErr    string
	}{
		{
			name:       "given green, then ok",
			status:     http.StatusOK,
			body:       `{"cluster_name":"docker","status":"green"}`,
			wantOK:     true,
			wantStatus: "green",
		},
		{
			name:       "given yellow, then ok",
			status:     http.StatusOK,
			body:       `{"status":"yellow"}`,
			wantOK:     true,
			wantStatus: "yellow",
		},
		{
			name:       "given red, then not ok",
			status:     http.StatusOK,
			body:       `{"status":"red"}`,
			wantStatus: "red",
			wantErr:    "cluster health is red",
		},
		{
			name:    "given unauthorized, then extracted message",
			status:  http.StatusUnauthorized,
			body:    `{"message":"missing authentication credentials"}`,
			wantErr: "missing authentication credentials",
		},
		{
			name:    "given empty body, then not ok",
			status:  http.StatusOK,
			wantErr: "empty health response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httpclient.NewMockTransport().StubPath(HealthPath, tt.status, tt.body)
			c := newTestClient(t, mock)

			res := c.Check(context.Background())
			assert.Equal(t, tt.wantOK, res.OK)
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantErr == "" {
				assert.NoError(t, res.Err)
			} else {
				assert.ErrorContains(t, res.Err, tt.wantErr)
			}
		})
	}
}

func TestClient_Check_SendsCredentials(t *testing.T) {
	mock := httpclient.NewMockTransport().StubPath(HealthPath, http.StatusOK, `{"status":"green"}`)
	c := newTestClient(t, mock, func(o *Options) {
		o.Username = "elastic"
		o.Password = "changeme"
	})

	require.True(t, c.Check(context.Background()).OK)

	req := mock.LastRequest()
	require.NotNil(t, req)
	user, pass, ok := req.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "elastic", user)
	assert.Equal(t, "changeme", pass)
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.NotEmpty(t, req.Header.Get(httpclient.RequestIDHeader))
}

func TestClient_WaitReady(t *testing.T) {
	t.Run("given red then green, then ready", func(t *testing.T) {
		mock := httpclient.NewMockTransport().
			Enqueue(http.StatusOK, `{"status":"red"}`).
			Enqueue(http.StatusServiceUnavailable, "").
			Enqueue(http.StatusOK, `{"status":"green"}`)
		c := newTestClient(t, mock)

		err := c.WaitReady(context.Background(), backoff.WithBackOff(&backoff.ZeroBackOff{}))
		require.NoError(t, err)
		assert.Equal(t, 3, mock.RequestCount())
	})

	t.Run("given unauthorized, then stops immediately", func(t *testing.T) {
		mock := httpclient.NewMockTransport().StubResponse(http.StatusUnauthorized, `{"message":"denied"}`)
		c := newTestClient(t, mock)

		err := c.WaitReady(context.Background(), backoff.WithBackOff(&backoff.ZeroBackOff{}))
		require.Error(t, err)
		assert.ErrorContains(t, err, "denied")
		assert.Equal(t, 1, mock.RequestCount())
	})

	t.Run("given transport failures, then gives up after max tries", func(t *testing.T) {
		mock := httpclient.NewMockTransport().StubError(errors.New("connection refused"))
		c := newTestClient(t, mock)

		err := c.WaitReady(context.Background(),
			backoff.WithBackOff(&backoff.ZeroBackOff{}),
			backoff.WithMaxTries(2),
		)
		require.Error(t, err)
		assert.Equal(t, 2, mock.RequestCount())
	})
}

func TestClient_EnsureIndex(t *testing.T) {
	tests := []struct {
		name        string
		head        int
		put         int
		putBody     string
		wantCreated bool
		wantErr     bool
		wantReqs    int
	}{
		{
			name:     "given existing index, then not created",
			head:     http.StatusOK,
			wantReqs: 1,
		},
		{
			name:        "given missing index, then created",
			head:        http.StatusNotFound,
			put:         http.StatusOK,
			putBody:     `{"acknowledged":true,"index":"zipkin-span"}`,
			wantCreated: true,
			wantReqs:    2,
		},
		{
			name:     "given concurrent creation, then not created",
			head:     http.StatusNotFound,
			put:      http.StatusBadRequest,
			putBody:  `{"error":{"type":"resource_already_exists_exception"},"status":400}`,
			wantReqs: 2,
		},
		{
			name:     "given invalid mapping, then error",
			head:     http.StatusNotFound,
			put:      http.StatusBadRequest,
			putBody:  `{"error":{"type":"mapper_parsing_exception"},"status":400}`,
			wantErr:  true,
			wantReqs: 2,
		},
		{
			name:     "given forbidden head, then error",
			head:     http.StatusForbidden,
			wantErr:  true,
			wantReqs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httpclient.NewMockTransport().Enqueue(tt.head, "")
			if tt.put != 0 {
				mock.Enqueue(tt.put, tt.putBody)
			}
			c := newTestClient(t, mock)

			created, err := c.EnsureIndex(context.Background(), "zipkin-span", map[string]any{
				"settings": map[string]int{"number_of_shards": 1},
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantReqs, mock.RequestCount())
		})
	}
}

func TestNew_MetricsAndBoundedDispatch(t *testing.T) {
	mock := httpclient.NewMockTransport().StubPath(HealthPath, http.StatusOK, `{"status":"green"}`)
	reg := prometheus.NewRegistry()
	c := newTestClient(t, mock, func(o *Options) {
		o.Registerer = reg
		o.MaxInFlight = 2
	})

	future := httpcall.NewFuture[string]()
	call := httpcall.NewCall(c.Factory(), httpcall.Get(HealthPath), httpcall.Field("status"), "async-health")
	require.NoError(t, call.Enqueue(context.Background(), future))

	got, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "green", got)

	count, err := testutil.GatherAndCount(reg, "storage_call_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
