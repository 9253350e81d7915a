package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doGet sends a GET through a client built on a fresh MockTransport and
// returns the request the transport received.
func doGet(t *testing.T, opts ...Option) (*http.Request, error) {
	t.Helper()
	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := New(append([]Option{
		WithBaseURL("http://search:9200"),
		WithMockTransport(mock),
		WithLogger(zerolog.Nop()),
	}, opts...)...)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://search:9200/test", nil)
	require.NoError(t, err)

	resp, err := client.HTTP().Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return mock.LastRequest(), nil
}

func TestRequestInterceptors(t *testing.T) {
	tests := []struct {
		name   string
		option Option
		header string
		want   string
	}{
		{
			name:   "given bearer token, then sets Authorization",
			option: WithRequestInterceptor(AuthBearerInterceptor("test-token-123")),
			header: "Authorization",
			want:   "Bearer test-token-123",
		},
		{
			name: "given bearer token func, then sets Authorization",
			option: WithRequestInterceptor(AuthBearerFuncInterceptor(func() (string, error) {
				return "refreshed", nil
			})),
			header: "Authorization",
			want:   "Bearer refreshed",
		},
		{
			name:   "given api key, then sets the named header",
			option: WithRequestInterceptor(APIKeyInterceptor("X-API-Key", "my-secret-key")),
			header: "X-API-Key",
			want:   "my-secret-key",
		},
		{
			name:   "given user agent, then sets User-Agent",
			option: WithRequestInterceptor(UserAgentInterceptor("MyApp/1.0")),
			header: "User-Agent",
			want:   "MyApp/1.0",
		},
		{
			name:   "given basic auth, then sets Authorization",
			option: WithBasicAuth("elastic", "changeme"),
			header: "Authorization",
			want:   "Basic ZWxhc3RpYzpjaGFuZ2VtZQ==",
		},
		{
			name:   "given basic auth without username, then no Authorization",
			option: WithBasicAuth("", "ignored"),
			header: "Authorization",
			want:   "",
		},
		{
			name:   "given default headers, then sets them",
			option: WithDefaultHeaders(map[string]string{"Accept": "application/json"}),
			header: "Accept",
			want:   "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doGet(t, tt.option)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Header.Get(tt.header))
		})
	}
}

func TestInterceptors_ExecuteInOrder(t *testing.T) {
	var order []int

	_, err := doGet(t,
		WithRequestInterceptor(func(*http.Request) error { order = append(order, 1); return nil }),
		WithRequestInterceptor(func(*http.Request) error { order = append(order, 2); return nil }),
		WithRequestInterceptor(func(*http.Request) error { order = append(order, 3); return nil }),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestInterceptors_ErrorStopsChain(t *testing.T) {
	errInterceptor := errors.New("interceptor error")
	secondCalled := false

	_, err := doGet(t,
		WithRequestInterceptor(func(*http.Request) error { return errInterceptor }),
		WithRequestInterceptor(func(*http.Request) error { secondCalled = true; return nil }),
	)
	require.ErrorIs(t, err, errInterceptor)
	assert.False(t, secondCalled)
}

func TestHeaderInterceptor_KeepsExisting(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://search:9200/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/plain")

	require.NoError(t, HeaderInterceptor(map[string]string{
		"Accept":      "application/json",
		"X-Opaque-Id": "q1",
	})(req))

	assert.Equal(t, "text/plain", req.Header.Get("Accept"))
	assert.Equal(t, "q1", req.Header.Get("X-Opaque-Id"))
}

func TestInterceptors_RecordForwardedHeaders(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	rt := Chain(mock, Interceptors(UserAgentInterceptor("MyApp/1.0")))

	log := NewExchangeLog()
	req, err := http.NewRequestWithContext(WithExchangeLog(context.Background(), log),
		http.MethodGet, "http://search:9200/", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.NotNil(t, log.RequestHeader())
	assert.Equal(t, "MyApp/1.0", log.RequestHeader().Get("User-Agent"))
}

func TestInterceptors_DoNotMutateCallerRequest(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	rt := Chain(mock, Interceptors(UserAgentInterceptor("MyApp/1.0")))

	req, err := http.NewRequest(http.MethodGet, "http://search:9200/", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("User-Agent"))
	assert.Equal(t, "MyApp/1.0", mock.LastRequest().Header.Get("User-Agent"))
}
