package httpcall

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Classify(t *testing.T) {
	type args struct {
		status     int
		statusLine string
		body       string
		path       string
	}

	tests := []struct {
		name       string
		args       args
		wantNil    bool
		wantErr    string
		wantStatus int
	}{
		{
			name:    "given 2xx, then no error",
			args:    args{status: http.StatusOK, body: "{}", path: "/"},
			wantNil: true,
		},
		{
			name:    "given 3xx, then no error",
			args:    args{status: http.StatusNotModified, path: "/"},
			wantNil: true,
		},
		{
			name:       "given 404, then path is the message",
			args:       args{status: http.StatusNotFound, body: "missing", path: "/zipkin-span-*/_doc/1"},
			wantErr:    "/zipkin-span-*/_doc/1",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "given empty body without status line, then builds one from the code",
			args:       args{status: http.StatusServiceUnavailable, path: "/_bulk"},
			wantErr:    "response for /_bulk failed: 503 Service Unavailable",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "given empty body with status line, then uses it",
			args:       args{status: http.StatusInternalServerError, statusLine: "500 Oops", path: "/"},
			wantErr:    "response for / failed: 500 Oops",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "given JSON without message, then falls back to the body",
			args:       args{status: http.StatusBadRequest, body: `{"error":"bad"}`, path: "/"},
			wantErr:    `response for / failed: {"error":"bad"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "given JSON array, then falls back to the body",
			args:       args{status: http.StatusBadRequest, body: `[{"message":"x"}]`, path: "/"},
			wantErr:    `response for / failed: [{"message":"x"}]`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "given uppercase message key, then extracts it",
			args:       args{status: http.StatusConflict, body: `{"MESSAGE":"hail"}`, path: "/"},
			wantErr:    "hail",
			wantStatus: http.StatusConflict,
		},
		{
			name:       "given nested message only, then falls back to the body",
			args:       args{status: http.StatusBadRequest, body: `{"error":{"message":"deep"}}`, path: "/"},
			wantErr:    `response for / failed: {"error":{"message":"deep"}}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{
				StatusCode: tt.args.status,
				Status:     tt.args.statusLine,
				Body:       []byte(tt.args.body),
			}

			err := resp.classify(tt.args.path)
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
			assert.Equal(t, tt.wantStatus, StatusCode(err))
		})
	}
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "given exact key, then returns it",
			body:   `{"message":"rain"}`,
			want:   "rain",
			wantOK: true,
		},
		{
			name:   "given leading whitespace, then still parses",
			body:   "  \n{\"Message\":\"snow\"}",
			want:   "snow",
			wantOK: true,
		},
		{
			name:   "given exact and differently cased keys, then exact key wins",
			body:   `{"Message":"b","message":"a"}`,
			want:   "a",
			wantOK: true,
		},
		{
			name:   "given numeric value, then returns raw JSON",
			body:   `{"message":42}`,
			want:   "42",
			wantOK: true,
		},
		{
			name: "given null value, then not found",
			body: `{"message":null}`,
		},
		{
			name: "given empty string value, then not found",
			body: `{"message":""}`,
		},
		{
			name: "given non-JSON text, then not found",
			body: "Message: sleet",
		},
		{
			name: "given malformed object, then not found",
			body: `{"message":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractMessage([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
