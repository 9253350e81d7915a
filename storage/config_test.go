package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sentinel-call-go/httpclient"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: https://search.internal:9200
index: traces
username: elastic
password: changeme
timeout: 3s
http_logging: headers
max_in_flight: 16
`), 0o600))

	opts, err := LoadOptions(path)
	require.NoError(t, err)

	assert.Equal(t, "https://search.internal:9200", opts.URL)
	assert.Equal(t, "traces", opts.Index)
	assert.Equal(t, "elastic", opts.Username)
	assert.Equal(t, "changeme", opts.Password)
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.Equal(t, httpclient.LoggingHeaders, opts.HTTPLogging)
	assert.Equal(t, int64(16), opts.MaxInFlight)
	assert.Equal(t, "search", opts.ServiceName, "absent keys keep defaults")
}

func TestLoadOptions_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadOptions(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read storage config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("http_logging: verbose\n"), 0o600))
	_, err = LoadOptions(bad)
	assert.ErrorContains(t, err, "failed to parse storage config")
}

func TestOptions_ApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    func(*testing.T, Options)
		wantErr bool
	}{
		{
			name: "given no variables, then defaults stay",
			env:  map[string]string{},
			want: func(t *testing.T, o Options) {
				assert.Equal(t, DefaultOptions(), o)
			},
		},
		{
			name: "given debug true, then body logging",
			env:  map[string]string{EnvDebug: "true"},
			want: func(t *testing.T, o Options) {
				assert.Equal(t, httpclient.LoggingBody, o.HTTPLogging)
			},
		},
		{
			name: "given debug false, then logging unchanged",
			env:  map[string]string{EnvDebug: "false"},
			want: func(t *testing.T, o Options) {
				assert.Equal(t, httpclient.LoggingNone, o.HTTPLogging)
			},
		},
		{
			name: "given connection variables, then overrides",
			env: map[string]string{
				EnvURL:      "http://es:9200",
				EnvIndex:    "zipkin2",
				EnvUsername: "u",
				EnvPassword: "p",
				EnvTimeout:  "250ms",
			},
			want: func(t *testing.T, o Options) {
				assert.Equal(t, "http://es:9200", o.URL)
				assert.Equal(t, "zipkin2", o.Index)
				assert.Equal(t, "u", o.Username)
				assert.Equal(t, "p", o.Password)
				assert.Equal(t, 250*time.Millisecond, o.Timeout)
			},
		},
		{
			name:    "given invalid debug flag, then error",
			env:     map[string]string{EnvDebug: "maybe"},
			wantErr: true,
		},
		{
			name:    "given invalid timeout, then error",
			env:     map[string]string{EnvTimeout: "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			err := opts.ApplyEnv(envLookup(tt.env))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want(t, opts)
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{name: "given defaults, then valid", mutate: func(*Options) {}},
		{name: "given no url, then error", mutate: func(o *Options) { o.URL = "" }, wantErr: "url is required"},
		{name: "given ftp url, then error", mutate: func(o *Options) { o.URL = "ftp://x" }, wantErr: "scheme"},
		{name: "given no index, then error", mutate: func(o *Options) { o.Index = "" }, wantErr: "index is required"},
		{name: "given wildcard index, then error", mutate: func(o *Options) { o.Index = "zipkin*" }, wantErr: "invalid index"},
		{name: "given negative timeout, then error", mutate: func(o *Options) { o.Timeout = -time.Second }, wantErr: "timeout"},
		{name: "given negative max in flight, then error", mutate: func(o *Options) { o.MaxInFlight = -1 }, wantErr: "max_in_flight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
