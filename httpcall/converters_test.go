package httpcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscard(t *testing.T) {
	got, err := Discard[map[string]string]()([]byte(`{"acknowledged":true}`))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBytes_Copies(t *testing.T) {
	content := []byte("abc")
	got, err := Bytes()(content)
	require.NoError(t, err)

	content[0] = 'x'
	assert.Equal(t, []byte("abc"), got)
}

func TestJSON(t *testing.T) {
	type health struct {
		Status        string `json:"status"`
		NumberOfNodes int    `json:"number_of_nodes"`
	}

	got, err := JSON[health]()([]byte(`{"status":"yellow","number_of_nodes":3}`))
	require.NoError(t, err)
	assert.Equal(t, health{Status: "yellow", NumberOfNodes: 3}, got)

	_, err = JSON[health]()([]byte(`not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode JSON")
}

func TestField(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		want    string
		wantErr bool
	}{
		{
			name: "given nested string, then returns it",
			path: "version.number",
			body: `{"version":{"number":"7.10.2"}}`,
			want: "7.10.2",
		},
		{
			name: "given number, then returns raw JSON",
			path: "count",
			body: `{"count":12}`,
			want: "12",
		},
		{
			name:    "given missing path, then error",
			path:    "version.number",
			body:    `{"name":"node-1"}`,
			wantErr: true,
		},
		{
			name:    "given invalid JSON, then error",
			path:    "status",
			body:    `{"status":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Field(tt.path)([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoolField(t *testing.T) {
	got, err := BoolField("acknowledged")([]byte(`{"acknowledged":true,"shards_acknowledged":false}`))
	require.NoError(t, err)
	assert.True(t, got)

	_, err = BoolField("acknowledged")([]byte(`{"acknowledged":"yes"}`))
	assert.Error(t, err)
}

func TestIntField(t *testing.T) {
	got, err := IntField("hits.total.value")([]byte(`{"hits":{"total":{"value":42,"relation":"eq"}}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	_, err = IntField("hits.total.relation")([]byte(`{"hits":{"total":{"value":42,"relation":"eq"}}}`))
	assert.Error(t, err)
}

func TestStrings(t *testing.T) {
	body := `{"aggregations":{"services":{"buckets":[{"key":"frontend"},{"key":"backend"}]}}}`

	got, err := Strings("aggregations.services.buckets.#.key")([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, []string{"frontend", "backend"}, got)

	_, err = Strings("aggregations.services")([]byte(body))
	assert.Error(t, err)
}
