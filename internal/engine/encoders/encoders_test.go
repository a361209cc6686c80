package encoders

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	Name string `json:"name" yaml:"name"`
	Size int    `json:"size" yaml:"size"`
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestJSONEncoder(t *testing.T) {
	tests := []struct {
		name   string
		indent string
		want   string
	}{
		{
			name: "compact",
			want: `[{"name":"a.txt","size":3}]` + "\n",
		},
		{
			name:   "indented",
			indent: "  ",
			want:   "[\n  {\n    \"name\": \"a.txt\",\n    \"size\": 3\n  }\n]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewJSONEncoder(tt.indent)
			r, err := enc.Encode(t.Context(), []listing{{Name: "a.txt", Size: 3}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, readAll(t, r))
			assert.Equal(t, "json", enc.FileExtension())
		})
	}
}

func TestYAMLEncoder(t *testing.T) {
	enc := NewYAMLEncoder(0)
	r, err := enc.Encode(t.Context(), listing{Name: "a.txt", Size: 3})
	require.NoError(t, err)
	assert.Equal(t, "name: a.txt\nsize: 3\n", readAll(t, r))
	assert.Equal(t, "yaml", enc.FileExtension())
}

func TestNew(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{format: "", wantExt: "json"},
		{format: "json", wantExt: "json"},
		{format: "yaml", wantExt: "yaml"},
		{format: "yml", wantExt: "yaml"},
		{format: "toml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := New(tt.format, "")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.format)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, enc.FileExtension())
		})
	}
}
