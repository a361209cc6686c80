package sinks

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemSink_Write(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	require.NoError(t, sink.Write(t.Context(), `C:\Users\x\secrets.kdbx`, strings.NewReader("keepass")))
	require.NoError(t, sink.Write(t.Context(), "a/report.TXT", strings.NewReader("numbers")))

	data, err := afero.ReadFile(fs, "Users/x/secrets.kdbx")
	require.NoError(t, err)
	assert.Equal(t, "keepass", string(data))

	data, err = afero.ReadFile(fs, "a/report.TXT")
	require.NoError(t, err)
	assert.Equal(t, "numbers", string(data))

	assert.Equal(t, "filesystem", sink.Kind())
	require.NoError(t, sink.Close(t.Context()))
}

func TestFilesystemSink_RejectsEscapingPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewFilesystemSink(fs)

	err := sink.Write(t.Context(), "../outside.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnsafePath)

	exists, err := afero.Exists(fs, "/outside.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFilesystemSinkFromPath(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFilesystemSinkFromPath(dir + "/out")
	require.NoError(t, err)

	require.NoError(t, sink.Write(t.Context(), "nested/file.txt", strings.NewReader("content")))

	data, err := afero.ReadFile(afero.NewOsFs(), dir+"/out/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}
