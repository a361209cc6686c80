package archivers

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readTarEntries decompresses r and returns a map of filename to content.
func readTarEntries(t *testing.T, r io.Reader, compression string) map[string]string {
	t.Helper()

	var decompressed io.Reader
	switch compression {
	case "gzip":
		gr, err := gzip.NewReader(r)
		require.NoError(t, err)
		defer gr.Close()
		decompressed = gr
	case "zstd":
		zr, err := zstd.NewReader(r)
		require.NoError(t, err)
		defer zr.Close()
		decompressed = zr
	case "none":
		decompressed = r
	default:
		t.Fatalf("unknown compression: %s", compression)
	}

	tr := tar.NewReader(decompressed)
	found := make(map[string]string)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		found[h.Name] = string(content)
	}
	return found
}

func spoolFiles(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	matches, err := afero.Glob(fs, filepath.Join(os.TempDir(), "fromzip-bundle-*"))
	require.NoError(t, err)
	return matches
}

func TestTarArchiver(t *testing.T) {
	tests := []struct {
		compression string
		wantExt     string
	}{
		{compression: "", wantExt: ".tar.gz"},
		{compression: "gzip", wantExt: ".tar.gz"},
		{compression: "zstd", wantExt: ".tar.zst"},
		{compression: "none", wantExt: ".tar"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("compression %q", tt.compression), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			archiver, err := NewTarArchiver(fs, tt.compression)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, archiver.Extension())

			require.NoError(t, archiver.AddFile(t.Context(), "Users/x/secrets.kdbx", strings.NewReader("keepass")))
			require.NoError(t, archiver.AddFile(t.Context(), "etc/passwd", strings.NewReader("root:x:0:0")))

			rc, err := archiver.Close()
			require.NoError(t, err)

			compression := tt.compression
			if compression == "" {
				compression = "gzip"
			}
			assert.Equal(t, map[string]string{
				"Users/x/secrets.kdbx": "keepass",
				"etc/passwd":           "root:x:0:0",
			}, readTarEntries(t, rc, compression))

			require.NoError(t, rc.Close())
			assert.Empty(t, spoolFiles(t, fs), "closing the reader removes the spool file")
		})
	}
}

func TestTarArchiver_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := NewTarArchiver(fs, "brotli")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported compression type")
	assert.Empty(t, spoolFiles(t, fs))

	archiver, err := NewTarArchiver(fs, "none")
	require.NoError(t, err)

	rc, err := archiver.Close()
	require.NoError(t, err)
	defer rc.Close()

	_, err = archiver.Close()
	assert.ErrorContains(t, err, "already closed")

	err = archiver.AddFile(t.Context(), "late.txt", strings.NewReader("x"))
	assert.ErrorContains(t, err, "archiver is closed")
}
