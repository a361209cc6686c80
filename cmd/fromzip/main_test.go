package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeka/zip"
)

// writeEvidence writes a zip with secret.txt encrypted under "a,b" and a plain notes.txt.
func writeEvidence(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "evidence.zip")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	w := zip.NewWriter(file)
	fw, err := w.Encrypt("secret.txt", "a,b", zip.AES256Encryption)
	require.NoError(t, err)
	_, err = io.WriteString(fw, "SECRET PAYLOAD")
	require.NoError(t, err)

	fw, err = w.CreateHeader(&zip.FileHeader{Name: "notes.txt", Method: zip.Store})
	require.NoError(t, err)
	_, err = io.WriteString(fw, "plain notes")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ExitErrHandler = nil

	err := app.Run(t.Context(), append([]string{"fromzip", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestApp_PasswordWithComma(t *testing.T) {
	archive := writeEvidence(t)

	t.Run("root command", func(t *testing.T) {
		out, err := runApp(t, "-p", "a,b", archive, "contains", "secret")
		require.NoError(t, err)
		assert.Contains(t, out, "SECRET PAYLOAD")
	})

	t.Run("extract", func(t *testing.T) {
		dir := t.TempDir()
		out, err := runApp(t, "extract", "-p", "a,b", "-o", dir, archive, "contains", "secret")
		require.NoError(t, err)
		assert.Contains(t, out, "extracted 1 entries")

		data, err := os.ReadFile(filepath.Join(dir, "secret.txt"))
		require.NoError(t, err)
		assert.Equal(t, "SECRET PAYLOAD", string(data))
	})

	t.Run("names", func(t *testing.T) {
		out, err := runApp(t, "names", "-p", "a,b", archive, "contains", "secret")
		require.NoError(t, err)
		assert.Equal(t, "secret.txt\n", out)
	})
}

func TestApp_EmptyPatternMatchesEverything(t *testing.T) {
	archive := writeEvidence(t)

	for _, matchType := range []string{"starts_with", "contains", "ends_with"} {
		t.Run(matchType, func(t *testing.T) {
			out, err := runApp(t, "names", archive, matchType, "")
			require.NoError(t, err)
			assert.Equal(t, "secret.txt\nnotes.txt\n", out)
		})
	}

	t.Run("extract", func(t *testing.T) {
		dir := t.TempDir()
		out, err := runApp(t, "extract", "-p", "a,b", "-o", dir, archive, "contains", "")
		require.NoError(t, err)
		assert.Contains(t, out, "extracted 2 entries")
		assert.FileExists(t, filepath.Join(dir, "notes.txt"))
		assert.FileExists(t, filepath.Join(dir, "secret.txt"))
	})

	t.Run("missing pattern", func(t *testing.T) {
		_, err := runApp(t, "names", archive, "contains")
		require.Error(t, err)
		assert.ErrorContains(t, err, "expected <archive> <match_type> <pattern>")
	})
}
