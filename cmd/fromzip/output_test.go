package main

import (
	"bytes"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/infracollect/fromzip/internal/runner"
	"github.com/infracollect/fromzip/internal/zipfilter"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeka/zip"
)

func openTestFilter(t *testing.T, cfg zipfilter.Config, entries map[string]string, passwords map[string]string) *zipfilter.Filter {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		var (
			fw  io.Writer
			err error
		)
		if pw, ok := passwords[name]; ok {
			fw, err = w.Encrypt(name, pw, zip.AES256Encryption)
		} else {
			fw, err = w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		}
		require.NoError(t, err)
		_, err = io.WriteString(fw, entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/evidence.zip", buf.Bytes(), 0o644))

	cfg.ArchivePath = "/evidence.zip"
	f, err := zipfilter.Open(cfg, zipfilter.WithFs(fs))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, f.Close()) })
	return f
}

func TestWriteSection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSection(&buf, "Names"))
	assert.Equal(t, "Names\n=====\n", buf.String())
}

func TestFormatInfo(t *testing.T) {
	info := zipfilter.EntryInfo{
		Name:             "blob7",
		LogicalName:      `C:\Users\x\secrets.kdbx`,
		MethodName:       "deflate",
		CompressedSize:   10,
		UncompressedSize: 16,
		CRC32:            0xbeef,
		Modified:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Encrypted:        true,
	}

	assert.Equal(t,
		`name="blob7" logical="C:\\Users\\x\\secrets.kdbx" method=deflate size=16 compressed=10 crc32=0000beef encrypted=true modified=2024-05-01T12:00:00Z`,
		formatInfo(info),
	)

	assert.Equal(t,
		`name="a.txt" method=store size=0 compressed=0 crc32=00000000 encrypted=false`,
		formatInfo(zipfilter.EntryInfo{Name: "a.txt", MethodName: "store"}),
	)
}

func TestWriteFiles(t *testing.T) {
	entries := map[string]string{"a.txt": "line one\nline two", "b.txt": "b"}

	t.Run("raw", func(t *testing.T) {
		f := openTestFilter(t, zipfilter.Config{MatchType: zipfilter.EndsWith, Pattern: ".txt"}, entries, nil)

		var buf bytes.Buffer
		require.NoError(t, writeFiles(&buf, f.Files(), false))
		assert.Equal(t, "a.txt\nline one\nline two\nb.txt\nb\n", buf.String())
	})

	t.Run("quoted", func(t *testing.T) {
		f := openTestFilter(t, zipfilter.Config{MatchType: zipfilter.EndsWith, Pattern: ".txt"}, entries, nil)

		var buf bytes.Buffer
		require.NoError(t, writeFiles(&buf, f.Files(), true))
		assert.Equal(t, "a.txt\n\"line one\\nline two\"\nb.txt\n\"b\"\n", buf.String())
	})

	t.Run("undecryptable entries are reported", func(t *testing.T) {
		f := openTestFilter(t, zipfilter.Config{MatchType: zipfilter.EndsWith, Pattern: ".txt"},
			entries, map[string]string{"a.txt": "secret"})

		var buf bytes.Buffer
		err := writeFiles(&buf, f.Files(), false)
		var decErr *zipfilter.DecryptionError
		require.ErrorAs(t, err, &decErr)
		assert.Contains(t, buf.String(), "a.txt\n<unknown password")
		assert.Contains(t, buf.String(), "b.txt\nb\n")
	})
}

func TestWriteNamesAndInfos(t *testing.T) {
	f := openTestFilter(t, zipfilter.Config{MatchType: zipfilter.StartsWith, Pattern: "LOGS/"},
		map[string]string{"logs/app.log": "x", "logs/db.log": "yy", "other": "z"}, nil)

	var buf bytes.Buffer
	require.NoError(t, writeNames(&buf, f.Names()))
	assert.Equal(t, "logs/app.log\nlogs/db.log\n", buf.String())

	buf.Reset()
	require.NoError(t, writeInfos(&buf, f.Infos()))
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[1]), `name="logs/db.log"`)
	assert.Contains(t, string(lines[1]), "size=2")
}

func TestFormatValidationError(t *testing.T) {
	_, err := runner.ParseExtractJob([]byte("kind: ExtractJob\nmetadata: {name: a}\nspec: {match: {type: like, pattern: x}}"))
	require.Error(t, err)

	formatted := formatValidationError(err)
	assert.Contains(t, formatted.Error(), "job has 2 validation error(s):")
	assert.Contains(t, formatted.Error(), "ExtractJob.Spec.Archive: failed 'required' validation")
	assert.Contains(t, formatted.Error(), "ExtractJob.Spec.Match.Type: failed 'oneof' validation (param: starts_with contains ends_with regex)")
}
