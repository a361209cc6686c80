package zipfilter

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/yeka/zip"
)

type testEntry struct {
	name      string
	content   string
	method    uint16
	password  string // encrypts the entry when set
	zipCrypto bool   // legacy ZipCrypto instead of AES-256
}

var registerCompressorOnce sync.Once

func buildArchive(t *testing.T, entries ...testEntry) []byte {
	t.Helper()

	registerCompressorOnce.Do(func() {
		zip.RegisterCompressor(ZstdMethod, zip.Compressor(zstd.ZipCompressor()))
	})

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		var (
			fw  io.Writer
			err error
		)
		switch {
		case e.password != "" && e.zipCrypto:
			fw, err = w.Encrypt(e.name, e.password, zip.StandardEncryption)
		case e.password != "":
			fw, err = w.Encrypt(e.name, e.password, zip.AES256Encryption)
		default:
			fw, err = w.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		}
		require.NoError(t, err)

		_, err = io.WriteString(fw, e.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// writeArchive stores an archive built from entries at /evidence.zip on a memory filesystem.
func writeArchive(t *testing.T, entries ...testEntry) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/evidence.zip", buildArchive(t, entries...), 0o644))
	return fs
}

func openFilter(t *testing.T, fs afero.Fs, cfg Config, opts ...Option) *Filter {
	t.Helper()

	if cfg.ArchivePath == "" {
		cfg.ArchivePath = "/evidence.zip"
	}

	f, err := Open(cfg, append([]Option{WithFs(fs)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, f.Close()) })
	return f
}

type testMeta struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type testResult struct {
	Payload  string     `json:"payload"`
	Metadata []testMeta `json:"metadata"`
}

// acquisitionManifest renders a manifest with one multi-file acquisition audit.
func acquisitionManifest(t *testing.T, results ...testResult) string {
	t.Helper()

	doc := map[string]any{
		"audits": []any{
			map[string]any{
				"generator": AcquisitionGenerator,
				"results":   results,
			},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

func acquired(payload, path, name string) testResult {
	return testResult{
		Payload: payload,
		Metadata: []testMeta{
			{Name: FilePathKey, Value: path},
			{Name: FileNameKey, Value: name},
		},
	}
}

// trackingFs records whether files opened through it were closed.
type trackingFs struct {
	afero.Fs
	opened []*trackingFile
}

type trackingFile struct {
	afero.File
	closed bool
}

func (f *trackingFile) Close() error {
	f.closed = true
	return f.File.Close()
}

func (fs *trackingFs) Open(name string) (afero.File, error) {
	file, err := fs.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	tracked := &trackingFile{File: file}
	fs.opened = append(fs.opened, tracked)
	return tracked, nil
}
