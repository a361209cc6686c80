package runner

import (
	"bytes"
	"strings"
	"testing"

	v1 "github.com/infracollect/fromzip/apis/v1"
	"github.com/infracollect/fromzip/internal/s3util"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexEncoder(t *testing.T) {
	enc, err := buildIndexEncoder(&v1.IndexSpec{JSON: &v1.JSONEncodingSpec{Indent: "  "}})
	require.NoError(t, err)
	assert.Equal(t, "json", enc.FileExtension())

	enc, err = buildIndexEncoder(&v1.IndexSpec{YAML: &v1.YAMLEncodingSpec{Indent: 4}})
	require.NoError(t, err)
	assert.Equal(t, "yaml", enc.FileExtension())

	_, err = buildIndexEncoder(&v1.IndexSpec{})
	require.Error(t, err)
}

func TestBuildInnerSink(t *testing.T) {
	t.Run("stdout by default with headers", func(t *testing.T) {
		var buf bytes.Buffer
		sink, err := buildInnerSink(t.Context(), testJob("a.zip"), &buf)
		require.NoError(t, err)
		assert.Equal(t, "stream", sink.Kind())

		require.NoError(t, sink.Write(t.Context(), "a.txt", strings.NewReader("a")))
		assert.Equal(t, "==> a.txt <==\na\n", buf.String())
	})

	t.Run("filesystem", func(t *testing.T) {
		job := testJob("a.zip")
		job.Spec.Output = &v1.OutputSpec{Sink: &v1.SinkSpec{Filesystem: &v1.FilesystemSinkSpec{
			Path:   lo.ToPtr(t.TempDir()),
			Prefix: lo.ToPtr("case-42"),
		}}}

		sink, err := buildInnerSink(t.Context(), job, nil)
		require.NoError(t, err)
		assert.Equal(t, "filesystem", sink.Kind())
	})

	t.Run("empty sink spec", func(t *testing.T) {
		job := testJob("a.zip")
		job.Spec.Output = &v1.OutputSpec{Sink: &v1.SinkSpec{}}

		_, err := buildInnerSink(t.Context(), job, nil)
		require.Error(t, err)
	})
}

func TestS3ConnectionConfig(t *testing.T) {
	assert.Equal(t, s3util.Config{}, s3ConnectionConfig(v1.S3ConnectionSpec{}))

	assert.Equal(t, s3util.Config{
		Region:          "auto",
		Endpoint:        "https://minio.local",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		ForcePathStyle:  true,
	}, s3ConnectionConfig(v1.S3ConnectionSpec{
		Region:         lo.ToPtr("auto"),
		Endpoint:       lo.ToPtr("https://minio.local"),
		ForcePathStyle: true,
		Credentials:    &v1.S3Credentials{AccessKeyID: "key", SecretAccessKey: "secret"},
	}))
}
