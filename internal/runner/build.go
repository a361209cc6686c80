package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	v1 "github.com/infracollect/fromzip/apis/v1"
	"github.com/infracollect/fromzip/internal/engine"
	"github.com/infracollect/fromzip/internal/engine/archivers"
	"github.com/infracollect/fromzip/internal/engine/encoders"
	"github.com/infracollect/fromzip/internal/engine/sinks"
	"github.com/infracollect/fromzip/internal/s3util"
	"github.com/spf13/afero"
)

// buildIndexEncoder creates the index encoder. JSON wins when both are set.
func buildIndexEncoder(spec *v1.IndexSpec) (engine.Encoder, error) {
	switch {
	case spec.JSON != nil:
		return encoders.NewJSONEncoder(spec.JSON.Indent), nil
	case spec.YAML != nil:
		return encoders.NewYAMLEncoder(spec.YAML.Indent), nil
	default:
		return nil, fmt.Errorf("index has no encoding specified")
	}
}

// buildInnerSink creates a sink from the job spec.
//
// Default behavior:
//   - No output spec or no sink: stdout sink
//   - Explicit stdout sink: stdout sink
//   - Explicit filesystem sink: filesystem sink rooted at path/prefix
//   - Explicit S3 sink: S3 sink
func buildInnerSink(ctx context.Context, job v1.ExtractJob, stdout io.Writer) (engine.Sink, error) {
	output := job.Spec.Output
	if output == nil || output.Sink == nil || output.Sink.Stdout != nil {
		if output != nil && output.Archive != nil {
			// The archive itself is the only thing written, keep it byte exact.
			return sinks.NewStreamSink(stdout), nil
		}
		return sinks.NewStreamSink(stdout, sinks.WithHeaders()), nil
	}

	if output.Sink.Filesystem != nil {
		return buildFilesystemSink(output.Sink.Filesystem)
	}

	if output.Sink.S3 != nil {
		return buildS3Sink(ctx, output.Sink.S3)
	}

	return nil, fmt.Errorf("invalid sink configuration: no sink type specified")
}

func wrapWithArchiveSink(job v1.ExtractJob, fs afero.Fs, inner engine.Sink) (engine.Sink, error) {
	archive := job.Spec.Output.Archive

	archiver, err := archivers.NewTarArchiver(fs, archive.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create tar archiver: %w", err)
	}

	name := archive.Name
	if name == "" {
		name = job.Metadata.Name
	}

	return sinks.NewArchiveSink(inner, archiver, name), nil
}

func buildFilesystemSink(spec *v1.FilesystemSinkSpec) (engine.Sink, error) {
	var path, prefix string
	if spec.Path != nil {
		path = *spec.Path
	}
	if spec.Prefix != nil {
		prefix = *spec.Prefix
	}

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = wd
	}

	return sinks.NewFilesystemSinkFromPath(filepath.Join(path, prefix))
}

func buildS3Sink(ctx context.Context, spec *v1.S3SinkSpec) (engine.Sink, error) {
	cfg := sinks.S3Config{
		Config: s3ConnectionConfig(spec.S3ConnectionSpec),
		Bucket: spec.Bucket,
	}
	if spec.Prefix != nil {
		cfg.Prefix = *spec.Prefix
	}

	return sinks.NewS3Sink(ctx, cfg)
}

func s3ConnectionConfig(spec v1.S3ConnectionSpec) s3util.Config {
	cfg := s3util.Config{ForcePathStyle: spec.ForcePathStyle}

	if spec.Region != nil {
		cfg.Region = *spec.Region
	}
	if spec.Endpoint != nil {
		cfg.Endpoint = *spec.Endpoint
	}
	if spec.Credentials != nil {
		cfg.AccessKeyID = spec.Credentials.AccessKeyID
		cfg.SecretAccessKey = spec.Credentials.SecretAccessKey
	}

	return cfg
}
