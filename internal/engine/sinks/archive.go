package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/infracollect/fromzip/internal/engine"
)

// ArchiveSink bundles every written entry into one archive. On Close the
// archive is written to the inner sink as name plus the archiver extension.
type ArchiveSink struct {
	inner    engine.Sink
	archiver engine.Archiver
	name     string
}

func NewArchiveSink(inner engine.Sink, archiver engine.Archiver, name string) *ArchiveSink {
	return &ArchiveSink{
		inner:    inner,
		archiver: archiver,
		name:     name,
	}
}

func (s *ArchiveSink) Name() string {
	return fmt.Sprintf("archive(%s)->%s", s.filename(), s.inner.Name())
}

func (s *ArchiveSink) Kind() string {
	return "archive"
}

func (s *ArchiveSink) filename() string {
	return s.name + s.archiver.Extension()
}

func (s *ArchiveSink) Write(ctx context.Context, path string, data io.Reader) error {
	member, err := CleanPath(path)
	if err != nil {
		return err
	}

	if err := s.archiver.AddFile(ctx, member, data); err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", member, err)
	}
	return nil
}

// Close finalizes the archive, hands it to the inner sink and closes it.
func (s *ArchiveSink) Close(ctx context.Context) (err error) {
	reader, err := s.archiver.Close()
	if err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	defer func() {
		err = errors.Join(err, reader.Close())
	}()

	if err := s.inner.Write(ctx, s.filename(), reader); err != nil {
		return fmt.Errorf("failed to write archive to sink: %w", err)
	}

	if err := s.inner.Close(ctx); err != nil {
		return fmt.Errorf("failed to close inner sink: %w", err)
	}

	return nil
}
