// Package archivers bundles extracted entries into tar archives.
package archivers

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/infracollect/fromzip/internal/engine"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// CompressionType defines supported compression algorithms.
type CompressionType string

const (
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
	CompressionNone CompressionType = "none"
)

// TarArchiver writes a tar stream, optionally compressed, into a spool file
// so that large extractions are not held in memory.
type TarArchiver struct {
	fs          afero.Fs
	spool       afero.File
	compressor  io.WriteCloser
	tarWriter   *tar.Writer
	compression CompressionType
	modTime     time.Time
	closed      bool
}

// NewTarArchiver creates a tar archiver spooling to a temporary file on fs.
// An empty compression defaults to gzip.
func NewTarArchiver(fs afero.Fs, compression string) (engine.Archiver, error) {
	ct := CompressionType(compression)
	if ct == "" {
		ct = CompressionGzip
	}
	switch ct {
	case CompressionGzip, CompressionZstd, CompressionNone:
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compression)
	}

	spool, err := afero.TempFile(fs, "", "fromzip-bundle-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}

	var compressor io.WriteCloser
	switch ct {
	case CompressionGzip:
		compressor = gzip.NewWriter(spool)
	case CompressionZstd:
		compressor, err = zstd.NewWriter(spool)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to create zstd writer: %w", err), spool.Close(), fs.Remove(spool.Name()))
		}
	case CompressionNone:
		compressor = nopWriteCloser{spool}
	}

	return &TarArchiver{
		fs:          fs,
		spool:       spool,
		compressor:  compressor,
		tarWriter:   tar.NewWriter(compressor),
		compression: ct,
		modTime:     time.Now(),
	}, nil
}

func (a *TarArchiver) AddFile(ctx context.Context, filename string, data io.Reader) error {
	if a.closed {
		return fmt.Errorf("archiver is closed")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	// Tar headers carry the size up front.
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     filename,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  a.modTime,
	}

	if err := a.tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", filename, err)
	}

	if _, err := a.tarWriter.Write(content); err != nil {
		return fmt.Errorf("failed to write tar content for %s: %w", filename, err)
	}

	return nil
}

// Close finalizes the archive and rewinds the spool file for reading.
// Closing the returned reader removes the spool file.
func (a *TarArchiver) Close() (io.ReadCloser, error) {
	if a.closed {
		return nil, fmt.Errorf("archiver already closed")
	}
	a.closed = true

	if err := errors.Join(a.tarWriter.Close(), a.compressor.Close()); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to finalize archive: %w", err), a.release())
	}

	if _, err := a.spool.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to rewind spool file: %w", err), a.release())
	}

	return &spoolReader{File: a.spool, release: a.release}, nil
}

func (a *TarArchiver) release() error {
	return errors.Join(a.spool.Close(), a.fs.Remove(a.spool.Name()))
}

func (a *TarArchiver) Extension() string {
	switch a.compression {
	case CompressionGzip:
		return ".tar.gz"
	case CompressionZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

type spoolReader struct {
	afero.File
	release func() error
}

func (r *spoolReader) Close() error {
	return r.release()
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
