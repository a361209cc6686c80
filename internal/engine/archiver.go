package engine

import (
	"context"
	"io"
)

// Archiver bundles written entries into a single archive.
type Archiver interface {
	// AddFile appends an entry named filename.
	AddFile(ctx context.Context, filename string, data io.Reader) error

	// Close finalizes the archive. The returned reader must be closed to
	// release any spooled data.
	Close() (io.ReadCloser, error)

	// Extension is the file extension of the archive, including the dot.
	Extension() string
}
