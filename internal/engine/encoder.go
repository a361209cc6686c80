package engine

import (
	"context"
	"io"
)

// Encoder serializes listings (entry metadata, extraction indexes) into a text format.
type Encoder interface {
	// Encode serializes v and returns the encoded bytes.
	Encode(ctx context.Context, v any) (io.Reader, error)

	// FileExtension returns extension without dot (e.g., "json").
	FileExtension() string
}
