package sinks

import (
	"context"
	"fmt"
	"io"

	"github.com/infracollect/fromzip/internal/engine"
)

// StreamSink concatenates every written entry onto a single writer.
type StreamSink struct {
	w       io.Writer
	headers bool
}

type StreamOption func(*StreamSink)

// WithHeaders prefixes each entry with a "==> path <==" line, the way head(1)
// separates multiple files.
func WithHeaders() StreamOption {
	return func(s *StreamSink) {
		s.headers = true
	}
}

func NewStreamSink(w io.Writer, opts ...StreamOption) engine.Sink {
	s := &StreamSink{w: w}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StreamSink) Name() string {
	return "stream"
}

func (s *StreamSink) Kind() string {
	return "stream"
}

func (s *StreamSink) Write(ctx context.Context, path string, data io.Reader) error {
	if s.headers {
		if _, err := fmt.Fprintf(s.w, "==> %s <==\n", path); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", path, err)
		}
	}

	if _, err := io.Copy(s.w, data); err != nil {
		return fmt.Errorf("failed to copy %s: %w", path, err)
	}

	if s.headers {
		if _, err := io.WriteString(s.w, "\n"); err != nil {
			return fmt.Errorf("failed to write separator: %w", err)
		}
	}
	return nil
}

func (s *StreamSink) Close(ctx context.Context) error {
	return nil
}
