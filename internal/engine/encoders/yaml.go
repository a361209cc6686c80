package encoders

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/infracollect/fromzip/internal/engine"
)

const defaultYAMLIndent = 2

// YAMLEncoder implements engine.Encoder for YAML format.
type YAMLEncoder struct {
	indent int
}

// NewYAMLEncoder creates a YAML encoder. A non-positive indent uses two spaces.
func NewYAMLEncoder(indent int) engine.Encoder {
	if indent <= 0 {
		indent = defaultYAMLIndent
	}
	return &YAMLEncoder{indent: indent}
}

func (e *YAMLEncoder) Encode(ctx context.Context, v any) (io.Reader, error) {
	data, err := yaml.MarshalWithOptions(v, yaml.Indent(e.indent))
	if err != nil {
		return nil, fmt.Errorf("failed to encode as YAML: %w", err)
	}

	return bytes.NewReader(data), nil
}

// FileExtension returns "yaml".
func (e *YAMLEncoder) FileExtension() string {
	return "yaml"
}
