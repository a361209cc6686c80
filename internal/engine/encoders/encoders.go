// Package encoders serializes entry listings for output.
package encoders

import (
	"fmt"

	"github.com/infracollect/fromzip/internal/engine"
)

// New returns the encoder for format ("json" or "yaml"). indent is passed to
// the JSON encoder as is and to the YAML encoder as its width in spaces.
func New(format string, indent string) (engine.Encoder, error) {
	switch format {
	case "", "json":
		return NewJSONEncoder(indent), nil
	case "yaml", "yml":
		return NewYAMLEncoder(len(indent)), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q (available: [json yaml])", format)
	}
}
