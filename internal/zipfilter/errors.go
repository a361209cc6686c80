package zipfilter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEntryNotFound is returned when a requested entry does not exist in the archive.
var ErrEntryNotFound = errors.New("entry not found in archive")

// ConfigurationError is returned when a filter cannot be built from its configuration.
type ConfigurationError struct {
	Field string   // "match_type", "pattern" or "archive_path"
	Value string   // the rejected value
	Valid []string // accepted values, when the field is an enumeration
	Err   error    // underlying cause, if any
}

func (e *ConfigurationError) Error() string {
	switch {
	case len(e.Valid) > 0:
		return fmt.Sprintf("invalid %s %q; valid types are [%s]", e.Field, e.Value, strings.Join(e.Valid, ", "))
	case e.Err != nil:
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	default:
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ManifestFormatError is returned when manifest.json is valid JSON but does not
// carry the fields an acquisition manifest requires.
type ManifestFormatError struct {
	Msg   string
	Index int // offending result index, -1 when not result specific
}

func (e *ManifestFormatError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("manifest format: %s from audit result[%d]", e.Msg, e.Index)
	}
	return "manifest format: " + e.Msg
}

// DecryptionError is returned when none of the candidate passwords opens an entry.
type DecryptionError struct {
	Entry    string
	Attempts int
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("unknown password for entry %q (%d candidates tried)", e.Entry, e.Attempts)
}
