package sinks

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsafePath is returned when an output path would land outside the sink root.
var ErrUnsafePath = errors.New("path escapes sink root")

// CleanPath normalizes an entry or logical name into a relative, slash
// separated output path. Windows separators and drive letters are folded
// away so acquisitions from any host land under the sink root.
func CleanPath(p string) (string, error) {
	normalized := strings.ReplaceAll(p, `\`, "/")
	if len(normalized) >= 2 && normalized[1] == ':' && isDriveLetter(normalized[0]) {
		normalized = normalized[2:]
	}

	cleaned := path.Clean(normalized)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}

	cleaned = strings.TrimLeft(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}

	return cleaned, nil
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
