package zipfilter

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// NormalizePasswords returns the candidate list that extraction walks through.
// A nil element means "no password". The result always contains a nil element:
// when the input has none, one is prepended; otherwise the input order is kept.
// The input slice is never modified.
func NormalizePasswords(passwords []*string) []*string {
	if lo.Contains(passwords, nil) {
		return append([]*string(nil), passwords...)
	}

	normalized := make([]*string, 0, len(passwords)+1)
	normalized = append(normalized, nil)
	return append(normalized, passwords...)
}

// Literal turns plain strings into password candidates.
func Literal(passwords ...string) []*string {
	return lo.Map(passwords, func(p string, _ int) *string { return lo.ToPtr(p) })
}

// ReadPasswordFile reads one candidate per line from path. Trailing carriage
// returns are stripped, empty lines are skipped and the order is preserved.
func ReadPasswordFile(fs afero.Fs, path string) ([]*string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open password file %s: %w", path, err)
	}
	defer f.Close()

	passwords, err := readPasswords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read password file %s: %w", path, err)
	}
	return passwords, nil
}

func readPasswords(r io.Reader) ([]*string, error) {
	var passwords []*string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		passwords = append(passwords, lo.ToPtr(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return passwords, nil
}
