package main

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/infracollect/fromzip/internal/zipfilter"
)

func writeSection(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("=", len(title)))
	return err
}

func writeNames(w io.Writer, names iter.Seq[string]) error {
	for name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}

func formatInfo(info zipfilter.EntryInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name=%q", info.Name)
	if info.LogicalName != "" {
		fmt.Fprintf(&sb, " logical=%q", info.LogicalName)
	}
	fmt.Fprintf(&sb, " method=%s size=%d compressed=%d crc32=%08x encrypted=%t",
		info.MethodName, info.UncompressedSize, info.CompressedSize, info.CRC32, info.Encrypted)
	if !info.Modified.IsZero() {
		fmt.Fprintf(&sb, " modified=%s", info.Modified.UTC().Format(time.RFC3339))
	}
	return sb.String()
}

func writeInfos(w io.Writer, infos iter.Seq[zipfilter.EntryInfo]) error {
	for info := range infos {
		if _, err := fmt.Fprintln(w, formatInfo(info)); err != nil {
			return err
		}
	}
	return nil
}

// writeFiles prints each entry name followed by its bytes, quoted when quote
// is set. Entries no password could open are reported and skipped; their
// count is returned as an error once every entry has been written.
func writeFiles(w io.Writer, files iter.Seq2[zipfilter.Entry, error], quote bool) error {
	var failed error
	for entry, err := range files {
		if err != nil {
			var decErr *zipfilter.DecryptionError
			if !errors.As(err, &decErr) {
				return err
			}
			failed = errors.Join(failed, err)
			if _, err := fmt.Fprintf(w, "%s\n<%v>\n", entry.Info.Name, decErr); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintln(w, entry.Info.Name); err != nil {
			return err
		}

		if quote {
			data, err := io.ReadAll(entry.Reader)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", entry.Info.Name, err)
			}
			if _, err := fmt.Fprintf(w, "%q\n", data); err != nil {
				return err
			}
			continue
		}

		if _, err := io.Copy(w, entry.Reader); err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Info.Name, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return failed
}
