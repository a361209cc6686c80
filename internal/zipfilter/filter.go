// Package zipfilter selects entries of a zip archive by name and extracts them,
// trying a list of candidate passwords for encrypted entries.
//
// When the archive carries an acquisition manifest (manifest.json), names are
// matched against the logical file names recorded in the manifest instead of
// the raw payload entry names.
package zipfilter

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/spf13/afero"
	"github.com/yeka/zip"
	"go.uber.org/zap"
)

// Config describes which archive to open and which entries to select.
type Config struct {
	ArchivePath   string
	MatchType     MatchType
	Pattern       string
	CaseSensitive bool
	// Passwords are tried in order for encrypted entries. A nil element means
	// no password; one is prepended when absent.
	Passwords []*string
	// IgnoreManifest disables manifest resolution and matches raw entry names only.
	IgnoreManifest bool
}

// Option customizes a Filter.
type Option func(*Filter)

// WithLogger sets the logger used for manifest and decryption diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filter) {
		f.logger = logger
	}
}

// WithFs sets the filesystem the archive is read from. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(f *Filter) {
		f.fs = fs
	}
}

// EntryInfo describes a matched archive entry.
type EntryInfo struct {
	Name             string    `json:"name" yaml:"name"`
	LogicalName      string    `json:"logical_name" yaml:"logical_name"`
	Method           uint16    `json:"method" yaml:"method"`
	MethodName       string    `json:"method_name" yaml:"method_name"`
	CompressedSize   uint64    `json:"compressed_size" yaml:"compressed_size"`
	UncompressedSize uint64    `json:"uncompressed_size" yaml:"uncompressed_size"`
	CRC32            uint32    `json:"crc32" yaml:"crc32"`
	Modified         time.Time `json:"modified" yaml:"modified"`
	Encrypted        bool      `json:"encrypted" yaml:"encrypted"`
	Comment          string    `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Entry is a matched entry opened for reading. Reader is only valid until the
// iteration that produced it advances.
type Entry struct {
	Info   EntryInfo
	Reader io.Reader
}

// Filter holds an open archive and the set of entries matching its pattern.
type Filter struct {
	logger    *zap.Logger
	fs        afero.Fs
	file      afero.File
	reader    *zip.Reader
	matcher   *Matcher
	passwords []*string
	manifest  *Manifest
	// matched maps entry name to logical name. Nil in raw-name mode, where
	// membership is evaluated on every iteration.
	matched map[string]string
	closed  bool
}

// Open opens the archive, resolves its manifest and computes the matched entries.
// The archive stays open until Close; on error nothing is left open.
func Open(cfg Config, opts ...Option) (_ *Filter, err error) {
	registerDecompressors()

	if cfg.ArchivePath == "" {
		return nil, &ConfigurationError{Field: "archive_path", Value: cfg.ArchivePath, Err: errors.New("path is required")}
	}

	matcher, err := NewMatcher(cfg.MatchType, cfg.Pattern, cfg.CaseSensitive)
	if err != nil {
		return nil, err
	}

	f := &Filter{
		logger:    zap.NewNop(),
		fs:        afero.NewOsFs(),
		matcher:   matcher,
		passwords: NormalizePasswords(cfg.Passwords),
	}
	for _, opt := range opts {
		opt(f)
	}

	file, err := f.fs.Open(cfg.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", cfg.ArchivePath, err)
	}
	f.file = file
	defer func() {
		if err != nil {
			err = errors.Join(err, f.Close())
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive %s: %w", cfg.ArchivePath, err)
	}

	f.reader, err = zip.NewReader(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", cfg.ArchivePath, err)
	}

	if cfg.IgnoreManifest {
		f.logger.Debug("manifest resolution disabled, matching raw entry names")
		return f, nil
	}

	if err := f.loadManifest(); err != nil {
		return nil, err
	}
	f.buildMatchSet()

	return f, nil
}

func (f *Filter) loadManifest() error {
	zf := f.find(ManifestName)
	if zf == nil {
		f.logger.Debug("no manifest in archive")
		return nil
	}

	if zf.IsEncrypted() {
		f.logger.Warn("manifest is encrypted, matching raw entry names")
		return nil
	}

	rc, err := zf.Open()
	if err != nil {
		f.logger.Warn("manifest is unreadable, matching raw entry names", zap.Error(err))
		return nil
	}
	defer rc.Close()

	manifest, err := ParseManifest(rc, f.matcher.Match)
	if err != nil {
		var formatErr *ManifestFormatError
		if errors.As(err, &formatErr) {
			return err
		}
		f.logger.Warn("manifest is unreadable, matching raw entry names", zap.Error(err))
		return nil
	}
	if manifest == nil {
		f.logger.Warn("manifest is not valid JSON, matching raw entry names")
		return nil
	}

	f.manifest = manifest
	f.logger.Debug("manifest resolved", zap.Int("entries", manifest.Len()))
	return nil
}

func (f *Filter) buildMatchSet() {
	f.matched = make(map[string]string)

	for _, zf := range f.reader.File {
		if zf.FileInfo().IsDir() {
			continue
		}

		if f.manifest != nil {
			// The manifest only registers payloads whose file name matched.
			if entry, ok := f.manifest.Lookup(zf.Name); ok {
				f.matched[zf.Name] = entry.LogicalName()
			}
			continue
		}

		if f.matcher.Match(zf.Name) {
			f.matched[zf.Name] = zf.Name
		}
	}

	f.logger.Debug("match set computed", zap.Int("matched", len(f.matched)))
}

// Close releases the archive. Calling it more than once is a no-op.
func (f *Filter) Close() error {
	if f.closed || f.file == nil {
		return nil
	}
	f.closed = true
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return nil
}

// HasManifest reports whether names are resolved through an acquisition manifest.
func (f *Filter) HasManifest() bool {
	return f.manifest != nil
}

// Manifest returns the resolved manifest, or nil when none is in use.
func (f *Filter) Manifest() *Manifest {
	return f.manifest
}

// Passwords returns the normalized candidate list.
func (f *Filter) Passwords() []*string {
	return append([]*string(nil), f.passwords...)
}

// LogicalName returns the name entry was matched under and whether it matched.
func (f *Filter) LogicalName(entry string) (string, bool) {
	zf := f.find(entry)
	if zf == nil {
		return "", false
	}
	return f.logicalName(zf)
}

func (f *Filter) logicalName(zf *zip.File) (string, bool) {
	if f.matched != nil {
		name, ok := f.matched[zf.Name]
		return name, ok
	}
	if zf.FileInfo().IsDir() || !f.matcher.Match(zf.Name) {
		return "", false
	}
	return zf.Name, true
}

// matchedFiles walks archive entries in directory order, yielding matched ones.
func (f *Filter) matchedFiles() iter.Seq2[*zip.File, string] {
	return func(yield func(*zip.File, string) bool) {
		for _, zf := range f.reader.File {
			logical, ok := f.logicalName(zf)
			if !ok {
				continue
			}
			if !yield(zf, logical) {
				return
			}
		}
	}
}

// Names yields matched archive entry names in archive order.
func (f *Filter) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		for zf := range f.matchedFiles() {
			if !yield(zf.Name) {
				return
			}
		}
	}
}

// Infos yields metadata of matched entries in archive order.
func (f *Filter) Infos() iter.Seq[EntryInfo] {
	return func(yield func(EntryInfo) bool) {
		for zf, logical := range f.matchedFiles() {
			if !yield(newEntryInfo(zf, logical)) {
				return
			}
		}
	}
}

// Files opens matched entries in archive order. An entry that no password
// opens is yielded with a *DecryptionError; ranging on continues with the next
// entry. Each reader is closed once the consumer advances.
func (f *Filter) Files() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for zf, logical := range f.matchedFiles() {
			info := newEntryInfo(zf, logical)

			rc, err := f.open(zf)
			if err != nil {
				if !yield(Entry{Info: info}, err) {
					return
				}
				continue
			}

			cont := yield(Entry{Info: info, Reader: rc}, nil)
			if err := rc.Close(); err != nil {
				f.logger.Warn("failed to close entry", zap.String("entry", zf.Name), zap.Error(err))
			}
			if !cont {
				return
			}
		}
	}
}

func (f *Filter) find(name string) *zip.File {
	for _, zf := range f.reader.File {
		if zf.Name == name {
			return zf
		}
	}
	return nil
}

func newEntryInfo(zf *zip.File, logical string) EntryInfo {
	return EntryInfo{
		Name:             zf.Name,
		LogicalName:      logical,
		Method:           zf.Method,
		MethodName:       MethodName(zf.Method),
		CompressedSize:   zf.CompressedSize64,
		UncompressedSize: zf.UncompressedSize64,
		CRC32:            zf.CRC32,
		Modified:         zf.ModTime(),
		Encrypted:        zf.IsEncrypted(),
		Comment:          zf.Comment,
	}
}
