// Package source resolves archive locations into files zipfilter can open.
//
// Local paths are read in place. Remote archives (http, https and s3) are
// downloaded into a temporary file first because the zip central directory
// lives at the end of the archive and needs random access.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/infracollect/fromzip/internal/s3util"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const UserAgent = "fromzip/0.1.0"

// Archive is a resolved archive ready to be opened.
type Archive struct {
	Fs   afero.Fs
	Path string

	// Remote is true when Path is a temporary download.
	Remote  bool
	cleanup func() error
}

// Cleanup removes any temporary download. It is safe to call more than once.
func (a *Archive) Cleanup() error {
	if a.cleanup == nil {
		return nil
	}
	cleanup := a.cleanup
	a.cleanup = nil
	return cleanup()
}

// S3Downloader is an interface for downloading objects from S3.
// This allows for easy mocking in tests.
type S3Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

type Resolver struct {
	logger     *zap.Logger
	fs         afero.Fs
	tempFs     afero.Fs
	httpClient *http.Client
	s3         S3Downloader
	s3Config   s3util.Config
}

type Option func(*Resolver)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithFs sets the filesystem local paths are read from and downloads are
// written to.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fs
		r.tempFs = fs
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = client
	}
}

func WithS3Downloader(downloader S3Downloader) Option {
	return func(r *Resolver) {
		r.s3 = downloader
	}
}

// WithS3Config is used to build a downloader when none was provided.
func WithS3Config(cfg s3util.Config) Option {
	return func(r *Resolver) {
		r.s3Config = cfg
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		logger: zap.NewNop(),
		fs:     afero.NewOsFs(),
		tempFs: afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.httpClient == nil {
		// Archives can be large, the request context bounds the download instead
		// of a client timeout.
		r.httpClient = &http.Client{Transport: cleanhttp.DefaultPooledTransport()}
	}

	return r
}

// Resolve is a shortcut for NewResolver(opts...).Resolve(ctx, location).
func Resolve(ctx context.Context, location string, opts ...Option) (*Archive, error) {
	return NewResolver(opts...).Resolve(ctx, location)
}

// Resolve turns a path, file://, http(s):// or s3:// location into an Archive.
func (r *Resolver) Resolve(ctx context.Context, location string) (*Archive, error) {
	if location == "" {
		return nil, errors.New("archive location is required")
	}

	scheme, _, found := strings.Cut(location, "://")
	if !found {
		return r.local(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive location '%s': %w", location, err)
	}

	switch strings.ToLower(scheme) {
	case "file":
		return r.local(u.Path)
	case "http", "https":
		return r.download(ctx, location, func(ctx context.Context, f afero.File) error {
			return r.fetchHTTP(ctx, u, f)
		})
	case "s3":
		return r.download(ctx, location, func(ctx context.Context, f afero.File) error {
			return r.fetchS3(ctx, location, f)
		})
	default:
		return nil, fmt.Errorf("unsupported archive location scheme %q (supported: file, http, https, s3)", scheme)
	}
}

func (r *Resolver) local(path string) (*Archive, error) {
	if _, err := r.fs.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	return &Archive{Fs: r.fs, Path: path}, nil
}

func (r *Resolver) download(ctx context.Context, location string, fetch func(context.Context, afero.File) error) (_ *Archive, err error) {
	f, err := afero.TempFile(r.tempFs, "", "fromzip-*.zip")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	name := f.Name()
	remove := func() error {
		if err := r.tempFs.Remove(name); err != nil && !errors.Is(err, afero.ErrFileNotFound) {
			return fmt.Errorf("failed to remove temporary archive %s: %w", name, err)
		}
		return nil
	}

	defer func() {
		err = errors.Join(err, f.Close())
		if err != nil {
			err = errors.Join(err, remove())
		}
	}()

	r.logger.Debug("downloading archive", zap.String("location", location), zap.String("temp_file", name))
	if err := fetch(ctx, f); err != nil {
		return nil, err
	}

	return &Archive{Fs: r.tempFs, Path: name, Remote: true, cleanup: remove}, nil
}

func (r *Resolver) fetchHTTP(ctx context.Context, u *url.URL, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/zip, application/octet-stream")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to download %s: unexpected status %s", u.Redacted(), resp.Status)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", u.Redacted(), err)
	}

	r.logger.Debug("downloaded archive", zap.String("url", u.Redacted()), zap.Int64("bytes", n))
	return nil
}

func (r *Resolver) fetchS3(ctx context.Context, location string, w io.WriterAt) error {
	bucket, key, err := s3util.ParseURI(location)
	if err != nil {
		return err
	}

	if r.s3 == nil {
		client, err := s3util.NewClient(ctx, r.s3Config)
		if err != nil {
			return err
		}
		r.s3 = manager.NewDownloader(client)
	}

	n, err := r.s3.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}

	r.logger.Debug("downloaded archive", zap.String("bucket", bucket), zap.String("key", key), zap.Int64("bytes", n))
	return nil
}
