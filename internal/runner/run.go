package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	v1 "github.com/infracollect/fromzip/apis/v1"
	"github.com/infracollect/fromzip/internal/engine"
	"github.com/infracollect/fromzip/internal/source"
	"github.com/infracollect/fromzip/internal/zipfilter"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Runner struct {
	logger    *zap.Logger
	job       v1.ExtractJob
	fs        afero.Fs
	stdout    io.Writer
	variables map[string]string
	resolver  *source.Resolver
	srcOpts   []source.Option
	sink      engine.Sink
	index     engine.Encoder
	passwords []*string
}

type Option func(*Runner)

// WithFs sets the filesystem used for local archives, password files and
// downloads.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithSink replaces the sink configured in the job. An archive, when
// configured, still wraps it.
func WithSink(sink engine.Sink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithStdout sets the writer used by the stdout sink.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

// WithVariables provides the values password_env names are looked up in,
// usually the output of BuildVariables.
func WithVariables(variables map[string]string) Option {
	return func(r *Runner) {
		r.variables = variables
	}
}

// WithSourceOptions passes extra options to the archive resolver.
func WithSourceOptions(opts ...source.Option) Option {
	return func(r *Runner) {
		r.srcOpts = append(r.srcOpts, opts...)
	}
}

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// ParseExtractJob parses a YAML or JSON job file and validates it against the
// struct tags of v1.ExtractJob.
func ParseExtractJob(data []byte) (v1.ExtractJob, error) {
	var job v1.ExtractJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.ExtractJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := ValidateExtractJob(job); err != nil {
		return v1.ExtractJob{}, err
	}

	return job, nil
}

// ValidateExtractJob checks job against the struct tags of v1.ExtractJob.
func ValidateExtractJob(job v1.ExtractJob) error {
	if err := defaultValidator.Struct(job); err != nil {
		return fmt.Errorf("failed to validate job: %w", err)
	}
	return nil
}

// BuildVariables creates the variables map for template expansion. It holds
// built-in variables and the allowed environment variables, all of which
// must be set.
func BuildVariables(job v1.ExtractJob, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format(engine.ISO8601Basic),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// New builds a runner for an already validated and expanded job.
func New(ctx context.Context, logger *zap.Logger, job v1.ExtractJob, opts ...Option) (*Runner, error) {
	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name))

	r := &Runner{
		logger: logger,
		job:    job,
		fs:     afero.NewOsFs(),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.resolver = source.NewResolver(append(r.sourceOptions(), r.srcOpts...)...)

	passwords, err := r.buildPasswords()
	if err != nil {
		return nil, fmt.Errorf("failed to build password list: %w", err)
	}
	r.passwords = passwords

	if job.Spec.Output != nil && job.Spec.Output.Index != nil {
		r.index, err = buildIndexEncoder(job.Spec.Output.Index)
		if err != nil {
			return nil, fmt.Errorf("failed to build index encoder: %w", err)
		}
	}

	if r.sink == nil {
		r.sink, err = buildInnerSink(ctx, job, r.stdout)
		if err != nil {
			return nil, fmt.Errorf("failed to build sink: %w", err)
		}
	}

	if job.Spec.Output != nil && job.Spec.Output.Archive != nil {
		r.sink, err = wrapWithArchiveSink(job, r.fs, r.sink)
		if err != nil {
			return nil, fmt.Errorf("failed to build archive sink: %w", err)
		}
	}

	logger.Debug("runner ready",
		zap.String("sink", r.sink.Name()),
		zap.Int("password_candidates", len(r.passwords)),
	)

	return r, nil
}

func (r *Runner) sourceOptions() []source.Option {
	opts := []source.Option{
		source.WithLogger(r.logger.Named("source")),
		source.WithFs(r.fs),
	}
	if r.job.Spec.Source != nil && r.job.Spec.Source.S3 != nil {
		opts = append(opts, source.WithS3Config(s3ConnectionConfig(*r.job.Spec.Source.S3)))
	}
	return opts
}

// buildPasswords concatenates literal passwords, password_env values and the
// password file, in that order.
func (r *Runner) buildPasswords() ([]*string, error) {
	spec := r.job.Spec
	passwords := append([]*string(nil), spec.Passwords...)

	var errs error
	for _, name := range spec.PasswordEnv {
		val, ok := r.variables[name]
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("password_env %q is not in the allowed environment list", name))
			continue
		}
		passwords = append(passwords, &val)
	}
	if errs != nil {
		return nil, errs
	}

	if spec.PasswordFile != nil {
		fromFile, err := zipfilter.ReadPasswordFile(r.fs, *spec.PasswordFile)
		if err != nil {
			return nil, err
		}
		passwords = append(passwords, fromFile...)
	}

	return zipfilter.NormalizePasswords(passwords), nil
}

// Summary reports what a run extracted.
type Summary struct {
	Extracted []IndexEntry  `json:"extracted" yaml:"extracted"`
	Failed    []FailedEntry `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// IndexEntry is an extracted entry and where it was written.
type IndexEntry struct {
	zipfilter.EntryInfo `yaml:",inline"`
	Output              string `json:"output" yaml:"output"`
}

// FailedEntry is an entry skipped because of continue_on_error.
type FailedEntry struct {
	Name  string `json:"name" yaml:"name"`
	Error string `json:"error" yaml:"error"`
}

type indexDocument struct {
	Job     string `json:"job" yaml:"job"`
	Archive string `json:"archive" yaml:"archive"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Summary `yaml:",inline"`
}

func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	spec := r.job.Spec

	defer func() {
		// The sink is closed even when the context is already cancelled.
		if closeErr := r.sink.Close(context.WithoutCancel(ctx)); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close sink: %w", closeErr))
		}
	}()

	archive, err := r.resolver.Resolve(ctx, spec.Archive)
	if err != nil {
		return summary, fmt.Errorf("failed to resolve archive: %w", err)
	}
	defer func() {
		if cleanupErr := archive.Cleanup(); cleanupErr != nil {
			r.logger.Warn("failed to clean up archive", zap.String("path", archive.Path), zap.Error(cleanupErr))
		}
	}()

	filter, err := zipfilter.Open(zipfilter.Config{
		ArchivePath:    archive.Path,
		MatchType:      zipfilter.MatchType(spec.Match.Type),
		Pattern:        spec.Match.Pattern,
		CaseSensitive:  spec.Match.CaseSensitive,
		Passwords:      r.passwords,
		IgnoreManifest: spec.ManifestAware != nil && !*spec.ManifestAware,
	}, zipfilter.WithFs(archive.Fs), zipfilter.WithLogger(r.logger.Named("zipfilter")))
	if err != nil {
		return summary, fmt.Errorf("failed to open archive %s: %w", spec.Archive, err)
	}
	defer func() {
		err = errors.Join(err, filter.Close())
	}()

	r.logger.Info("extracting entries",
		zap.String("archive", spec.Archive),
		zap.String("match_type", spec.Match.Type),
		zap.String("pattern", spec.Match.Pattern),
		zap.Bool("manifest", filter.HasManifest()),
	)

	continueOnError := spec.Output != nil && spec.Output.ContinueOnError
	for entry, entryErr := range filter.Files() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if entryErr != nil {
			var decErr *zipfilter.DecryptionError
			if continueOnError && errors.As(entryErr, &decErr) {
				r.logger.Warn("skipping entry", zap.String("entry", entry.Info.Name), zap.Error(entryErr))
				summary.Failed = append(summary.Failed, FailedEntry{Name: entry.Info.Name, Error: entryErr.Error()})
				continue
			}
			return summary, fmt.Errorf("failed to read entry %s: %w", entry.Info.Name, entryErr)
		}

		output := r.outputPath(entry.Info)
		if err := r.sink.Write(ctx, output, entry.Reader); err != nil {
			return summary, fmt.Errorf("failed to write entry %s: %w", entry.Info.Name, err)
		}

		r.logger.Debug("extracted entry", zap.String("entry", entry.Info.Name), zap.String("output", output))
		summary.Extracted = append(summary.Extracted, IndexEntry{EntryInfo: entry.Info, Output: output})
	}

	if r.index != nil {
		if err := r.writeIndex(ctx, summary); err != nil {
			return summary, err
		}
	}

	r.logger.Info("extraction finished",
		zap.Int("extracted", len(summary.Extracted)),
		zap.Int("failed", len(summary.Failed)),
	)

	return summary, nil
}

func (r *Runner) outputPath(info zipfilter.EntryInfo) string {
	output := r.job.Spec.Output
	if output != nil && output.NameFrom == "logical" && info.LogicalName != "" {
		return info.LogicalName
	}
	return info.Name
}

func (r *Runner) writeIndex(ctx context.Context, summary Summary) error {
	reader, err := r.index.Encode(ctx, indexDocument{
		Job:     r.job.Metadata.Name,
		Archive: r.job.Spec.Archive,
		Pattern: r.job.Spec.Match.Pattern,
		Summary: summary,
	})
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	filename := fmt.Sprintf("%s-index.%s", r.job.Metadata.Name, r.index.FileExtension())
	if err := r.sink.Write(ctx, filename, reader); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}
