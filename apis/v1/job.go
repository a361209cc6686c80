package v1

// ExtractJobKind is the only kind accepted in job files.
const ExtractJobKind = "ExtractJob"

type ExtractJob struct {
	Kind     string         `yaml:"kind" json:"kind" validate:"required,eq=ExtractJob"`
	Metadata Metadata       `yaml:"metadata" json:"metadata"`
	Spec     ExtractJobSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required" template:""`
}

type ExtractJobSpec struct {
	// Archive is a local path or a file://, http(s):// or s3:// URL.
	Archive string    `yaml:"archive" json:"archive" validate:"required" template:""`
	Match   MatchSpec `yaml:"match" json:"match"`

	// ManifestAware resolves logical names from manifest.json (default: true).
	ManifestAware *bool `yaml:"manifest_aware,omitempty" json:"manifest_aware,omitempty"`

	// Passwords are tried in order; null means "no password". They are
	// literal and never template expanded.
	Passwords []*string `yaml:"passwords,omitempty" json:"passwords,omitempty"`

	// PasswordEnv names environment variables holding extra candidates. Each
	// must also be allowed on the command line.
	PasswordEnv  []string `yaml:"password_env,omitempty" json:"password_env,omitempty"`
	PasswordFile *string  `yaml:"password_file,omitempty" json:"password_file,omitempty" template:""`

	Source *SourceSpec `yaml:"source,omitempty" json:"source,omitempty"`
	Output *OutputSpec `yaml:"output,omitempty" json:"output,omitempty"`
}

// MatchSpec selects entries. An empty pattern matches every entry.
type MatchSpec struct {
	Type          string `yaml:"type" json:"type" validate:"required,oneof=starts_with contains ends_with regex"`
	Pattern       string `yaml:"pattern" json:"pattern" template:""`
	CaseSensitive bool   `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
}

// SourceSpec configures how remote archives are fetched.
type SourceSpec struct {
	S3 *S3ConnectionSpec `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// OutputSpec configures where extracted entries are written.
type OutputSpec struct {
	// NameFrom picks the output path: the raw entry name or the manifest
	// logical name (default: entry).
	NameFrom string `yaml:"name_from,omitempty" json:"name_from,omitempty" validate:"omitempty,oneof=entry logical"`

	// Index writes a listing of extracted entries next to them.
	Index *IndexSpec `yaml:"index,omitempty" json:"index,omitempty"`

	// Sink configures the destination (default: stdout).
	Sink *SinkSpec `yaml:"sink,omitempty" json:"sink,omitempty"`

	// Archive bundles every output into one tar archive written to the sink.
	Archive *ArchiveSpec `yaml:"archive,omitempty" json:"archive,omitempty"`

	// ContinueOnError skips entries no password could decrypt instead of failing.
	ContinueOnError bool `yaml:"continue_on_error,omitempty" json:"continue_on_error,omitempty"`
}

// IndexSpec configures the index encoder (one of the fields should be set).
type IndexSpec struct {
	JSON *JSONEncodingSpec `yaml:"json,omitempty" json:"json,omitempty"`
	YAML *YAMLEncodingSpec `yaml:"yaml,omitempty" json:"yaml,omitempty"`
}

// JSONEncodingSpec configures JSON encoding.
type JSONEncodingSpec struct {
	// Indent specifies indentation. Empty = compact, "  " = 2 spaces, "\t" = tabs.
	Indent string `yaml:"indent,omitempty" json:"indent,omitempty"`
}

type YAMLEncodingSpec struct {
	Indent int `yaml:"indent,omitempty" json:"indent,omitempty" validate:"gte=0,lte=8"`
}

type ArchiveSpec struct {
	// Name of the archive without extension (default: job name).
	Name string `yaml:"name,omitempty" json:"name,omitempty" template:""`

	// Compression is one of gzip, zstd or none (default: gzip).
	Compression string `yaml:"compression,omitempty" json:"compression,omitempty" validate:"omitempty,oneof=gzip zstd none"`
}

// SinkSpec configures the output destination (one of the fields should be set).
type SinkSpec struct {
	Stdout     *StdoutSinkSpec     `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Filesystem *FilesystemSinkSpec `yaml:"filesystem,omitempty" json:"filesystem,omitempty"`
	S3         *S3SinkSpec         `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// StdoutSinkSpec writes entries to stdout, each preceded by a header line.
type StdoutSinkSpec struct{}

type FilesystemSinkSpec struct {
	// Path is the base directory (default: working directory).
	Path   *string `yaml:"path,omitempty" json:"path,omitempty" template:""`
	Prefix *string `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
}

type S3SinkSpec struct {
	S3ConnectionSpec `yaml:",inline"`

	Bucket string  `yaml:"bucket" json:"bucket" validate:"required" template:""`
	Prefix *string `yaml:"prefix,omitempty" json:"prefix,omitempty" template:""`
}

type S3ConnectionSpec struct {
	Region         *string        `yaml:"region,omitempty" json:"region,omitempty" template:""`
	Endpoint       *string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty" template:""`
	ForcePathStyle bool           `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
	Credentials    *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`
}

type S3Credentials struct {
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" validate:"required" template:""`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" validate:"required" template:""`
}
