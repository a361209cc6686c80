package main

import (
	"context"
	"fmt"

	v1 "github.com/infracollect/fromzip/apis/v1"
	"github.com/infracollect/fromzip/internal/runner"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Write matching entries to a directory",
		Arguments: filterArguments(),
		// Passwords may contain commas; subcommands do not inherit this setting.
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Directory to write entries to",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name-from",
				Value: "entry",
				Usage: "Name outputs after the raw entry name or the manifest logical name (entry, logical)",
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "Also write an index of extracted entries (json, yaml)",
			},
			&cli.StringFlag{
				Name:  "bundle",
				Usage: "Write a single tar archive instead of loose files (gzip, zstd, none)",
			},
			&cli.BoolFlag{
				Name:  "continue-on-error",
				Usage: "Skip entries no password could decrypt",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := getLogger(ctx)

			job, err := extractJobFromFlags(command)
			if err != nil {
				return err
			}

			r, err := runner.New(ctx, logger.Named("runner"), job)
			if err != nil {
				return fmt.Errorf("failed to create runner: %w", err)
			}

			summary, err := r.Run(ctx)
			if err != nil {
				return fmt.Errorf("failed to extract: %w", err)
			}

			logger.Info("extracted entries",
				zap.Int("extracted", len(summary.Extracted)),
				zap.Int("failed", len(summary.Failed)),
			)
			fmt.Fprintf(command.Root().Writer, "extracted %d entries to %s (%d skipped)\n",
				len(summary.Extracted), command.String("out"), len(summary.Failed))
			return nil
		},
	}
}

// extractJobFromFlags builds the same job a job file would describe, then
// validates it with the same rules.
func extractJobFromFlags(command *cli.Command) (v1.ExtractJob, error) {
	args, err := readFilterArgs(command)
	if err != nil {
		return v1.ExtractJob{}, err
	}

	passwords, err := passwordsFromFlags(command)
	if err != nil {
		return v1.ExtractJob{}, err
	}

	job := v1.ExtractJob{
		Kind:     v1.ExtractJobKind,
		Metadata: v1.Metadata{Name: "extract"},
		Spec: v1.ExtractJobSpec{
			Archive: args.archive,
			Match: v1.MatchSpec{
				Type:          args.matchType,
				Pattern:       args.pattern,
				CaseSensitive: command.Bool("case-sensitive"),
			},
			ManifestAware: lo.ToPtr(!command.Bool("no-manifest")),
			Passwords:     passwords,
			Output: &v1.OutputSpec{
				NameFrom:        command.String("name-from"),
				ContinueOnError: command.Bool("continue-on-error"),
				Sink: &v1.SinkSpec{
					Filesystem: &v1.FilesystemSinkSpec{Path: lo.ToPtr(command.String("out"))},
				},
			},
		},
	}

	switch index := command.String("index"); index {
	case "":
	case "json":
		job.Spec.Output.Index = &v1.IndexSpec{JSON: &v1.JSONEncodingSpec{Indent: "  "}}
	case "yaml":
		job.Spec.Output.Index = &v1.IndexSpec{YAML: &v1.YAMLEncodingSpec{Indent: 2}}
	default:
		return v1.ExtractJob{}, fmt.Errorf("invalid index format %q (available: json, yaml)", index)
	}

	if compression := command.String("bundle"); compression != "" {
		job.Spec.Output.Archive = &v1.ArchiveSpec{Compression: compression}
	}

	if err := runner.ValidateExtractJob(job); err != nil {
		return v1.ExtractJob{}, formatValidationError(err)
	}

	return job, nil
}
