package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/infracollect/fromzip/internal/source"
	"github.com/infracollect/fromzip/internal/zipfilter"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "case-sensitive",
			Aliases: []string{"c"},
			Usage:   "Match the pattern case-sensitively",
		},
		&cli.StringSliceFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Password to try on encrypted entries (can be repeated, tried in order after no password)",
		},
		&cli.StringFlag{
			Name:  "password-file",
			Usage: "File with one password candidate per line, tried after --password",
		},
		&cli.BoolFlag{
			Name:  "no-manifest",
			Usage: "Ignore manifest.json and match raw entry names",
		},
	}
}

func filterArguments() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "Path or URL of the zip archive",
		},
		&cli.StringArg{
			Name:      "match_type",
			UsageText: "One of starts_with, contains, ends_with, regex",
		},
		// A slice argument tells an empty pattern apart from a missing one.
		&cli.StringArgs{
			Name:      "pattern",
			UsageText: "The pattern entries must match",
			Min:       0,
			Max:       1,
		},
	}
}

// filterArgs are the positional arguments shared by the root command and the
// filtering subcommands.
type filterArgs struct {
	archive   string
	matchType string
	pattern   string
}

func readFilterArgs(command *cli.Command) (filterArgs, error) {
	patterns := command.StringArgs("pattern")
	args := filterArgs{
		archive:   command.StringArg("archive"),
		matchType: command.StringArg("match_type"),
	}
	if args.archive == "" || args.matchType == "" || len(patterns) == 0 {
		return filterArgs{}, errors.New("expected <archive> <match_type> <pattern>")
	}
	args.pattern = patterns[0]
	return args, nil
}

// passwordsFromFlags returns the candidates given on the command line, without
// the leading no-password candidate.
func passwordsFromFlags(command *cli.Command) ([]*string, error) {
	passwords := zipfilter.Literal(command.StringSlice("password")...)

	if path := command.String("password-file"); path != "" {
		fromFile, err := zipfilter.ReadPasswordFile(afero.NewOsFs(), path)
		if err != nil {
			return nil, err
		}
		passwords = append(passwords, fromFile...)
	}

	return passwords, nil
}

// openFilter resolves the archive and opens a filter over it. The returned
// close function releases both.
func openFilter(ctx context.Context, command *cli.Command) (*zipfilter.Filter, func(), error) {
	logger := getLogger(ctx)

	args, err := readFilterArgs(command)
	if err != nil {
		return nil, nil, err
	}

	passwords, err := passwordsFromFlags(command)
	if err != nil {
		return nil, nil, err
	}

	archive, err := source.Resolve(ctx, args.archive, source.WithLogger(logger.Named("source")))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve archive: %w", err)
	}

	filter, err := zipfilter.Open(zipfilter.Config{
		ArchivePath:    archive.Path,
		MatchType:      zipfilter.MatchType(args.matchType),
		Pattern:        args.pattern,
		CaseSensitive:  command.Bool("case-sensitive"),
		Passwords:      passwords,
		IgnoreManifest: command.Bool("no-manifest"),
	}, zipfilter.WithFs(archive.Fs), zipfilter.WithLogger(logger.Named("zipfilter")))
	if err != nil {
		if cleanupErr := archive.Cleanup(); cleanupErr != nil {
			logger.Warn("failed to clean up archive", zap.Error(cleanupErr))
		}
		return nil, nil, err
	}

	logger.Debug("archive opened",
		zap.String("archive", args.archive),
		zap.Bool("manifest", filter.HasManifest()),
		zap.Int("password_candidates", len(filter.Passwords())),
	)

	return filter, func() {
		if err := filter.Close(); err != nil {
			logger.Warn("failed to close archive", zap.Error(err))
		}
		if err := archive.Cleanup(); err != nil {
			logger.Warn("failed to clean up archive", zap.Error(err))
		}
	}, nil
}
