package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	v1 "github.com/infracollect/fromzip/apis/v1"
	"github.com/infracollect/fromzip/internal/runner"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func allowedEnvFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "allowed-env",
		Usage: "Environment variables allowed in job configuration (can be repeated)",
	}
}

func jobArguments() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file, or - for stdin",
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run an extraction job file",
		Flags:     []cli.Flag{allowedEnvFlag()},
		Arguments: jobArguments(),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := getLogger(ctx)

			job, variables, err := loadJob(ctx, command)
			if err != nil {
				return err
			}

			r, err := runner.New(ctx, logger.Named("runner"), job, runner.WithVariables(variables))
			if err != nil {
				return fmt.Errorf("failed to create runner: %w", err)
			}

			if _, err := r.Run(ctx); err != nil {
				return fmt.Errorf("failed to run job: %w", err)
			}

			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a job file",
		Flags:     []cli.Flag{allowedEnvFlag()},
		Arguments: jobArguments(),
		Action: func(ctx context.Context, command *cli.Command) error {
			if _, _, err := loadJob(ctx, command); err != nil {
				return err
			}

			fmt.Fprintf(command.Root().Writer, "✓ Job file '%s' is valid\n", command.StringArg("job"))
			return nil
		},
	}
}

// loadJob reads, validates and expands the job named on the command line.
func loadJob(ctx context.Context, command *cli.Command) (v1.ExtractJob, map[string]string, error) {
	logger := getLogger(ctx)

	jobFilename := command.StringArg("job")
	if jobFilename == "" {
		return v1.ExtractJob{}, nil, fmt.Errorf("no job file provided")
	}

	jobFile, err := readJobFile(jobFilename)
	if err != nil {
		return v1.ExtractJob{}, nil, fmt.Errorf("failed to read job file '%s': %w", jobFilename, err)
	}

	logger = logger.With(zap.String("job_filename", jobFilename))
	logger.Debug("parsing job file")

	job, err := runner.ParseExtractJob(jobFile)
	if err != nil {
		return v1.ExtractJob{}, nil, fmt.Errorf("job file '%s' is invalid: %w", jobFilename, formatValidationError(err))
	}

	variables, err := runner.BuildVariables(job, command.StringSlice("allowed-env"))
	if err != nil {
		return v1.ExtractJob{}, nil, fmt.Errorf("failed to build variables: %w", err)
	}

	if err := runner.ExpandTemplates(&job, variables); err != nil {
		return v1.ExtractJob{}, nil, fmt.Errorf("failed to expand templates: %w", err)
	}

	return job, variables, nil
}

func readJobFile(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("job has %d validation error(s):", len(validationErrs)))
		for _, fe := range validationErrs {
			sb.WriteString(fmt.Sprintf("\n  • %s: failed '%s' validation", fe.Namespace(), fe.Tag()))
			if fe.Param() != "" {
				sb.WriteString(fmt.Sprintf(" (param: %s)", fe.Param()))
			}
		}
		return errors.New(sb.String())
	}
	return err
}
