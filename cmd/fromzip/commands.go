package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/infracollect/fromzip/internal/engine/encoders"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

// showAction prints the names, infos and bytes of every matching entry.
func showAction(ctx context.Context, command *cli.Command) error {
	if command.StringArg("archive") == "" {
		return cli.ShowRootCommandHelp(command)
	}

	filter, closeFilter, err := openFilter(ctx, command)
	if err != nil {
		return err
	}
	defer closeFilter()

	w := command.Root().Writer

	if err := writeSection(w, "Names"); err != nil {
		return err
	}
	if err := writeNames(w, filter.Names()); err != nil {
		return err
	}

	if err := writeSection(w, "Infos"); err != nil {
		return err
	}
	if err := writeInfos(w, filter.Infos()); err != nil {
		return err
	}

	if err := writeSection(w, "Bytes"); err != nil {
		return err
	}
	return writeFiles(w, filter.Files(), stdoutIsTerminal())
}

func namesCommand() *cli.Command {
	return &cli.Command{
		Name:                      "names",
		Usage:                     "List the names of matching entries",
		Arguments:                 filterArguments(),
		DisableSliceFlagSeparator: true,
		Action: func(ctx context.Context, command *cli.Command) error {
			filter, closeFilter, err := openFilter(ctx, command)
			if err != nil {
				return err
			}
			defer closeFilter()

			return writeNames(command.Root().Writer, filter.Names())
		},
	}
}

var infoFormats = []string{"text", "json", "yaml"}

func infosCommand() *cli.Command {
	return &cli.Command{
		Name:                      "infos",
		Usage:                     "Show metadata of matching entries",
		Arguments:                 filterArguments(),
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Value: "text",
				Usage: "Output format (text, json, yaml)",
				Action: func(ctx context.Context, command *cli.Command, s string) error {
					if !lo.Contains(infoFormats, s) {
						return fmt.Errorf("invalid format %q (available: %v)", s, infoFormats)
					}
					return nil
				},
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			filter, closeFilter, err := openFilter(ctx, command)
			if err != nil {
				return err
			}
			defer closeFilter()

			w := command.Root().Writer
			format := command.String("format")
			if format == "text" {
				return writeInfos(w, filter.Infos())
			}

			encoder, err := encoders.New(format, "  ")
			if err != nil {
				return err
			}

			reader, err := encoder.Encode(ctx, slices.Collect(filter.Infos()))
			if err != nil {
				return fmt.Errorf("failed to encode infos: %w", err)
			}
			_, err = io.Copy(w, reader)
			return err
		},
	}
}
