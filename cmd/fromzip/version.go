package main

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

// Build information populated at init() from debug.ReadBuildInfo().
var (
	Version   = "unknown"
	GoVersion = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
	Modified  bool
)

func init() {
	parseBuildInfo()
}

func parseBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	Version = info.Main.Version
	GoVersion = info.GoVersion

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.time":
			BuildTime = setting.Value
		case "vcs.modified":
			Modified = setting.Value == "true"
		}
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(ctx context.Context, command *cli.Command) error {
			w := command.Root().Writer
			fmt.Fprintf(w, "fromzip %s\n", Version)
			fmt.Fprintf(w, "go: %s\n", GoVersion)
			if Commit != "unknown" {
				dirty := ""
				if Modified {
					dirty = " (dirty)"
				}
				fmt.Fprintf(w, "commit: %s%s\n", Commit, dirty)
			}
			if BuildTime != "unknown" {
				fmt.Fprintf(w, "built: %s\n", BuildTime)
			}
			fmt.Fprintf(w, "zip methods: store, deflate, zstd; encryption: zipcrypto, aes\n")
			return nil
		},
	}
}
