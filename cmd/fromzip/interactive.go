package main

import (
	"os"

	"golang.org/x/term"
)

// stdoutIsTerminal reports whether raw entry bytes would land on a terminal,
// in which case they are printed quoted.
func stdoutIsTerminal() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
