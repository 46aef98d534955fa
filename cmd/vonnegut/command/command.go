// Package command holds the vonnegut binary's cobra subcommands, mirroring
// the split the teacher's cmd/vdl/command package uses between the root
// binary's flag wiring (in cmd/vonnegut/main.go) and its subcommands here.
package command

import (
	"fmt"
	"os"
)

// exitCode mirrors the small set the teacher's cmdutil package (referenced
// but not present in the retrieved sources) is called with at every
// exit site; inferred from those call sites rather than copied.
type exitCode int

const (
	exitOK       exitCode = 0
	exitBadArgs  exitCode = 1
	exitError    exitCode = 2
)

func exitWithError(code exitCode, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(int(code))
}
