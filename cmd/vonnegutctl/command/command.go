// Package command holds vonnegutctl's cobra subcommands, mirroring the
// split the teacher's cmd/vdlctl/command package uses between the root
// binary's flag wiring (in cmd/vonnegutctl/main.go) and its subcommands
// here.
package command

import (
	"fmt"
	"os"
	"time"
)

// GlobalFlags holds the persistent flags every subcommand reads, mirroring
// cmd/vdlctl/command's GlobalFlagsInstance.
type GlobalFlags struct {
	Endpoint       string
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

var GlobalFlagsInstance GlobalFlags

type exitCode int

const (
	exitOK      exitCode = 0
	exitBadArgs exitCode = 1
	exitError   exitCode = 2
)

func exitWithError(code exitCode, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(int(code))
}

func checkEndpoint() {
	if GlobalFlagsInstance.Endpoint == "" {
		exitWithError(exitBadArgs, fmt.Errorf("no --endpoint provided"))
	}
}
