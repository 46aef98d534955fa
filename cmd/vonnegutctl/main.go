package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/evanmcc/vonnegut/cmd/vonnegutctl/command"
)

const (
	cliName        = "vonnegutctl"
	cliDescription = "A simple command line client for vonnegut."

	defaultDialTimeout    = 2 * time.Second
	defaultCommandTimeout = 5 * time.Second
)

func main() {
	root := &cobra.Command{
		Use:        cliName,
		Short:      cliDescription,
		SuggestFor: []string{"vonnegutctl"},
	}
	root.PersistentFlags().StringVar(&command.GlobalFlagsInstance.Endpoint, "endpoint", "", "vonnegut node address, host:port")
	root.PersistentFlags().DurationVar(&command.GlobalFlagsInstance.CommandTimeout, "command-timeout", defaultCommandTimeout, "timeout for short running commands")
	root.PersistentFlags().DurationVar(&command.GlobalFlagsInstance.DialTimeout, "dial-timeout", defaultDialTimeout, "dial timeout for the admin connection")

	root.AddCommand(command.NewTopicCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
