package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evanmcc/vonnegut/cmd/vonnegut/command"
)

func main() {
	root := &cobra.Command{
		Use:   "vonnegut",
		Short: "vonnegut is a chain-replicated, Kafka-wire-compatible log server",
	}
	root.PersistentFlags().StringVar(&command.ConfigFile, "config", "", "path to the server's config file")
	root.AddCommand(command.NewStartCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
