package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaborage/nodeclient/internal/commands"
)

var version = "dev" // Will be set during build

func main() {
	rootCmd := &cobra.Command{
		Use:   "nodequery",
		Short: "Send API commands to a node",
		Long: `Sends JSON API commands to a node over HTTPS and prints the response bodies.

Each command runs as its own exchange: a single POST per attempt, retried only
when reading the response fails. Settings come from defaults, an optional YAML
file and NODECLIENT_* environment variables, in increasing precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		commands.NewQueryCommand(),
		commands.NewVersionCommand(version),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
