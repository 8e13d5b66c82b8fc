package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "origame",
	Short: "Console for working with scenario files",
	Long: `origame is a command-line console for scenario documents.

It provides commands to inspect, validate, repair, and search the part
tree of a saved scenario without opening the desktop application.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
