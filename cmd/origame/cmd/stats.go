package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/scenario"
)

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Summarize a scenario's parts and links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", s.Name(), s.Stats().Summary())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
