package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/scenario"
)

var repairOutput string

var repairCmd = &cobra.Command{
	Use:   "repair <file>",
	Short: "Invert repairable node links and save",
	Long: `Repair node parts that have more than one outgoing link by inverting
the links that can be inverted, then save the scenario.

Example:
  origame repair model.ori -o model-fixed.ori`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Load(args[0])
		if err != nil {
			return err
		}

		remaining := s.FixInvalidLinking()
		for _, p := range remaining.Unfixable {
			fmt.Printf("still unfixable: node %s\n", p.Path())
		}
		for _, l := range remaining.Alternates {
			fmt.Printf("alternate fix left in place: link %q\n", l.Name())
		}

		out := repairOutput
		if out == "" {
			out = args[0]
		}
		if err := s.Save(out); err != nil {
			return err
		}
		fmt.Printf("saved %s\n", out)
		return nil
	},
}

func init() {
	repairCmd.Flags().StringVarP(&repairOutput, "output", "o", "", "write the repaired scenario here instead of in place")
	rootCmd.AddCommand(repairCmd)
}
