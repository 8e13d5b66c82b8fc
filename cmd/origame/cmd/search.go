package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/scenario"
)

var searchCmd = &cobra.Command{
	Use:   "search <file> <pattern>",
	Short: "Search part names and comments",
	Long: `Search a scenario's part names and comments with a case-insensitive
regular expression.

Example:
  origame search model.ori 'queue|server'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Load(args[0])
		if err != nil {
			return err
		}
		hits, err := s.Search(args[1], nil)
		if err != nil {
			return err
		}
		for _, hit := range hits {
			fmt.Printf("%s\t%s (%s)\n", hit.Part.Path(), hit.Field, hit.Part.Kind())
		}
		if len(hits) == 0 {
			fmt.Println("no matches")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
