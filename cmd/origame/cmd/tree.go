package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/parts"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/scenario"
)

var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "Display a scenario's containment tree",
	Long: `Display the complete containment tree of a scenario, one part per
line with its kind and, where raised, its interface level.

Example:
  origame tree model.ori`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Load(args[0])
		if err != nil {
			return err
		}
		printTree(s.Root(), 0)
		return nil
	},
}

func printTree(p *parts.Part, depth int) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s%s (%s)", indent, p.Name(), p.Kind())
	if lvl := p.Frame().IfxLevel(); lvl > 0 {
		line += fmt.Sprintf(" ifx=%d", lvl)
	}
	fmt.Println(line)

	for _, child := range p.Children() {
		printTree(child, depth+1)
	}
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
