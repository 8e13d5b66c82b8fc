package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/parts"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/scenario"
	"github.com/DND-DRDC-RDDC/OS-ORIGAME-sub002/pkg/script"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check node linking and function scripts",
	Long: `Check a scenario for repairable problems: node parts with more than
one outgoing link, scripts that do not compile, and scripts whose link
references do not match the part's links.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Load(args[0])
		if err != nil {
			return err
		}

		problems := 0
		check := s.Root().CheckNodeLinking()
		for _, l := range check.Fixable {
			fmt.Printf("fixable: node link %q can be inverted\n", l.Name())
			problems++
		}
		for _, p := range check.Unfixable {
			fmt.Printf("unfixable: node %s has surplus links\n", p.Path())
			problems++
		}

		eng := script.NewEngine()
		for _, p := range s.Root().DescendantParts() {
			if p.Kind() != parts.KindFunction {
				continue
			}
			errs, audit, err := eng.CheckPart(p)
			if err != nil {
				return err
			}
			for _, e := range errs {
				fmt.Printf("script %s: %s\n", p.Path(), e.Error())
				problems++
			}
			for _, name := range audit.Missing {
				fmt.Printf("script %s: link %q is referenced but does not exist\n", p.Path(), name)
				problems++
			}
			for _, name := range audit.Unused {
				fmt.Printf("script %s: link %q is never referenced\n", p.Path(), name)
			}
		}

		if problems > 0 {
			return fmt.Errorf("%d problems found", problems)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
