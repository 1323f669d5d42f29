package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DiamondKeySecurity/pkcs11/cmd/pkcs11gen/internal/view"
	"github.com/DiamondKeySecurity/pkcs11/compiler"
	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

// NewInspectCommand returns the inspect command.
func NewInspectCommand(cli *CLI) *cobra.Command {
	var showFlags bool
	cmd := &cobra.Command{
		Use:   "inspect <schema> [class...]",
		Short: "Print the compiled descriptor tables",
		Long: Highlight("pkcs11gen inspect <schema> [class...]") + "\n\n" +
			"Compile the schema and print the descriptor rows of the given concrete\n" +
			"classes, or of all of them, followed by the lookup table.\n",
		Example: "  pkcs11gen inspect -r pkcs11t.h attributes.yaml rsa_public_key",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := compiler.LoadGraph(args[0], cli.options()...)
			if err != nil {
				return err
			}
			out, err := gen.Compile(g)
			if err != nil {
				return err
			}
			classes := out.Classes
			if names := args[1:]; len(names) > 0 {
				classes = classes[:0:0]
				for _, name := range names {
					c, ok := out.Class(name)
					if !ok {
						return fmt.Errorf("no concrete class %q", name)
					}
					classes = append(classes, c)
				}
			}
			w := cmd.OutOrStdout()
			if showFlags {
				view.Flags(w, out.Flags)
				fmt.Fprintln(w)
			}
			for _, c := range classes {
				view.Class(w, c)
				fmt.Fprintln(w)
			}
			view.Lookup(w, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showFlags, "flags", false, "Also print the flag registry")
	return cmd
}
