package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/crypto-bridge/bindings"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known exports and whether the module provides them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "module: %s (%s)\n\n", s.label, s.inst.Dispatcher().Convention())
			for _, e := range bindings.Exports {
				mark := " "
				if s.missing[e.Name] {
					mark = "-"
				}
				fmt.Fprintf(w, "%s %s\n", mark, e.Signature())
			}
			if len(s.missing) > 0 {
				fmt.Fprintf(w, "\n%d of %d exports missing\n", len(s.missing), len(bindings.Exports))
			}
			return nil
		},
	}
}
