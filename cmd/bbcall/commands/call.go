package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/crypto-bridge/bindings"
	"github.com/wippyai/crypto-bridge/errors"
)

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <export> [args...]",
		Short: "Call one export with arguments given as text",
		Long: `Call one export with arguments given as text.

Field elements, points and fixed buffers are 0x-prefixed hex.
Buffers are 0x-prefixed hex, or literal text with a "str:" prefix.
Sequences are comma separated, numbers are decimal or 0x hex.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ok := bindings.Lookup(args[0])
			if !ok {
				return errors.NotFound(errors.PhaseDispatch, "export", args[0])
			}
			values, err := parseArgs(e.In, args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.Close(ctx)

			logger.Debug("calling export", zap.String("export", e.Name), zap.Int("args", len(values)))
			results, err := s.inst.Call(ctx, e.Name, values...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatResults(e.Out, results))
			return nil
		},
	}
}
