package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bidon15/orbit-setup/internal/orbit"
)

func newChainTypeCommand(a *app) *cobra.Command {
	chainTypeCmd := &cobra.Command{
		Use:   "chain-type",
		Short: "Choose how the chain makes its data available",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the supported chain types",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			var selected orbit.ChainType
			if current := a.store.State().ChainType; current != nil {
				selected = *current
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintln(w, "\tTYPE\tDESCRIPTION")
			for _, chainType := range orbit.ChainTypes {
				marker := ""
				if chainType == selected {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", marker, chainType, chainType.Description())
			}
			return w.Flush()
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set <type>",
		Short: "Select the chain type",
		Long: `Select the chain type: Rollup, AnyTrust or CelestiaDA.

Examples:
  orbit-setup chain-type set AnyTrust`,
		Args: cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			chainType, err := orbit.ParseChainType(args[0])
			if err != nil {
				return err
			}
			w, err := a.wizard(nil)
			if err != nil {
				return err
			}
			if _, err := w.SetChainType(cmd.Context(), chainType); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chain type set to %s\n", chainType)
			return nil
		}),
	}

	chainTypeCmd.AddCommand(listCmd, setCmd)
	return chainTypeCmd
}
