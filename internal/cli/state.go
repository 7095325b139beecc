package cli

import (
	"github.com/spf13/cobra"
)

func newStateCommand(a *app) *cobra.Command {
	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect the deployment session",
	}

	var output string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the deployment session",
		Long: `Print the deployment session as it is stored.

Examples:
  orbit-setup state show
  orbit-setup state show -o yaml`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			return printOutput(cmd.OutOrStdout(), output, a.store.State())
		}),
	}
	showCmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, yaml)")

	stateCmd.AddCommand(showCmd)
	return stateCmd
}
