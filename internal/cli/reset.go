package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bidon15/orbit-setup/internal/orbit"
)

func newResetCommand(a *app) *cobra.Command {
	var owner string
	var force bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start the session over",
		Long: `Discard the session and start over from the default configuration. Only the
owner is kept.

WARNING: The recorded contract addresses of a deployed chain are discarded.
Download the bundle first.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			state := a.store.State()
			if state.Deployed() && !state.IsDownloadCompleted && !force {
				return fmt.Errorf("the deployed chain's bundle has not been downloaded; run `orbit-setup download` or pass --force")
			}
			if owner == "" {
				owner = state.RollupConfig.Owner
			} else if err := orbit.AssertValidAddress("owner", owner); err != nil {
				return err
			}

			w, err := a.wizard(nil)
			if err != nil {
				return err
			}
			state = w.Reset(cmd.Context(), owner)
			fmt.Fprintf(cmd.OutOrStdout(), "Session reset (chain ID %d)\n", state.RollupConfig.ChainID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner of the new session (default the current owner)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "reset even if the bundle was never downloaded")
	return cmd
}
