package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bidon15/orbit-setup/internal/bundle"
)

func newDownloadCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Save the configuration bundle of the deployed chain",
		Long: `Save a .tar.gz bundle with the node config, the L3 config, the core contract
addresses and, for CelestiaDA chains, the Celestia settings.

Examples:
  orbit-setup download
  orbit-setup download -o ./my-chain.tar.gz
  orbit-setup download -o - | tar tz`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			w, err := a.wizard(nil)
			if err != nil {
				return err
			}

			if output == "-" {
				return w.Download(cmd.Context(), cmd.OutOrStdout())
			}
			if output == "" {
				output = bundle.Filename(a.store.State().RollupConfig.ChainName)
			}

			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := w.Download(cmd.Context(), f); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Bundle saved to %s\n", output)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default <chain-name>.tar.gz)")
	return cmd
}
