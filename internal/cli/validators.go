package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bidon15/orbit-setup/internal/orbit"
)

func newValidatorsCommand(a *app) *cobra.Command {
	validatorsCmd := &cobra.Command{
		Use:   "validators",
		Short: "Manage the chain's validators",
	}

	var generate int
	setCmd := &cobra.Command{
		Use:   "set [address|private-key]...",
		Short: "Replace the validator set",
		Long: `Replace the validator set. Each argument is an address or a private key.
The first validator's private key, when known, is written into the node
config for staking.

Examples:
  orbit-setup validators set 0x... 0x...
  orbit-setup validators set --generate 2`,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			wallets, err := walletsFromArgs(args, generate)
			if err != nil {
				return err
			}
			w, err := a.wizard(nil)
			if err != nil {
				return err
			}
			state, err := w.SetValidators(cmd.Context(), wallets)
			if err != nil {
				return err
			}
			return printWallets(cmd, state.Validators)
		}),
	}
	setCmd.Flags().IntVar(&generate, "generate", 0, "generate this many validator keys")

	validatorsCmd.AddCommand(setCmd)
	return validatorsCmd
}

func newBatchPosterCommand(a *app) *cobra.Command {
	batchPosterCmd := &cobra.Command{
		Use:   "batch-poster",
		Short: "Manage the chain's batch poster",
	}

	var generate bool
	setCmd := &cobra.Command{
		Use:   "set [address|private-key]",
		Short: "Set the batch poster",
		Long: `Set the batch poster from an address or a private key.

Examples:
  orbit-setup batch-poster set 0x...
  orbit-setup batch-poster set --generate`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			count := 0
			if generate {
				count = 1
			}
			wallets, err := walletsFromArgs(args, count)
			if err != nil {
				return err
			}
			w, err := a.wizard(nil)
			if err != nil {
				return err
			}
			state, err := w.SetBatchPoster(cmd.Context(), wallets[0])
			if err != nil {
				return err
			}
			return printWallets(cmd, []orbit.Wallet{*state.BatchPoster})
		}),
	}
	setCmd.Flags().BoolVar(&generate, "generate", false, "generate a batch poster key")

	batchPosterCmd.AddCommand(setCmd)
	return batchPosterCmd
}

// printWallets lists addresses and whether a key is held for each.
func printWallets(cmd *cobra.Command, wallets []orbit.Wallet) error {
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "ADDRESS\tPRIVATE KEY")
	for _, wallet := range wallets {
		key := "no"
		if wallet.PrivateKey != "" {
			key = "stored"
		}
		fmt.Fprintf(w, "%s\t%s\n", wallet.Address, key)
	}
	return w.Flush()
}
