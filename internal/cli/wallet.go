package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bidon15/orbit-setup/internal/orbit"
)

func newWalletCommand(a *app) *cobra.Command {
	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the deploying account and signer keys",
	}

	connectCmd := &cobra.Command{
		Use:   "connect [address]",
		Short: "Connect the deploying account",
		Long: `Connect the deploying account to the session. Without an address the
configured signer's account is used. The first connected account becomes the
chain owner unless one is already set.

Examples:
  orbit-setup wallet connect
  orbit-setup wallet connect 0x742d35Cc6634C0532925a3b844Bc454e4438f44e`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) == 1 {
				address = args[0]
			} else {
				var err error
				if address, err = a.signerAddress(); err != nil {
					return err
				}
			}

			w, err := a.wizard(nil)
			if err != nil {
				return err
			}
			state, err := w.ConnectWallet(cmd.Context(), address)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected %s (owner %s)\n", address, state.RollupConfig.Owner)
			return nil
		}),
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key pair",
		Long: `Generate a new key pair and print it. Nothing is stored.

WARNING: The private key is printed in plain text.`,
		Args: cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			wallet, err := orbit.GenerateWallet()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), wallet)
		}),
	}

	walletCmd.AddCommand(connectCmd, generateCmd)
	return walletCmd
}

// parseWallet accepts an address or a private key.
func parseWallet(arg string) (orbit.Wallet, error) {
	if orbit.IsAddress(arg) {
		return orbit.Wallet{Address: arg}, nil
	}
	wallet, err := orbit.WalletFromPrivateKey(arg)
	if err != nil {
		return orbit.Wallet{}, fmt.Errorf("%q is neither an address nor a private key", arg)
	}
	return wallet, nil
}

// walletsFromArgs parses args, or generates count wallets when args is empty.
func walletsFromArgs(args []string, count int) ([]orbit.Wallet, error) {
	if len(args) > 0 && count > 0 {
		return nil, fmt.Errorf("pass either addresses or --generate, not both")
	}

	wallets := make([]orbit.Wallet, 0, len(args)+count)
	for _, arg := range args {
		wallet, err := parseWallet(arg)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}
	for i := 0; i < count; i++ {
		wallet, err := orbit.GenerateWallet()
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("pass at least one address or private key, or use --generate")
	}
	return wallets, nil
}
