// Package cli implements the orbit-setup command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Bidon15/orbit-setup/internal/bundle"
	"github.com/Bidon15/orbit-setup/internal/chain"
	"github.com/Bidon15/orbit-setup/internal/config"
	"github.com/Bidon15/orbit-setup/internal/deploy"
	"github.com/Bidon15/orbit-setup/internal/metrics"
	"github.com/Bidon15/orbit-setup/internal/orbit"
	"github.com/Bidon15/orbit-setup/internal/session"
	"github.com/Bidon15/orbit-setup/internal/storage"
	"github.com/Bidon15/orbit-setup/internal/wizard"
)

// app holds what every command shares once the root pre-run has completed.
type app struct {
	configFile string
	timeout    time.Duration

	cfg     *config.Config
	logger  *slog.Logger
	storage storage.Storage
	store   *session.Store
	metrics *metrics.Metrics
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "orbit-setup",
		Short: "Configure and deploy Arbitrum Orbit chains",
		Long: `orbit-setup walks through configuring an Arbitrum Orbit chain, deploys its
core contracts on the parent chain and produces the node configuration.

The session is saved after every step, so it can be resumed at any time.

Examples:
  orbit-setup wallet connect
  orbit-setup config set chainName="My Chain" nativeToken=0x...
  orbit-setup chain-type set CelestiaDA
  orbit-setup validators set --generate 1
  orbit-setup batch-poster set --generate
  orbit-setup deploy
  orbit-setup download`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./config.yaml or ~/.orbit-setup/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Minute, "timeout for commands that talk to the parent chain")

	rootCmd.AddCommand(
		newStateCommand(a),
		newConfigCommand(a),
		newChainTypeCommand(a),
		newWalletCommand(a),
		newValidatorsCommand(a),
		newBatchPosterCommand(a),
		newDeployCommand(a),
		newArtifactsCommand(a),
		newDownloadCommand(a),
		newResetCommand(a),
	)
	return rootCmd
}

// init loads the configuration, opens storage and restores the session.
func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(os.Stderr, cfg.Log)
	a.metrics = metrics.New()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	a.storage = store
	a.store = session.Load(ctx, store, session.Options{
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	return nil
}

// runE wraps a command so storage is released however it ends.
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

// close exports metrics and releases storage.
func (a *app) close() error {
	if a.storage == nil {
		return nil
	}
	if a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.logger.Warn("failed to write metrics", slog.String("error", err.Error()))
		}
	}
	err := a.storage.Close()
	a.storage = nil
	return err
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// wizard creates a Wizard reporting deployment progress to onProgress.
func (a *app) wizard(onProgress deploy.ProgressCallback) (*wizard.Wizard, error) {
	var override common.Address
	if a.cfg.ParentChain.RollupCreator != "" {
		if !orbit.IsAddress(a.cfg.ParentChain.RollupCreator) {
			return nil, fmt.Errorf("parent_chain.rollup_creator %q is not a valid address", a.cfg.ParentChain.RollupCreator)
		}
		override = common.HexToAddress(a.cfg.ParentChain.RollupCreator)
	}
	creator, err := orbit.NewRollupCreator(override, a.logger)
	if err != nil {
		return nil, err
	}

	deployer := deploy.NewDeployer(creator, a.storage, deploy.Config{
		Logger:            a.logger,
		Metrics:           a.metrics,
		ParentChainRPCURL: a.cfg.ParentChain.PublicRPCURL,
		FallbackRPCURL:    a.cfg.ParentChain.RPCURL,
		OnProgress:        onProgress,
	})
	return wizard.New(a.store, deployer, bundle.NewBundler(a.storage), wizard.Options{
		Logger:          a.logger,
		PersistAttempts: a.cfg.Deploy.PersistAttempts,
		PersistDelay:    a.cfg.Deploy.PersistDelay,
	}), nil
}

// dial connects to the parent chain with the configured signer.
func (a *app) dial(ctx context.Context) (*chain.EthClient, error) {
	if a.cfg.ParentChain.RPCURL == "" {
		return nil, fmt.Errorf("parent_chain.rpc_url is required")
	}

	var opts []chain.Option
	if a.cfg.ParentChain.PollInterval > 0 {
		opts = append(opts, chain.WithPollInterval(a.cfg.ParentChain.PollInterval))
	}
	if a.cfg.ParentChain.ConfirmationTimeout > 0 {
		opts = append(opts, chain.WithConfirmationTimeout(a.cfg.ParentChain.ConfirmationTimeout))
	}
	return chain.Dial(ctx, a.cfg.ParentChain.RPCURL, a.newSigner, a.logger, opts...)
}

// newSigner creates the deploying account's signer from the configuration.
func (a *app) newSigner(chainID *big.Int) (chain.TransactionSigner, error) {
	signer := a.cfg.Signer
	if !signer.Remote() {
		if signer.PrivateKey == "" {
			return nil, fmt.Errorf("either signer.private_key or signer.endpoint is required")
		}
		local, err := chain.NewLocalSigner(signer.PrivateKey, chainID.Uint64())
		if err != nil {
			return nil, err
		}
		return local, nil
	}

	if !orbit.IsAddress(signer.Address) {
		return nil, fmt.Errorf("signer.address %q is not a valid address", signer.Address)
	}
	remote, err := chain.NewRemoteSigner(chain.RemoteSignerConfig{
		Endpoint:   signer.Endpoint,
		APIKey:     signer.APIKey,
		ClientCert: signer.ClientCert,
		ClientKey:  signer.ClientKey,
		CACert:     signer.CACert,
		ChainID:    chainID,
		Address:    common.HexToAddress(signer.Address),
	})
	if err != nil {
		return nil, err
	}
	return remote, nil
}

// signerAddress returns the configured deploying account without dialing.
func (a *app) signerAddress() (string, error) {
	signer := a.cfg.Signer
	if signer.Remote() {
		return signer.Address, nil
	}
	if signer.PrivateKey == "" {
		return "", fmt.Errorf("no signer is configured; pass an address or set signer.private_key")
	}
	wallet, err := orbit.WalletFromPrivateKey(signer.PrivateKey)
	if err != nil {
		return "", err
	}
	return wallet.Address, nil
}
