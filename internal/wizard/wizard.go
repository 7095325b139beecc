// Package wizard drives the deployment session through its steps: chain
// configuration, signers, deployment and artifact download.
package wizard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/Bidon15/orbit-setup/internal/bundle"
	"github.com/Bidon15/orbit-setup/internal/chain"
	"github.com/Bidon15/orbit-setup/internal/deploy"
	"github.com/Bidon15/orbit-setup/internal/orbit"
	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
	"github.com/Bidon15/orbit-setup/internal/session"
)

// Options configures a Wizard.
type Options struct {
	Logger *slog.Logger

	// PersistAttempts bounds how often writing the artifacts is tried.
	PersistAttempts uint
	PersistDelay    time.Duration
}

// Wizard applies user steps to the session and runs deployments from it.
type Wizard struct {
	store    *session.Store
	deployer *deploy.Deployer
	bundler  *bundle.Bundler
	logger   *slog.Logger
	opts     Options
}

// New creates a Wizard.
func New(store *session.Store, deployer *deploy.Deployer, bundler *bundle.Bundler, opts Options) *Wizard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PersistAttempts == 0 {
		opts.PersistAttempts = 3
	}
	if opts.PersistDelay == 0 {
		opts.PersistDelay = time.Second
	}
	return &Wizard{
		store:    store,
		deployer: deployer,
		bundler:  bundler,
		logger:   logger,
		opts:     opts,
	}
}

// State returns the current session.
func (w *Wizard) State() session.State {
	return w.store.State()
}

// UpdateConfig merges patch onto the rollup config. Address fields are
// validated before anything is stored.
func (w *Wizard) UpdateConfig(ctx context.Context, patch orbit.RollupConfigPatch) (session.State, error) {
	addresses := map[string]*string{
		"owner":            patch.Owner,
		"stakeToken":       patch.StakeToken,
		"loserStakeEscrow": patch.LoserStakeEscrow,
		"nativeToken":      patch.NativeToken,
	}
	for field, value := range addresses {
		if value == nil {
			continue
		}
		if err := orbit.AssertValidAddress(field, *value); err != nil {
			return w.store.State(), err
		}
	}
	if patch.ChainID != nil && *patch.ChainID == 0 {
		return w.store.State(), apperrors.NewValidationError("chainId", "chain ID must be non-zero")
	}
	return w.store.Dispatch(ctx, session.SetRollupConfig{Patch: patch}), nil
}

// SetChainType selects the chain type.
func (w *Wizard) SetChainType(ctx context.Context, chainType orbit.ChainType) (session.State, error) {
	if !chainType.Valid() {
		return w.store.State(), apperrors.NewValidationError("chainType", "unknown chain type "+chainType.String())
	}
	return w.store.Dispatch(ctx, session.SetChainType{ChainType: chainType}), nil
}

// SetValidators replaces the validator set.
func (w *Wizard) SetValidators(ctx context.Context, validators []orbit.Wallet) (session.State, error) {
	if err := orbit.AssertValidAddressList("validators", orbit.WalletAddresses(validators)); err != nil {
		return w.store.State(), err
	}
	return w.store.Dispatch(ctx, session.SetValidators{Validators: validators}), nil
}

// SetBatchPoster replaces the batch poster.
func (w *Wizard) SetBatchPoster(ctx context.Context, batchPoster orbit.Wallet) (session.State, error) {
	if err := orbit.AssertValidAddress("batchPoster", batchPoster.Address); err != nil {
		return w.store.State(), err
	}
	return w.store.Dispatch(ctx, session.SetBatchPoster{BatchPoster: batchPoster}), nil
}

// ConnectWallet attaches the deploying account to the session.
func (w *Wizard) ConnectWallet(ctx context.Context, address string) (session.State, error) {
	if err := orbit.AssertValidAddress("account", address); err != nil {
		return w.store.State(), err
	}
	return w.store.ConnectWallet(ctx, address), nil
}

// Reset starts the session over, keeping owner.
func (w *Wizard) Reset(ctx context.Context, owner string) session.State {
	return w.store.Dispatch(ctx, session.Reset{Owner: owner})
}

// Deploy deploys the chain described by the session. The contracts are
// recorded in the session as soon as the chain exists, so a persistence
// failure returns them together with the error.
func (w *Wizard) Deploy(ctx context.Context, client chain.Client, account string) (*orbit.CoreContracts, error) {
	req, err := w.request(client, account)
	if err != nil {
		return nil, err
	}
	if w.store.State().Deployed() {
		return nil, apperrors.NewValidationError("rollupContracts", "the chain is already deployed; reset the session to deploy another")
	}

	w.store.Dispatch(ctx, session.SetLoading{Loading: true})
	defer w.store.Dispatch(context.WithoutCancel(ctx), session.SetLoading{Loading: false})

	dep, err := w.deployer.Deploy(ctx, req)
	if dep != nil {
		w.store.Dispatch(ctx, session.SetRollupContracts{Contracts: dep.Contracts})
	}
	if err != nil {
		if dep != nil {
			contracts := dep.Contracts
			return &contracts, err
		}
		return nil, err
	}

	contracts := dep.Contracts
	err = w.persist(ctx, dep)
	w.deployer.RecordOutcome(dep.ChainType, err)
	if err != nil {
		return &contracts, err
	}
	return &contracts, nil
}

// RegenerateArtifacts derives and writes the node and L3 config of the
// deployed chain again.
func (w *Wizard) RegenerateArtifacts(ctx context.Context, client chain.Client, account string) error {
	state := w.store.State()
	if !state.Deployed() {
		return apperrors.NewValidationError("rollupContracts", "the chain has not been deployed yet")
	}
	req, err := w.request(client, account)
	if err != nil {
		return err
	}

	dep, err := w.deployer.DeriveArtifacts(ctx, req, *state.RollupContracts)
	if err != nil {
		return err
	}
	return w.persist(ctx, dep)
}

// Download writes the artifact bundle to out and marks the download as
// completed.
func (w *Wizard) Download(ctx context.Context, out io.Writer) error {
	if err := w.bundler.Write(ctx, w.store.State(), out); err != nil {
		return err
	}
	w.store.Dispatch(ctx, session.SetDownloadCompleted{Completed: true})
	return nil
}

// request builds a deployment request from the session.
func (w *Wizard) request(client chain.Client, account string) (deploy.Request, error) {
	state := w.store.State()

	if state.ChainType == nil {
		return deploy.Request{}, apperrors.NewValidationError("chainType", "choose a chain type first")
	}
	if len(state.Validators) == 0 {
		return deploy.Request{}, apperrors.NewValidationError("validators", "configure at least one validator first")
	}
	if state.BatchPoster == nil {
		return deploy.Request{}, apperrors.NewValidationError("batchPoster", "configure a batch poster first")
	}

	req := deploy.Request{
		Config:      state.RollupConfig,
		Validators:  state.Validators,
		BatchPoster: *state.BatchPoster,
		ChainType:   *state.ChainType,
		Client:      client,
		Account:     account,
	}
	if *state.ChainType == orbit.ChainTypeCelestiaDA && state.RollupConfig.CelestiaConfig.Enable {
		celestia := state.RollupConfig.CelestiaConfig
		req.CelestiaConfig = &celestia
	}
	return req, nil
}

// persist writes the artifacts, retrying persistence failures.
func (w *Wizard) persist(ctx context.Context, dep *deploy.Deployment) error {
	return retry.Do(
		func() error {
			return w.deployer.PersistArtifacts(ctx, dep)
		},
		retry.Context(ctx),
		retry.Attempts(w.opts.PersistAttempts),
		retry.Delay(w.opts.PersistDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, apperrors.ErrPersistence)
		}),
		retry.OnRetry(func(n uint, err error) {
			w.logger.Warn("retrying artifact persistence",
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("error", err.Error()),
			)
		}),
	)
}
