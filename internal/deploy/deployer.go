// Package deploy creates an Orbit chain on its parent chain and derives the
// node and L3 configuration of the new chain.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Bidon15/orbit-setup/internal/chain"
	"github.com/Bidon15/orbit-setup/internal/metrics"
	"github.com/Bidon15/orbit-setup/internal/orbit"
	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
	"github.com/Bidon15/orbit-setup/internal/pkg/ulid"
	"github.com/Bidon15/orbit-setup/internal/session"
	"github.com/Bidon15/orbit-setup/internal/storage"
)

// Config contains optional settings of a Deployer.
type Config struct {
	Logger *slog.Logger

	// Metrics records phase durations and transactions. May be nil.
	Metrics *metrics.Metrics

	// ParentChainRPCURL overrides the public RPC endpoint written into the
	// node and L3 config.
	ParentChainRPCURL string
	// FallbackRPCURL is written when the parent chain has no known public
	// endpoint and ParentChainRPCURL is empty.
	FallbackRPCURL string

	OnProgress ProgressCallback
}

// Deployer runs deployment attempts. It holds no per-attempt state.
type Deployer struct {
	creator RollupCreator
	storage storage.Storage
	config  Config
	logger  *slog.Logger
}

// NewDeployer creates a Deployer writing artifacts to store.
func NewDeployer(creator RollupCreator, store storage.Storage, config Config) *Deployer {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		creator: creator,
		storage: store,
		config:  config,
		logger:  logger,
	}
}

// DeployRollup deploys the chain and persists its artifacts. When a step
// after chain creation fails the contracts are returned along with the error.
func (d *Deployer) DeployRollup(ctx context.Context, req Request) (*orbit.CoreContracts, error) {
	dep, err := d.Deploy(ctx, req)
	if err != nil {
		if dep != nil {
			return &dep.Contracts, err
		}
		return nil, err
	}
	contracts := dep.Contracts
	err = d.PersistArtifacts(ctx, dep)
	d.RecordOutcome(dep.ChainType, err)
	if err != nil {
		return &contracts, err
	}
	return &contracts, nil
}

// Deploy validates the request, sends the approval (when needed) and
// creation transactions, decodes the created contracts and derives the
// artifacts. Nothing is written to storage. When deriving the artifacts of
// a created chain fails, the returned Deployment carries only the contracts.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Deployment, error) {
	a := d.newAttempt(ulid.New(), req.ChainType)
	a.logger.Info("starting rollup deployment",
		slog.String("chain_type", req.ChainType.String()),
		slog.Uint64("chain_id", req.Config.ChainID),
	)

	dep, err := d.deploy(ctx, a, req)
	if err != nil {
		a.fail(err)
		return dep, a.wrap(err)
	}
	a.finishPhase()
	return dep, nil
}

// PersistArtifacts writes the node config and L3 config of dep.
func (d *Deployer) PersistArtifacts(ctx context.Context, dep *Deployment) error {
	a := d.newAttempt(dep.AttemptID, dep.ChainType)
	a.enter(PhasePersisting, "Persisting node and L3 config")

	if err := d.persist(ctx, dep); err != nil {
		d.artifactsWritten("failed")
		a.report(err)
		return a.wrap(err)
	}
	d.artifactsWritten("success")

	a.enter(PhaseDone, "Deployment complete")
	a.logger.Info("rollup deployment completed",
		slog.String("rollup", dep.Contracts.Rollup.Hex()),
		slog.Uint64("deployed_at", dep.Contracts.DeployedAtBlockNumber),
	)
	return nil
}

// DeriveArtifacts recomputes the node and L3 config of an already deployed
// chain. No transaction is sent.
func (d *Deployer) DeriveArtifacts(ctx context.Context, req Request, contracts orbit.CoreContracts) (*Deployment, error) {
	a := d.newAttempt(ulid.New(), req.ChainType)

	in, err := d.validate(ctx, a, req)
	if err != nil {
		a.report(err)
		return nil, a.wrap(err)
	}
	dep, err := d.derive(a, req, in, contracts)
	if err != nil {
		a.report(err)
		return nil, a.wrap(err)
	}
	return dep, nil
}

// RecordOutcome counts the final result of a deployment whose artifacts
// were persisted, or not, after any retries.
func (d *Deployer) RecordOutcome(chainType orbit.ChainType, err error) {
	if d.config.Metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failed"
	}
	d.config.Metrics.DeploymentFinished(chainType.String(), result)
}

// inputs are the parsed addresses and parent chain details of a validated
// request.
type inputs struct {
	account       common.Address
	owner         common.Address
	nativeToken   common.Address
	batchPoster   common.Address
	validators    []common.Address
	chainConfig   *orbit.ChainConfig
	payload       orbit.RollupCreatorConfig
	parentChainID uint64
	rpcURL        string
}

func (d *Deployer) deploy(ctx context.Context, a *attempt, req Request) (*Deployment, error) {
	in, err := d.validate(ctx, a, req)
	if err != nil {
		return nil, err
	}

	if req.Config.UsesCustomFeeToken() {
		a.enter(PhaseApprovingAllowance, "Checking custom fee token allowance")
		if err := d.ensureAllowance(ctx, a, req.Client, in); err != nil {
			return nil, err
		}
	}

	a.enter(PhaseSubmitting, "Submitting chain creation transaction")
	params := orbit.NewCreateRollupParams(in.payload, in.validators, in.batchPoster, in.owner, in.nativeToken)
	tx, err := d.creator.PrepareCreateRollup(ctx, req.Client, params)
	if err != nil {
		return nil, classify(apperrors.KindTransaction, "prepare createRollup", err)
	}
	hash, err := req.Client.SendTransaction(ctx, tx)
	if err != nil {
		d.transactionSent("create_rollup", "failed")
		return nil, classify(apperrors.KindTransaction, "send createRollup", err)
	}

	a.enter(PhaseAwaitingConfirmation, fmt.Sprintf("Waiting for transaction %s", hash.Hex()))
	receipt, err := req.Client.WaitForConfirmation(ctx, hash)
	if err != nil {
		d.transactionSent("create_rollup", transactionResult(err))
		return nil, classify(apperrors.KindTransaction, "createRollup not confirmed", err)
	}
	d.transactionSent("create_rollup", "confirmed")

	a.enter(PhaseParsingReceipt, "Reading created contracts")
	contracts, err := d.creator.DecodeCreateRollupReceipt(receipt)
	if err != nil {
		return nil, classify(apperrors.KindReceiptDecode, "decode createRollup receipt", err)
	}
	a.logger.Info("rollup created",
		slog.String("rollup", contracts.Rollup.Hex()),
		slog.String("tx_hash", hash.Hex()),
		slog.Uint64("block_number", contracts.DeployedAtBlockNumber),
	)

	dep, err := d.derive(a, req, in, *contracts)
	if err != nil {
		return &Deployment{AttemptID: a.id, ChainType: req.ChainType, Contracts: *contracts}, fmt.Errorf(
			"rollup %s was created in transaction %s but its config could not be derived; inspect the chain manually: %w",
			contracts.Rollup.Hex(), hash.Hex(), err)
	}
	return dep, nil
}

// validate checks every address of the request, resolves the parent chain
// and builds the creation payload before anything is sent.
func (d *Deployer) validate(ctx context.Context, a *attempt, req Request) (*inputs, error) {
	a.enter(PhaseValidating, "Validating deployment inputs")

	if req.Client == nil {
		return nil, apperrors.NewValidationError("client", "a parent chain client is required")
	}
	if !req.ChainType.Valid() {
		return nil, apperrors.NewValidationError("chainType", fmt.Sprintf("unknown chain type %q", req.ChainType))
	}
	if err := orbit.AssertValidAddress("owner", req.Config.Owner); err != nil {
		return nil, err
	}

	account := req.Account
	if account == "" {
		account = req.Client.Account().Hex()
	}
	if err := orbit.AssertValidAddress("account", account); err != nil {
		return nil, err
	}

	nativeToken := req.Config.NativeToken
	if nativeToken == "" {
		nativeToken = orbit.ZeroAddress
	}
	if err := orbit.AssertValidAddress("nativeToken", nativeToken); err != nil {
		return nil, err
	}
	if err := orbit.AssertValidAddress("batchPoster", req.BatchPoster.Address); err != nil {
		return nil, err
	}
	validators := orbit.WalletAddresses(req.Validators)
	if err := orbit.AssertValidAddressList("validators", validators); err != nil {
		return nil, err
	}

	chainConfig, err := orbit.PrepareChainConfig(orbit.ChainConfigParamsFor(req.Config, req.ChainType))
	if err != nil {
		return nil, err
	}
	chainConfigJSON, err := chainConfig.JSON()
	if err != nil {
		return nil, err
	}
	payload, err := orbit.BuildRollupConfigPayload(req.Config, []byte(chainConfigJSON))
	if err != nil {
		return nil, err
	}

	parentChainID, err := req.Client.ChainID(ctx)
	if err != nil {
		return nil, classify(apperrors.KindValidation, "read parent chain id", err)
	}
	rpcURL, err := d.parentChainRPCURL(a, parentChainID)
	if err != nil {
		return nil, err
	}

	in := &inputs{
		account:       common.HexToAddress(account),
		owner:         common.HexToAddress(req.Config.Owner),
		nativeToken:   common.HexToAddress(nativeToken),
		batchPoster:   common.HexToAddress(req.BatchPoster.Address),
		validators:    make([]common.Address, len(validators)),
		chainConfig:   chainConfig,
		payload:       payload,
		parentChainID: parentChainID,
		rpcURL:        rpcURL,
	}
	for i, v := range validators {
		in.validators[i] = common.HexToAddress(v)
	}
	return in, nil
}

// parentChainRPCURL picks the endpoint written into the node and L3 config.
func (d *Deployer) parentChainRPCURL(a *attempt, parentChainID uint64) (string, error) {
	if d.config.ParentChainRPCURL != "" {
		return d.config.ParentChainRPCURL, nil
	}
	if url, ok := orbit.ParentChainRPCURL(parentChainID); ok {
		return url, nil
	}
	if d.config.FallbackRPCURL != "" {
		a.logger.Warn("no public RPC URL known for parent chain, using the configured endpoint",
			slog.Uint64("parent_chain_id", parentChainID),
		)
		return d.config.FallbackRPCURL, nil
	}
	return "", apperrors.NewValidationError("parentChainRpcUrl", fmt.Sprintf("no RPC URL for parent chain %d", parentChainID))
}

// ensureAllowance approves the RollupCreator to spend the retryables fee
// unless the account already did.
func (d *Deployer) ensureAllowance(ctx context.Context, a *attempt, client chain.Client, in *inputs) error {
	enough, err := d.creator.EnoughCustomFeeTokenAllowance(ctx, client, in.nativeToken, in.account)
	if err != nil {
		return classify(apperrors.KindAllowance, "check custom fee token allowance", err)
	}
	if enough {
		a.logger.Info("custom fee token allowance sufficient", slog.String("token", in.nativeToken.Hex()))
		return nil
	}

	tx, err := d.creator.PrepareCustomFeeTokenApproval(ctx, client, in.nativeToken, in.account)
	if err != nil {
		return classify(apperrors.KindAllowance, "prepare approval", err)
	}
	hash, err := client.SendTransaction(ctx, tx)
	if err != nil {
		d.transactionSent("approve", "failed")
		return classify(apperrors.KindAllowance, "send approval", err)
	}
	if _, err := client.WaitForConfirmation(ctx, hash); err != nil {
		d.transactionSent("approve", transactionResult(err))
		return classify(apperrors.KindAllowance, "approval not confirmed", err)
	}
	d.transactionSent("approve", "confirmed")

	a.logger.Info("custom fee token approved",
		slog.String("token", in.nativeToken.Hex()),
		slog.String("tx_hash", hash.Hex()),
	)
	return nil
}

// derive builds the node config and L3 config of a created chain.
func (d *Deployer) derive(a *attempt, req Request, in *inputs, contracts orbit.CoreContracts) (*Deployment, error) {
	a.enter(PhaseDerivingConfig, "Deriving node and L3 config")

	var celestia *orbit.CelestiaConfig
	if req.ChainType == orbit.ChainTypeCelestiaDA {
		cfg := orbit.CelestiaNodeConfig(req.CelestiaConfig)
		celestia = &cfg
	}

	nodeConfig, err := orbit.PrepareNodeConfig(orbit.NodeConfigParams{
		ChainName:             req.Config.ChainName,
		ChainConfig:           in.chainConfig,
		CoreContracts:         &contracts,
		BatchPosterPrivateKey: req.BatchPoster.PrivateKey,
		ValidatorPrivateKey:   req.Validators[0].PrivateKey,
		ParentChainID:         in.parentChainID,
		ParentChainRPCURL:     in.rpcURL,
		Celestia:              celestia,
	})
	if err != nil {
		return nil, err
	}

	l3Config, err := orbit.BuildL3Config(orbit.L3ConfigParams{
		Account:           in.account.Hex(),
		RollupConfig:      req.Config,
		CoreContracts:     &contracts,
		Validators:        req.Validators,
		BatchPoster:       req.BatchPoster,
		ParentChainID:     in.parentChainID,
		ParentChainRPCURL: in.rpcURL,
	})
	if err != nil {
		return nil, err
	}

	return &Deployment{
		AttemptID:  a.id,
		ChainType:  req.ChainType,
		Contracts:  contracts,
		NodeConfig: nodeConfig,
		L3Config:   l3Config,
	}, nil
}

func (d *Deployer) persist(ctx context.Context, dep *Deployment) error {
	artifacts := []struct {
		key   string
		value interface{}
	}{
		{session.NodeConfigKey, dep.NodeConfig},
		{session.L3ConfigKey, dep.L3Config},
	}

	for _, artifact := range artifacts {
		data, err := json.Marshal(artifact.value)
		if err != nil {
			return apperrors.Wrap(apperrors.KindPersistence, "marshal "+artifact.key, err)
		}
		if err := d.storage.Set(ctx, artifact.key, string(data)); err != nil {
			return apperrors.Wrap(apperrors.KindPersistence, "write "+artifact.key, err)
		}
	}
	return nil
}

func (d *Deployer) transactionSent(kind, result string) {
	if d.config.Metrics != nil {
		d.config.Metrics.TransactionSent(kind, result)
	}
}

func (d *Deployer) artifactsWritten(result string) {
	if d.config.Metrics != nil {
		d.config.Metrics.ArtifactsWritten(result)
	}
}

// classify keeps an already classified error and wraps anything else under kind.
func classify(kind apperrors.Kind, message string, err error) error {
	if apperrors.KindOf(err) != "" {
		return err
	}
	return apperrors.Wrap(kind, message, err)
}

func transactionResult(err error) string {
	if errors.Is(err, chain.ErrReverted) {
		return "reverted"
	}
	return "failed"
}

// attempt tracks the phase of one deployment attempt.
type attempt struct {
	d         *Deployer
	id        string
	chainType orbit.ChainType
	phase     Phase
	failed    Phase
	started   time.Time
	logger    *slog.Logger
}

func (d *Deployer) newAttempt(id string, chainType orbit.ChainType) *attempt {
	return &attempt{
		d:         d,
		id:        id,
		chainType: chainType,
		phase:     PhaseIdle,
		started:   time.Now(),
		logger:    d.logger.With(slog.String("attempt_id", id)),
	}
}

func (a *attempt) enter(phase Phase, message string) {
	a.finishPhase()
	a.phase = phase
	a.started = time.Now()

	a.logger.Debug("deployment phase", slog.String("phase", phase.String()))
	if a.d.config.OnProgress != nil {
		a.d.config.OnProgress(phase, phaseProgress[phase], message)
	}
}

// finishPhase records the duration of the current phase.
func (a *attempt) finishPhase() {
	if a.d.config.Metrics != nil && a.phase != PhaseIdle && !a.phase.Terminal() {
		a.d.config.Metrics.PhaseCompleted(a.phase.String(), time.Since(a.started))
	}
}

// fail reports a failed deployment attempt and counts it as finished.
func (a *attempt) fail(err error) {
	a.report(err)
	if a.d.config.Metrics != nil {
		a.d.config.Metrics.DeploymentFinished(a.chainType.String(), "failed")
	}
}

// report logs the failed phase and moves the attempt to PhaseFailed.
func (a *attempt) report(err error) {
	a.failed = a.phase
	a.logger.Error("rollup deployment failed",
		slog.String("phase", a.failed.String()),
		slog.String("kind", string(apperrors.KindOf(err))),
		slog.String("error", err.Error()),
	)
	if a.d.config.OnProgress != nil {
		a.d.config.OnProgress(PhaseFailed, phaseProgress[a.failed], err.Error())
	}
	a.phase = PhaseFailed
}

// wrap returns err tagged with the phase it failed in.
func (a *attempt) wrap(err error) error {
	return &DeploymentError{AttemptID: a.id, Phase: a.failed, Err: err}
}
