package deploy

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Bidon15/orbit-setup/internal/chain"
	"github.com/Bidon15/orbit-setup/internal/orbit"
)

// Phase is a step of a deployment attempt.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseValidating           Phase = "validating"
	PhaseApprovingAllowance   Phase = "approving_allowance"
	PhaseSubmitting           Phase = "submitting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseParsingReceipt       Phase = "parsing_receipt"
	PhaseDerivingConfig       Phase = "deriving_config"
	PhasePersisting           Phase = "persisting"
	PhaseDone                 Phase = "done"
	PhaseFailed               Phase = "failed"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Terminal reports whether no further transition leaves p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// phaseProgress is the fraction of the attempt reported on entering a phase.
var phaseProgress = map[Phase]float64{
	PhaseIdle:                 0,
	PhaseValidating:           0.05,
	PhaseApprovingAllowance:   0.15,
	PhaseSubmitting:           0.30,
	PhaseAwaitingConfirmation: 0.45,
	PhaseParsingReceipt:       0.70,
	PhaseDerivingConfig:       0.80,
	PhasePersisting:           0.90,
	PhaseDone:                 1.0,
}

// ProgressCallback is called on every phase transition.
type ProgressCallback func(phase Phase, progress float64, message string)

// RollupCreator prepares the parent chain transactions of a deployment and
// decodes their result. It is implemented by *orbit.RollupCreator.
type RollupCreator interface {
	EnoughCustomFeeTokenAllowance(ctx context.Context, client chain.Client, nativeToken, owner common.Address) (bool, error)
	PrepareCustomFeeTokenApproval(ctx context.Context, client chain.Client, nativeToken, owner common.Address) (*chain.TxRequest, error)
	PrepareCreateRollup(ctx context.Context, client chain.Client, params orbit.CreateRollupParams) (*chain.TxRequest, error)
	DecodeCreateRollupReceipt(receipt *types.Receipt) (*orbit.CoreContracts, error)
}

// Request holds everything one deployment reads.
type Request struct {
	Config      orbit.RollupConfig
	Validators  []orbit.Wallet
	BatchPoster orbit.Wallet
	ChainType   orbit.ChainType
	Client      chain.Client
	// Account is the deploying account. Empty uses Client.Account().
	Account string
	// CelestiaConfig overrides the Celestia defaults of CelestiaDA chains.
	CelestiaConfig *orbit.CelestiaConfig
}

// Deployment is the result of a successful on-chain deployment together
// with the artifacts derived from it.
type Deployment struct {
	AttemptID  string
	ChainType  orbit.ChainType
	Contracts  orbit.CoreContracts
	NodeConfig *orbit.NodeConfig
	L3Config   *orbit.L3Config
}

// DeploymentError wraps any failure of a deployment attempt.
type DeploymentError struct {
	AttemptID string
	Phase     Phase
	Err       error
}

// Error implements the error interface.
func (e *DeploymentError) Error() string {
	return fmt.Sprintf("failed to deploy rollup: %v", e.Err)
}

// Unwrap returns the classified cause.
func (e *DeploymentError) Unwrap() error {
	return e.Err
}
