package session

import (
	"github.com/Bidon15/orbit-setup/internal/orbit"
)

// Action is a single state transition.
type Action interface {
	// Type names the action in logs.
	Type() string
}

// SetRollupContracts records the contracts of a deployment.
type SetRollupContracts struct {
	Contracts orbit.CoreContracts
}

// SetRollupConfig merges Patch onto the current rollup config.
type SetRollupConfig struct {
	Patch orbit.RollupConfigPatch
}

// SetChainType selects the chain type.
type SetChainType struct {
	ChainType orbit.ChainType
}

// SetValidators replaces the validator set.
type SetValidators struct {
	Validators []orbit.Wallet
}

// SetBatchPoster replaces the batch poster.
type SetBatchPoster struct {
	BatchPoster orbit.Wallet
}

// SetLoading marks whether a deployment is in flight.
type SetLoading struct {
	Loading bool
}

// SetDownloadCompleted marks whether the artifacts were retrieved.
type SetDownloadCompleted struct {
	Completed bool
}

// Reset re-seeds the rollup config from the defaults with Owner and clears
// everything else. A zero ChainID keeps the default chain id.
type Reset struct {
	Owner   string
	ChainID uint64
}

func (SetRollupContracts) Type() string   { return "set_rollup_contracts" }
func (SetRollupConfig) Type() string      { return "set_rollup_config" }
func (SetChainType) Type() string         { return "set_chain_type" }
func (SetValidators) Type() string        { return "set_validators" }
func (SetBatchPoster) Type() string       { return "set_batch_poster" }
func (SetLoading) Type() string           { return "set_loading" }
func (SetDownloadCompleted) Type() string { return "set_download_completed" }
func (Reset) Type() string                { return "reset" }

// Reduce applies action to state and returns the new state. state is never
// modified and the result shares no memory with it or with the action.
// Unknown actions return an unchanged copy.
func Reduce(defaults orbit.RollupConfig, state State, action Action) State {
	next := state.Clone()

	switch a := action.(type) {
	case SetRollupContracts:
		contracts := a.Contracts
		next.RollupContracts = &contracts
	case SetRollupConfig:
		next.RollupConfig = a.Patch.Apply(next.RollupConfig)
	case SetChainType:
		ct := a.ChainType
		next.ChainType = &ct
	case SetValidators:
		next.Validators = nil
		if a.Validators != nil {
			next.Validators = make([]orbit.Wallet, len(a.Validators))
			copy(next.Validators, a.Validators)
		}
	case SetBatchPoster:
		bp := a.BatchPoster
		next.BatchPoster = &bp
	case SetLoading:
		next.IsLoading = a.Loading
	case SetDownloadCompleted:
		next.IsDownloadCompleted = a.Completed
	case Reset:
		cfg := defaults
		cfg.Owner = a.Owner
		if a.ChainID != 0 {
			cfg.ChainID = a.ChainID
		}
		next = NewState(cfg)
	}

	return next
}
