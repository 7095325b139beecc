package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/orbit-setup/internal/orbit"
)

func strPtr(s string) *string { return &s }

func populatedState() State {
	ct := orbit.ChainTypeAnyTrust
	contracts := testContracts()
	cfg := orbit.DefaultRollupConfig(otherOwner, 99)
	cfg.ChainName = "Custom"
	cfg.BaseStake = 2
	return State{
		RollupConfig:        cfg,
		ChainType:           &ct,
		Validators:          []orbit.Wallet{{Address: testOwner}},
		BatchPoster:         &orbit.Wallet{Address: otherOwner},
		RollupContracts:     &contracts,
		IsLoading:           true,
		IsDownloadCompleted: true,
	}
}

func TestReduce(t *testing.T) {
	defaults := orbit.DefaultRollupConfig("", testChainID)

	t.Run("set rollup config merges", func(t *testing.T) {
		state := NewState(defaults)
		name := "Merged"
		stake := 1.5

		next := Reduce(defaults, state, SetRollupConfig{Patch: orbit.RollupConfigPatch{
			ChainName: &name,
			BaseStake: &stake,
		}})

		assert.Equal(t, "Merged", next.RollupConfig.ChainName)
		assert.Equal(t, 1.5, next.RollupConfig.BaseStake)
		assert.Equal(t, defaults.ConfirmPeriodBlocks, next.RollupConfig.ConfirmPeriodBlocks)
		assert.Equal(t, defaults.ChainName, state.RollupConfig.ChainName)
	})

	t.Run("reset keeps only the owner", func(t *testing.T) {
		next := Reduce(defaults, populatedState(), Reset{Owner: "0xABC"})

		want := defaults
		want.Owner = "0xABC"
		assert.Equal(t, want, next.RollupConfig)
		assert.Nil(t, next.ChainType)
		assert.Nil(t, next.Validators)
		assert.Nil(t, next.BatchPoster)
		assert.Nil(t, next.RollupContracts)
		assert.False(t, next.IsLoading)
		assert.False(t, next.IsDownloadCompleted)
	})

	t.Run("reset is idempotent", func(t *testing.T) {
		once := Reduce(defaults, populatedState(), Reset{Owner: testOwner})
		twice := Reduce(defaults, once, Reset{Owner: testOwner})
		assert.Equal(t, once, twice)
	})

	t.Run("reset with chain id", func(t *testing.T) {
		next := Reduce(defaults, populatedState(), Reset{Owner: testOwner, ChainID: 12345})
		assert.Equal(t, uint64(12345), next.RollupConfig.ChainID)
	})

	t.Run("does not modify its input", func(t *testing.T) {
		state := populatedState()
		before := state.Clone()

		Reduce(defaults, state, SetValidators{Validators: []orbit.Wallet{{Address: otherOwner}}})
		Reduce(defaults, state, SetChainType{ChainType: orbit.ChainTypeRollup})
		Reduce(defaults, state, Reset{Owner: ""})

		assert.Equal(t, before, state)
	})

	t.Run("does not share memory with the action", func(t *testing.T) {
		validators := []orbit.Wallet{{Address: testOwner}}
		next := Reduce(defaults, NewState(defaults), SetValidators{Validators: validators})

		validators[0].Address = otherOwner
		assert.Equal(t, testOwner, next.Validators[0].Address)
	})

	t.Run("does not share memory with the previous state", func(t *testing.T) {
		state := populatedState()
		next := Reduce(defaults, state, SetLoading{Loading: false})

		next.Validators[0].Address = "changed"
		next.BatchPoster.Address = "changed"
		next.RollupContracts.DeployedAtBlockNumber = 1
		*next.ChainType = orbit.ChainTypeRollup

		assert.Equal(t, populatedState(), state)
	})

	t.Run("single field actions", func(t *testing.T) {
		state := NewState(defaults)

		next := Reduce(defaults, state, SetChainType{ChainType: orbit.ChainTypeCelestiaDA})
		require.NotNil(t, next.ChainType)
		assert.Equal(t, orbit.ChainTypeCelestiaDA, *next.ChainType)

		next = Reduce(defaults, next, SetBatchPoster{BatchPoster: orbit.Wallet{Address: testOwner}})
		require.NotNil(t, next.BatchPoster)
		assert.Equal(t, testOwner, next.BatchPoster.Address)

		next = Reduce(defaults, next, SetRollupContracts{Contracts: testContracts()})
		require.NotNil(t, next.RollupContracts)
		assert.True(t, next.Deployed())

		next = Reduce(defaults, next, SetLoading{Loading: true})
		assert.True(t, next.IsLoading)

		next = Reduce(defaults, next, SetDownloadCompleted{Completed: true})
		assert.True(t, next.IsDownloadCompleted)
	})
}
