package orbit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

func TestPrepareChainConfig(t *testing.T) {
	t.Run("rollup chain", func(t *testing.T) {
		cfg, err := PrepareChainConfig(ChainConfigParams{ChainID: 412346, InitialChainOwner: testOwner})
		require.NoError(t, err)

		assert.Equal(t, uint64(412346), cfg.ChainID)
		assert.True(t, cfg.Arbitrum.EnableArbOS)
		assert.False(t, cfg.Arbitrum.AllowDebugPrecompiles)
		assert.False(t, cfg.Arbitrum.DataAvailabilityCommittee)
		assert.False(t, cfg.Arbitrum.CelestiaDA)
		assert.Equal(t, testOwner, cfg.Arbitrum.InitialChainOwner)
		assert.Equal(t, uint64(DefaultInitialArbOSVersion), cfg.Arbitrum.InitialArbOSVersion)
	})

	t.Run("derives DA flags from chain type", func(t *testing.T) {
		base := DefaultRollupConfig(testOwner, 1)

		anytrust, err := PrepareChainConfig(ChainConfigParamsFor(base, ChainTypeAnyTrust))
		require.NoError(t, err)
		assert.True(t, anytrust.Arbitrum.DataAvailabilityCommittee)
		assert.False(t, anytrust.Arbitrum.CelestiaDA)

		celestia, err := PrepareChainConfig(ChainConfigParamsFor(base, ChainTypeCelestiaDA))
		require.NoError(t, err)
		assert.False(t, celestia.Arbitrum.DataAvailabilityCommittee)
		assert.True(t, celestia.Arbitrum.CelestiaDA)
	})

	t.Run("rejects both DA modes", func(t *testing.T) {
		_, err := PrepareChainConfig(ChainConfigParams{
			ChainID:                   1,
			InitialChainOwner:         testOwner,
			DataAvailabilityCommittee: true,
			CelestiaDA:                true,
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("rejects invalid owner and chain id", func(t *testing.T) {
		_, err := PrepareChainConfig(ChainConfigParams{ChainID: 1, InitialChainOwner: ""})
		assert.Equal(t, "owner", apperrors.FieldOf(err))

		_, err = PrepareChainConfig(ChainConfigParams{InitialChainOwner: testOwner})
		assert.Equal(t, "chainId", apperrors.FieldOf(err))
	})

	t.Run("serializes in node layout", func(t *testing.T) {
		cfg, err := PrepareChainConfig(ChainConfigParams{ChainID: 7, InitialChainOwner: testOwner, CelestiaDA: true})
		require.NoError(t, err)

		s, err := cfg.JSON()
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(s), &raw))
		assert.Equal(t, float64(7), raw["chainId"])
		assert.Nil(t, raw["daoForkBlock"])

		arbitrum, ok := raw["arbitrum"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, arbitrum["CelestiaDA"])
		assert.Equal(t, testOwner, arbitrum["InitialChainOwner"])
	})
}
