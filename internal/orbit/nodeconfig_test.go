package orbit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

func testNodeConfigParams(t *testing.T, chainType ChainType) NodeConfigParams {
	t.Helper()
	rollup := DefaultRollupConfig(testOwner, 412346)
	chainConfig, err := PrepareChainConfig(ChainConfigParamsFor(rollup, chainType))
	require.NoError(t, err)

	params := NodeConfigParams{
		ChainName:             rollup.ChainName,
		ChainConfig:           chainConfig,
		CoreContracts:         testCoreContracts(),
		BatchPosterPrivateKey: "0xabc123",
		ValidatorPrivateKey:   "def456",
		ParentChainID:         421614,
		ParentChainRPCURL:     "https://sepolia-rollup.arbitrum.io/rpc",
	}
	if chainType == ChainTypeCelestiaDA {
		celestia := DefaultCelestiaConfig()
		params.Celestia = &celestia
	}
	return params
}

func TestPrepareNodeConfig(t *testing.T) {
	t.Run("rollup chain", func(t *testing.T) {
		cfg, err := PrepareNodeConfig(testNodeConfigParams(t, ChainTypeRollup))
		require.NoError(t, err)

		assert.Equal(t, "My Arbitrum L3 Chain", cfg.Chain.Name)
		assert.Equal(t, "https://sepolia-rollup.arbitrum.io/rpc", cfg.ParentChain.Connection.URL)
		assert.True(t, cfg.Node.Sequencer)
		assert.True(t, cfg.Node.BatchPoster.Enable)
		assert.Equal(t, "abc123", cfg.Node.BatchPoster.ParentChainWallet.PrivateKey)
		assert.Equal(t, "def456", cfg.Node.Staker.ParentChainWallet.PrivateKey)
		assert.Equal(t, "MakeNodes", cfg.Node.Staker.Strategy)
		assert.Nil(t, cfg.Node.DataAvailability)
		assert.Nil(t, cfg.Node.Celestia)
	})

	t.Run("chain info embeds contracts", func(t *testing.T) {
		cfg, err := PrepareNodeConfig(testNodeConfigParams(t, ChainTypeRollup))
		require.NoError(t, err)

		var info ChainInfo
		require.NoError(t, json.Unmarshal([]byte(cfg.Chain.InfoJSON), &info))
		require.Len(t, info, 1)

		entry := info[0]
		contracts := testCoreContracts()
		assert.Equal(t, uint64(412346), entry.ChainID)
		assert.Equal(t, uint64(421614), entry.ParentChainID)
		assert.True(t, entry.ParentChainIsArbitrum)
		assert.Equal(t, contracts.Bridge.Hex(), entry.Rollup.Bridge)
		assert.Equal(t, contracts.SequencerInbox.Hex(), entry.Rollup.SequencerInbox)
		assert.Equal(t, uint64(12345678), entry.Rollup.DeployedAt)
		require.NotNil(t, entry.ChainConfig)
		assert.Equal(t, testOwner, entry.ChainConfig.Arbitrum.InitialChainOwner)
	})

	t.Run("anytrust chain gets DAS section", func(t *testing.T) {
		cfg, err := PrepareNodeConfig(testNodeConfigParams(t, ChainTypeAnyTrust))
		require.NoError(t, err)

		require.NotNil(t, cfg.Node.DataAvailability)
		assert.True(t, cfg.Node.DataAvailability.Enable)
		assert.Equal(t, testCoreContracts().SequencerInbox.Hex(), cfg.Node.DataAvailability.SequencerInboxAddress)
		assert.Nil(t, cfg.Node.Celestia)
	})

	t.Run("celestia chain gets celestia section", func(t *testing.T) {
		cfg, err := PrepareNodeConfig(testNodeConfigParams(t, ChainTypeCelestiaDA))
		require.NoError(t, err)

		require.NotNil(t, cfg.Node.Celestia)
		assert.True(t, cfg.Node.Celestia.Enable)
		assert.True(t, cfg.Node.Celestia.IsPoster)
		assert.Equal(t, "000008e5f679bf7116cb", cfg.Node.Celestia.NamespaceID)
		assert.Nil(t, cfg.Node.DataAvailability)

		data, err := json.Marshal(cfg)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"celestia-cfg"`)
		assert.Contains(t, string(data), `"blobstreamx_address":"0xc3e209eb245Fd59c8586777b499d6A665DF3ABD2"`)
	})

	t.Run("empty keys stay empty", func(t *testing.T) {
		params := testNodeConfigParams(t, ChainTypeRollup)
		params.BatchPosterPrivateKey = ""
		params.ValidatorPrivateKey = ""

		cfg, err := PrepareNodeConfig(params)
		require.NoError(t, err)
		assert.Empty(t, cfg.Node.BatchPoster.ParentChainWallet.PrivateKey)
		assert.Empty(t, cfg.Node.Staker.ParentChainWallet.PrivateKey)
	})

	t.Run("requires rpc url and contracts", func(t *testing.T) {
		params := testNodeConfigParams(t, ChainTypeRollup)
		params.ParentChainRPCURL = ""
		_, err := PrepareNodeConfig(params)
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		params = testNodeConfigParams(t, ChainTypeRollup)
		params.CoreContracts = nil
		_, err = PrepareNodeConfig(params)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}
