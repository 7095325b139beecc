package orbit

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

// Test fixtures
func testCoreContracts() *CoreContracts {
	return &CoreContracts{
		Rollup:                 common.HexToAddress("0x1234567890123456789012345678901234567890"),
		NativeToken:            common.HexToAddress(ZeroAddress),
		Inbox:                  common.HexToAddress("0x2345678901234567890123456789012345678901"),
		Outbox:                 common.HexToAddress("0x3456789012345678901234567890123456789012"),
		RollupEventInbox:       common.HexToAddress("0x6789012345678901234567890123456789012345"),
		ChallengeManager:       common.HexToAddress("0x7890123456789012345678901234567890123456"),
		AdminProxy:             common.HexToAddress("0x8901234567890123456789012345678901234567"),
		SequencerInbox:         common.HexToAddress("0x5678901234567890123456789012345678901234"),
		Bridge:                 common.HexToAddress("0x4567890123456789012345678901234567890123"),
		UpgradeExecutor:        common.HexToAddress("0x9012345678901234567890123456789012345678"),
		ValidatorUtils:         common.HexToAddress("0xa012345678901234567890123456789012345678"),
		ValidatorWalletCreator: common.HexToAddress("0x0123456789012345678901234567890123456789"),
		DeployedAtBlockNumber:  12345678,
	}
}

func TestParseChainType(t *testing.T) {
	t.Run("accepts known types case-insensitively", func(t *testing.T) {
		for input, want := range map[string]ChainType{
			"Rollup":     ChainTypeRollup,
			"anytrust":   ChainTypeAnyTrust,
			"CELESTIADA": ChainTypeCelestiaDA,
		} {
			got, err := ParseChainType(input)
			require.NoError(t, err, input)
			assert.Equal(t, want, got)
		}
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		_, err := ParseChainType("Validium")
		assert.Error(t, err)
		assert.False(t, ChainType("Validium").Valid())
	})

	t.Run("json rejects unknown types", func(t *testing.T) {
		var ct ChainType
		require.NoError(t, json.Unmarshal([]byte(`"AnyTrust"`), &ct))
		assert.Equal(t, ChainTypeAnyTrust, ct)

		assert.Error(t, json.Unmarshal([]byte(`"Plasma"`), &ct))
	})
}

func TestDefaultRollupConfig(t *testing.T) {
	cfg := DefaultRollupConfig(testOwner, 12345)

	assert.Equal(t, uint64(150), cfg.ConfirmPeriodBlocks)
	assert.Equal(t, ZeroAddress, cfg.StakeToken)
	assert.Equal(t, 0.1, cfg.BaseStake)
	assert.Equal(t, testOwner, cfg.Owner)
	assert.Equal(t, DefaultWasmModuleRoot, cfg.WasmModuleRoot)
	assert.Equal(t, uint64(12345), cfg.ChainID)
	assert.Equal(t, "My Arbitrum L3 Chain", cfg.ChainName)
	assert.Equal(t, ZeroAddress, cfg.NativeToken)
	assert.Equal(t, SequencerInboxMaxTimeVariation{5760, 48, 86400, 3600}, cfg.SequencerInboxMaxTimeVariation)
	assert.Equal(t, CelestiaConfig{}, cfg.CelestiaConfig)
	assert.False(t, cfg.UsesCustomFeeToken())
}

func TestRollupConfigPatch_Apply(t *testing.T) {
	base := DefaultRollupConfig("", 1)

	t.Run("merges only set fields", func(t *testing.T) {
		name := "Test Chain"
		token := "0x1111111111111111111111111111111111111111"
		got := RollupConfigPatch{ChainName: &name, NativeToken: &token}.Apply(base)

		assert.Equal(t, "Test Chain", got.ChainName)
		assert.Equal(t, token, got.NativeToken)
		assert.True(t, got.UsesCustomFeeToken())
		assert.Equal(t, base.ConfirmPeriodBlocks, got.ConfirmPeriodBlocks)
		assert.Equal(t, base.ChainID, got.ChainID)
		assert.Equal(t, "My Arbitrum L3 Chain", base.ChainName, "source must not change")
	})

	t.Run("empty patch is identity", func(t *testing.T) {
		assert.Equal(t, base, RollupConfigPatch{}.Apply(base))
	})

	t.Run("decodes partial json", func(t *testing.T) {
		var patch RollupConfigPatch
		require.NoError(t, json.Unmarshal([]byte(`{"confirmPeriodBlocks": 20, "baseStake": 1.5}`), &patch))

		got := patch.Apply(base)
		assert.Equal(t, uint64(20), got.ConfirmPeriodBlocks)
		assert.Equal(t, 1.5, got.BaseStake)
		assert.Equal(t, base.ChainName, got.ChainName)
	})

	t.Run("owner patch", func(t *testing.T) {
		assert.Equal(t, testOwner, OwnerPatch(testOwner).Apply(base).Owner)
	})
}

func TestCelestiaNodeConfig(t *testing.T) {
	defaults := DefaultCelestiaConfig()

	t.Run("no override", func(t *testing.T) {
		assert.Equal(t, defaults, CelestiaNodeConfig(nil))
	})

	t.Run("partial override keeps defaults", func(t *testing.T) {
		got := CelestiaNodeConfig(&CelestiaConfig{Enable: true, RPC: "http://x:26658"})
		assert.Equal(t, "http://x:26658", got.RPC)
		assert.True(t, got.Enable)
		assert.True(t, got.IsPoster)
		assert.Equal(t, defaults.NamespaceID, got.NamespaceID)
		assert.Equal(t, defaults.TendermintRPC, got.TendermintRPC)
		assert.Equal(t, defaults.GasPrice, got.GasPrice)
		assert.Equal(t, defaults.EventChannelSize, got.EventChannelSize)
		assert.Equal(t, defaults.BlobstreamXAddress, got.BlobstreamXAddress)
	})

	t.Run("disabled or non-posting override is forced on", func(t *testing.T) {
		got := CelestiaNodeConfig(&CelestiaConfig{NamespaceID: "00000000000000000001", GasPrice: 0.5})
		assert.True(t, got.Enable)
		assert.True(t, got.IsPoster)
		assert.Equal(t, "00000000000000000001", got.NamespaceID)
		assert.Equal(t, 0.5, got.GasPrice)
	})
}

func TestWallets(t *testing.T) {
	t.Run("generate produces a usable keypair", func(t *testing.T) {
		w, err := GenerateWallet()
		require.NoError(t, err)
		assert.True(t, IsAddress(w.Address))

		derived, err := WalletFromPrivateKey(w.PrivateKey)
		require.NoError(t, err)
		assert.Equal(t, w, derived)
	})

	t.Run("rejects bad key", func(t *testing.T) {
		_, err := WalletFromPrivateKey("0x1234")
		assert.Error(t, err)
	})

	t.Run("addresses keep order", func(t *testing.T) {
		ws := []Wallet{{Address: "0xa"}, {Address: "0xb"}}
		assert.Equal(t, []string{"0xa", "0xb"}, WalletAddresses(ws))
	})
}

func TestCoreContracts_JSON(t *testing.T) {
	contracts := testCoreContracts()

	data, err := json.Marshal(contracts)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"deployedAtBlockNumber":12345678`)
	assert.Contains(t, string(data), `"validatorWalletCreator"`)

	var decoded CoreContracts
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *contracts, decoded)
}

func TestGenerateChainID(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 50; i++ {
		id := GenerateChainID()
		assert.GreaterOrEqual(t, id, uint64(minGeneratedChainID))
		assert.LessOrEqual(t, id, uint64(maxGeneratedChainID))
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1)
}
