package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Bidon15/orbit-setup/internal/bundle"
	"github.com/Bidon15/orbit-setup/internal/chain/chaintest"
	"github.com/Bidon15/orbit-setup/internal/config"
	"github.com/Bidon15/orbit-setup/internal/metrics"
	"github.com/Bidon15/orbit-setup/internal/orbit"
	"github.com/Bidon15/orbit-setup/internal/session"
	"github.com/Bidon15/orbit-setup/internal/storage"
)

const (
	testOwner = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	// Well-known development key for 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266.
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

type testEnv struct {
	dir        string
	configFile string
	statePath  string
}

func newTestEnv(t *testing.T, extra string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configFile: filepath.Join(dir, "config.yaml"),
		statePath:  filepath.Join(dir, "state"),
	}
	content := "storage:\n  backend: leveldb\n  path: " + env.statePath + "\nlog:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(env.configFile, []byte(content), 0600))
	return env
}

func (e *testEnv) run(args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.configFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) state(t *testing.T) session.State {
	t.Helper()
	out, err := e.run("state", "show")
	require.NoError(t, err)

	var state session.State
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	return state
}

// seed writes a session directly to the state directory.
func (e *testEnv) seed(t *testing.T, actions ...session.Action) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.NewLevelDB(e.statePath)
	require.NoError(t, err)
	defer db.Close()

	store := session.Load(ctx, db, session.Options{})
	for _, action := range actions {
		store.Dispatch(ctx, action)
	}
	require.NoError(t, store.Err())
}

func TestStateShow(t *testing.T) {
	env := newTestEnv(t, "")

	t.Run("json", func(t *testing.T) {
		state := env.state(t)
		assert.Equal(t, orbit.DefaultChainName, state.RollupConfig.ChainName)
		assert.NotZero(t, state.RollupConfig.ChainID)
		assert.Nil(t, state.ChainType)
	})

	t.Run("session survives between runs", func(t *testing.T) {
		_, err := env.run("chain-type", "set", "Rollup")
		require.NoError(t, err)
		first := env.state(t)
		second := env.state(t)
		assert.Equal(t, first.RollupConfig.ChainID, second.RollupConfig.ChainID)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := env.run("state", "show", "-o", "yaml")
		require.NoError(t, err)

		var doc map[string]interface{}
		require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
		assert.Contains(t, doc, "rollupConfig")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := env.run("state", "show", "-o", "xml")
		assert.ErrorContains(t, err, "unknown output format")
	})
}

func TestConfigSet(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run("config", "set",
		"chainName=Test Chain",
		"baseStake=0.5",
		"confirmPeriodBlocks=20",
		"celestiaConfig.namespace_id=123456",
		"sequencerInboxMaxTimeVariation.delayBlocks=100",
	)
	require.NoError(t, err)

	state := env.state(t)
	assert.Equal(t, "Test Chain", state.RollupConfig.ChainName)
	assert.Equal(t, 0.5, state.RollupConfig.BaseStake)
	assert.Equal(t, uint64(20), state.RollupConfig.ConfirmPeriodBlocks)
	assert.Equal(t, "123456", state.RollupConfig.CelestiaConfig.NamespaceID)
	assert.Equal(t, orbit.DefaultCelestiaConfig().RPC, state.RollupConfig.CelestiaConfig.RPC)
	assert.Equal(t, uint64(100), state.RollupConfig.SequencerInboxMaxTimeVariation.DelayBlocks)
	assert.Equal(t, uint64(48), state.RollupConfig.SequencerInboxMaxTimeVariation.FutureBlocks)

	t.Run("rejected input leaves the session unchanged", func(t *testing.T) {
		tests := []struct {
			name string
			pair string
			want string
		}{
			{"unknown key", "blockTime=2", "invalid setting"},
			{"unknown nested key", "celestiaConfig.nope=1", "unknown setting"},
			{"not nested", "chainName.x=1", "no nested settings"},
			{"missing value", "chainName", "key=value"},
			{"wrong type", "confirmPeriodBlocks=soon", "invalid setting"},
			{"bad address", "nativeToken=0x123", "nativeToken"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := env.run("config", "set", tc.pair)
				assert.ErrorContains(t, err, tc.want)
				assert.Equal(t, "Test Chain", env.state(t).RollupConfig.ChainName)
			})
		}
	})
}

func TestParseConfigPatch(t *testing.T) {
	current := orbit.DefaultRollupConfig(testOwner, 42)

	patch, err := parseConfigPatch(current, []string{"chainId=7", "owner=" + testKeyAddr, "celestiaConfig.enable=false"})
	require.NoError(t, err)

	next := patch.Apply(current)
	assert.Equal(t, uint64(7), next.ChainID)
	assert.Equal(t, testKeyAddr, next.Owner)
	assert.False(t, next.CelestiaConfig.Enable)
	assert.Equal(t, orbit.DefaultCelestiaConfig().NamespaceID, next.CelestiaConfig.NamespaceID)
	assert.Nil(t, patch.ChainName)
}

func TestChainType(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run("chain-type", "set", "AnyTrust")
	require.NoError(t, err)
	state := env.state(t)
	require.NotNil(t, state.ChainType)
	assert.Equal(t, orbit.ChainTypeAnyTrust, *state.ChainType)

	out, err := env.run("chain-type", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "*  AnyTrust")
	assert.Contains(t, out, "CelestiaDA")

	_, err = env.run("chain-type", "set", "Plasma")
	assert.Error(t, err)
}

func TestWallets(t *testing.T) {
	t.Run("validators", func(t *testing.T) {
		env := newTestEnv(t, "")

		out, err := env.run("validators", "set", "--generate", "2")
		require.NoError(t, err)
		assert.Contains(t, out, "stored")

		state := env.state(t)
		require.Len(t, state.Validators, 2)
		for _, v := range state.Validators {
			assert.True(t, orbit.IsAddress(v.Address))
			assert.NotEmpty(t, v.PrivateKey)
		}

		_, err = env.run("validators", "set", testOwner, testKey)
		require.NoError(t, err)
		state = env.state(t)
		require.Len(t, state.Validators, 2)
		assert.Equal(t, orbit.Wallet{Address: testOwner}, state.Validators[0])
		assert.Equal(t, common.HexToAddress(testKeyAddr), common.HexToAddress(state.Validators[1].Address))

		_, err = env.run("validators", "set")
		assert.Error(t, err)
		_, err = env.run("validators", "set", testOwner, "--generate", "1")
		assert.Error(t, err)
		_, err = env.run("validators", "set", "nope")
		assert.ErrorContains(t, err, "neither an address nor a private key")
	})

	t.Run("batch poster", func(t *testing.T) {
		env := newTestEnv(t, "")

		_, err := env.run("batch-poster", "set", testKey)
		require.NoError(t, err)
		state := env.state(t)
		require.NotNil(t, state.BatchPoster)
		assert.Equal(t, common.HexToAddress(testKeyAddr), common.HexToAddress(state.BatchPoster.Address))
		assert.NotEmpty(t, state.BatchPoster.PrivateKey)

		_, err = env.run("batch-poster", "set", "--generate")
		require.NoError(t, err)
		assert.NotEqual(t, state.BatchPoster.Address, env.state(t).BatchPoster.Address)
	})

	t.Run("connect explicit address", func(t *testing.T) {
		env := newTestEnv(t, "")

		out, err := env.run("wallet", "connect", testOwner)
		require.NoError(t, err)
		assert.Contains(t, out, testOwner)
		assert.Equal(t, testOwner, env.state(t).RollupConfig.Owner)
	})

	t.Run("connect configured signer", func(t *testing.T) {
		env := newTestEnv(t, "signer:\n  private_key: \""+testKey+"\"\n")

		_, err := env.run("wallet", "connect")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(testKeyAddr), common.HexToAddress(env.state(t).RollupConfig.Owner))
	})

	t.Run("generate", func(t *testing.T) {
		env := newTestEnv(t, "")

		out, err := env.run("wallet", "generate")
		require.NoError(t, err)
		var wallet orbit.Wallet
		require.NoError(t, json.Unmarshal([]byte(out), &wallet))
		assert.True(t, orbit.IsAddress(wallet.Address))
		assert.Empty(t, env.state(t).Validators)
	})
}

func TestDeploy_RequiresParentChain(t *testing.T) {
	env := newTestEnv(t, "")
	_, err := env.run("deploy")
	assert.ErrorContains(t, err, "parent_chain.rpc_url")
}

func TestWizard_NodeConfigRPCURL(t *testing.T) {
	ctx := context.Background()
	const privateRPC = "https://arb-sepolia.example/v2/secret-key"
	sepoliaRPC, ok := orbit.ParentChainRPCURL(421614)
	require.True(t, ok)

	tests := []struct {
		name          string
		parentChainID uint64
		publicRPC     string
		want          string
	}{
		{"known parent chain uses its public endpoint", 421614, "", sepoliaRPC},
		{"public_rpc_url wins", 421614, "https://public.example", "https://public.example"},
		{"unknown parent chain falls back to rpc_url", 31337, "", privateRPC},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := storage.NewMemory()
			store := session.Load(ctx, kv, session.Options{})
			store.ConnectWallet(ctx, testOwner)
			store.Dispatch(ctx, session.SetChainType{ChainType: orbit.ChainTypeRollup})
			store.Dispatch(ctx, session.SetValidators{Validators: []orbit.Wallet{{Address: testOwner, PrivateKey: "0xaaaa"}}})
			store.Dispatch(ctx, session.SetBatchPoster{BatchPoster: orbit.Wallet{Address: testKeyAddr, PrivateKey: "0xbbbb"}})
			store.Dispatch(ctx, session.SetRollupContracts{Contracts: orbit.CoreContracts{Rollup: common.HexToAddress("0xa1")}})

			a := &app{
				cfg: &config.Config{ParentChain: config.ParentChainConfig{
					RPCURL:       privateRPC,
					PublicRPCURL: tc.publicRPC,
				}},
				logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
				storage: kv,
				store:   store,
				metrics: metrics.New(),
			}
			w, err := a.wizard(nil)
			require.NoError(t, err)

			client := new(chaintest.MockClient)
			client.On("ChainID", mock.Anything).Return(tc.parentChainID, nil)
			require.NoError(t, w.RegenerateArtifacts(ctx, client, testOwner))

			raw, err := kv.Get(ctx, session.NodeConfigKey)
			require.NoError(t, err)
			var nodeConfig orbit.NodeConfig
			require.NoError(t, json.Unmarshal([]byte(raw), &nodeConfig))
			assert.Equal(t, tc.want, nodeConfig.ParentChain.Connection.URL)

			raw, err = kv.Get(ctx, session.L3ConfigKey)
			require.NoError(t, err)
			var l3Config orbit.L3Config
			require.NoError(t, json.Unmarshal([]byte(raw), &l3Config))
			assert.Equal(t, tc.want, l3Config.ParentChainNodeURL)
		})
	}
}

func TestDownload(t *testing.T) {
	t.Run("not deployed", func(t *testing.T) {
		env := newTestEnv(t, "")
		_, err := env.run("download", "-o", filepath.Join(env.dir, "bundle.tar.gz"))
		assert.ErrorIs(t, err, bundle.ErrNotDeployed)
		assert.NoFileExists(t, filepath.Join(env.dir, "bundle.tar.gz"))
	})

	t.Run("deployed", func(t *testing.T) {
		env := newTestEnv(t, "")
		chainType := orbit.ChainTypeRollup
		env.seed(t,
			session.SetChainType{ChainType: chainType},
			session.SetRollupContracts{Contracts: orbit.CoreContracts{Rollup: common.HexToAddress("0xa1")}},
		)

		db, err := storage.NewLevelDB(env.statePath)
		require.NoError(t, err)
		require.NoError(t, db.Set(context.Background(), session.NodeConfigKey, `{"chain":{"name":"x"}}`))
		require.NoError(t, db.Set(context.Background(), session.L3ConfigKey, `{"chainName":"x"}`))
		require.NoError(t, db.Close())

		path := filepath.Join(env.dir, "bundle.tar.gz")
		_, err = env.run("download", "-o", path)
		require.NoError(t, err)
		assert.FileExists(t, path)
		assert.True(t, env.state(t).IsDownloadCompleted)
	})
}

func TestReset(t *testing.T) {
	t.Run("keeps the owner", func(t *testing.T) {
		env := newTestEnv(t, "")
		_, err := env.run("wallet", "connect", testOwner)
		require.NoError(t, err)
		_, err = env.run("chain-type", "set", "Rollup")
		require.NoError(t, err)

		_, err = env.run("reset")
		require.NoError(t, err)
		state := env.state(t)
		assert.Equal(t, testOwner, state.RollupConfig.Owner)
		assert.Nil(t, state.ChainType)
	})

	t.Run("new owner", func(t *testing.T) {
		env := newTestEnv(t, "")
		_, err := env.run("reset", "--owner", testKeyAddr)
		require.NoError(t, err)
		assert.Equal(t, testKeyAddr, env.state(t).RollupConfig.Owner)

		_, err = env.run("reset", "--owner", "nope")
		assert.ErrorContains(t, err, "owner")
	})

	t.Run("deployed chain needs force until downloaded", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.seed(t, session.SetRollupContracts{Contracts: orbit.CoreContracts{Rollup: common.HexToAddress("0xa1")}})

		_, err := env.run("reset")
		assert.ErrorContains(t, err, "--force")
		assert.NotNil(t, env.state(t).RollupContracts)

		_, err = env.run("reset", "--force")
		require.NoError(t, err)
		assert.Nil(t, env.state(t).RollupContracts)
	})
}
