package orbit

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

// NodeConfigParams are the inputs of PrepareNodeConfig.
type NodeConfigParams struct {
	ChainName     string
	ChainConfig   *ChainConfig
	CoreContracts *CoreContracts
	// BatchPosterPrivateKey and ValidatorPrivateKey may be empty.
	BatchPosterPrivateKey string
	ValidatorPrivateKey   string
	ParentChainID         uint64
	ParentChainRPCURL     string
	// Celestia is set only for CelestiaDA chains.
	Celestia *CelestiaConfig
}

// NodeConfig is the Nitro node configuration for the new chain's sequencer.
type NodeConfig struct {
	Chain       NodeChainConfig   `json:"chain"`
	ParentChain ParentChainConfig `json:"parent-chain"`
	HTTP        HTTPConfig        `json:"http"`
	Node        NodeSettings      `json:"node"`
	Execution   ExecutionConfig   `json:"execution"`
}

// NodeChainConfig embeds the chain info as a JSON string.
type NodeChainConfig struct {
	InfoJSON string `json:"info-json"`
	Name     string `json:"name"`
}

// ParentChainConfig contains parent chain connection settings.
type ParentChainConfig struct {
	Connection ConnectionConfig `json:"connection"`
}

// ConnectionConfig contains RPC connection settings.
type ConnectionConfig struct {
	URL string `json:"url"`
}

// HTTPConfig contains HTTP RPC settings.
type HTTPConfig struct {
	Addr       string   `json:"addr"`
	Port       int      `json:"port"`
	VHosts     string   `json:"vhosts"`
	Corsdomain string   `json:"corsdomain"`
	API        []string `json:"api"`
}

// NodeSettings contains node-specific settings.
type NodeSettings struct {
	Sequencer        bool              `json:"sequencer"`
	DelayedSequencer DelayedSeqConfig  `json:"delayed-sequencer"`
	BatchPoster      BatchPosterConfig `json:"batch-poster"`
	Staker           StakerConfig      `json:"staker"`
	Dangerous        DangerousConfig   `json:"dangerous"`
	DataAvailability *DAConfig         `json:"data-availability,omitempty"`
	Celestia         *CelestiaConfig   `json:"celestia-cfg,omitempty"`
}

// DelayedSeqConfig contains delayed sequencer settings.
type DelayedSeqConfig struct {
	Enable           bool `json:"enable"`
	UseMergeFinality bool `json:"use-merge-finality"`
	FinalizeDistance int  `json:"finalize-distance"`
}

// BatchPosterConfig contains batch poster settings.
type BatchPosterConfig struct {
	Enable            bool         `json:"enable"`
	MaxSize           int          `json:"max-size"`
	ParentChainWallet WalletConfig `json:"parent-chain-wallet"`
}

// StakerConfig contains staker/validator settings.
type StakerConfig struct {
	Enable            bool         `json:"enable"`
	Strategy          string       `json:"strategy"`
	ParentChainWallet WalletConfig `json:"parent-chain-wallet"`
}

// WalletConfig holds a hex private key without 0x prefix.
type WalletConfig struct {
	PrivateKey string `json:"private-key"`
}

// DangerousConfig holds settings Nitro flags as unsafe for production.
type DangerousConfig struct {
	NoSequencerCoordinator bool `json:"no-sequencer-coordinator"`
}

// DAConfig contains AnyTrust data availability settings.
type DAConfig struct {
	Enable                bool                 `json:"enable"`
	SequencerInboxAddress string               `json:"sequencer-inbox-address"`
	ParentChainNodeURL    string               `json:"parent-chain-node-url"`
	RestAggregator        RestAggregatorConfig `json:"rest-aggregator"`
	RPCAggregator         RPCAggregatorConfig  `json:"rpc-aggregator"`
}

// RestAggregatorConfig lists DAS REST endpoints.
type RestAggregatorConfig struct {
	Enable bool     `json:"enable"`
	URLs   []string `json:"urls"`
}

// RPCAggregatorConfig configures the DAS RPC aggregator.
type RPCAggregatorConfig struct {
	Enable        bool   `json:"enable"`
	AssumedHonest int    `json:"assumed-honest"`
	Backends      string `json:"backends"`
}

// ExecutionConfig contains execution settings.
type ExecutionConfig struct {
	ForwardingTarget string                   `json:"forwarding-target"`
	Sequencer        ExecutionSequencerConfig `json:"sequencer"`
	Caching          CachingConfig            `json:"caching"`
}

// ExecutionSequencerConfig contains sequencer execution settings.
type ExecutionSequencerConfig struct {
	Enable        bool   `json:"enable"`
	MaxTxDataSize int    `json:"max-tx-data-size"`
	MaxBlockSpeed string `json:"max-block-speed"`
}

// CachingConfig contains state caching settings.
type CachingConfig struct {
	Archive bool `json:"archive"`
}

// ChainInfo is the array Nitro reads from chain.info-json.
type ChainInfo []ChainInfoEntry

// ChainInfoEntry describes one chain.
type ChainInfoEntry struct {
	ChainID               uint64       `json:"chain-id"`
	ParentChainID         uint64       `json:"parent-chain-id"`
	ParentChainIsArbitrum bool         `json:"parent-chain-is-arbitrum"`
	ChainName             string       `json:"chain-name"`
	ChainConfig           *ChainConfig `json:"chain-config"`
	Rollup                RollupInfo   `json:"rollup"`
}

// RollupInfo contains rollup contract addresses.
type RollupInfo struct {
	Bridge                 string `json:"bridge"`
	Inbox                  string `json:"inbox"`
	SequencerInbox         string `json:"sequencer-inbox"`
	Rollup                 string `json:"rollup"`
	ValidatorUtils         string `json:"validator-utils"`
	ValidatorWalletCreator string `json:"validator-wallet-creator"`
	DeployedAt             uint64 `json:"deployed-at"`
}

// arbitrumParentChains are parent chains that are themselves Arbitrum chains.
var arbitrumParentChains = map[uint64]bool{
	42161:  true,
	42170:  true,
	421614: true,
}

// PrepareNodeConfig derives the sequencer node configuration. The data
// availability section follows the chain config: AnyTrust chains get a DAS
// section and Celestia settings are included only when params.Celestia is set.
func PrepareNodeConfig(p NodeConfigParams) (*NodeConfig, error) {
	if p.ChainConfig == nil {
		return nil, apperrors.NewValidationError("chainConfig", "chain config is required")
	}
	if p.CoreContracts == nil {
		return nil, apperrors.NewValidationError("coreContracts", "core contracts are required")
	}
	if p.ParentChainRPCURL == "" {
		return nil, apperrors.NewValidationError("parentChainRpcUrl", fmt.Sprintf("no RPC URL for parent chain %d", p.ParentChainID))
	}

	contracts := p.CoreContracts
	info := ChainInfo{{
		ChainID:               p.ChainConfig.ChainID,
		ParentChainID:         p.ParentChainID,
		ParentChainIsArbitrum: arbitrumParentChains[p.ParentChainID],
		ChainName:             p.ChainName,
		ChainConfig:           p.ChainConfig,
		Rollup: RollupInfo{
			Bridge:                 contracts.Bridge.Hex(),
			Inbox:                  contracts.Inbox.Hex(),
			SequencerInbox:         contracts.SequencerInbox.Hex(),
			Rollup:                 contracts.Rollup.Hex(),
			ValidatorUtils:         contracts.ValidatorUtils.Hex(),
			ValidatorWalletCreator: contracts.ValidatorWalletCreator.Hex(),
			DeployedAt:             contracts.DeployedAtBlockNumber,
		},
	}}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal chain info: %w", err)
	}

	cfg := &NodeConfig{
		Chain: NodeChainConfig{
			InfoJSON: string(infoJSON),
			Name:     p.ChainName,
		},
		ParentChain: ParentChainConfig{
			Connection: ConnectionConfig{URL: p.ParentChainRPCURL},
		},
		HTTP: HTTPConfig{
			Addr:       "0.0.0.0",
			Port:       8449,
			VHosts:     "*",
			Corsdomain: "*",
			API:        []string{"eth", "net", "web3", "arb", "debug"},
		},
		Node: NodeSettings{
			Sequencer: true,
			DelayedSequencer: DelayedSeqConfig{
				Enable:           true,
				UseMergeFinality: false,
				FinalizeDistance: 1,
			},
			BatchPoster: BatchPosterConfig{
				Enable:            true,
				MaxSize:           90000,
				ParentChainWallet: WalletConfig{PrivateKey: sanitizePrivateKey(p.BatchPosterPrivateKey)},
			},
			Staker: StakerConfig{
				Enable:            true,
				Strategy:          "MakeNodes",
				ParentChainWallet: WalletConfig{PrivateKey: sanitizePrivateKey(p.ValidatorPrivateKey)},
			},
			Dangerous: DangerousConfig{NoSequencerCoordinator: true},
		},
		Execution: ExecutionConfig{
			ForwardingTarget: "",
			Sequencer: ExecutionSequencerConfig{
				Enable:        true,
				MaxTxDataSize: 85000,
				MaxBlockSpeed: "250ms",
			},
			Caching: CachingConfig{Archive: true},
		},
	}

	if p.ChainConfig.Arbitrum.DataAvailabilityCommittee {
		cfg.Node.DataAvailability = &DAConfig{
			Enable:                true,
			SequencerInboxAddress: contracts.SequencerInbox.Hex(),
			ParentChainNodeURL:    p.ParentChainRPCURL,
			RestAggregator: RestAggregatorConfig{
				Enable: true,
				URLs:   []string{"http://localhost:9876"},
			},
			// Committee members are not known at deployment time.
			RPCAggregator: RPCAggregatorConfig{
				Enable:        false,
				AssumedHonest: 1,
				Backends:      "[]",
			},
		}
	}

	if p.Celestia != nil {
		celestia := *p.Celestia
		cfg.Node.Celestia = &celestia
	}

	return cfg, nil
}

func sanitizePrivateKey(key string) string {
	return strings.TrimPrefix(key, "0x")
}
