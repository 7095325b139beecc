package orbit

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

const (
	// DefaultInitialArbOSVersion is the ArbOS version new chains start on.
	DefaultInitialArbOSVersion = 20
	defaultMaxCodeSize         = 24576
	defaultMaxInitCodeSize     = 49152
)

// ChainConfigParams selects the chain-specific fields of the genesis chain config.
type ChainConfigParams struct {
	ChainID           uint64
	InitialChainOwner string
	// DataAvailabilityCommittee is set for AnyTrust chains.
	DataAvailabilityCommittee bool
	// CelestiaDA is set for chains posting data to Celestia.
	CelestiaDA bool
}

// ChainConfigParamsFor derives the chain config parameters for a chain type.
func ChainConfigParamsFor(cfg RollupConfig, chainType ChainType) ChainConfigParams {
	return ChainConfigParams{
		ChainID:                   cfg.ChainID,
		InitialChainOwner:         cfg.Owner,
		DataAvailabilityCommittee: chainType == ChainTypeAnyTrust,
		CelestiaDA:                chainType == ChainTypeCelestiaDA,
	}
}

// ChainConfig is the genesis chain config embedded in the creation
// transaction and in the node's chain info.
type ChainConfig struct {
	ChainID             uint64              `json:"chainId"`
	HomesteadBlock      uint64              `json:"homesteadBlock"`
	DAOForkBlock        *uint64             `json:"daoForkBlock"`
	DAOForkSupport      bool                `json:"daoForkSupport"`
	EIP150Block         uint64              `json:"eip150Block"`
	EIP150Hash          string              `json:"eip150Hash"`
	EIP155Block         uint64              `json:"eip155Block"`
	EIP158Block         uint64              `json:"eip158Block"`
	ByzantiumBlock      uint64              `json:"byzantiumBlock"`
	ConstantinopleBlock uint64              `json:"constantinopleBlock"`
	PetersburgBlock     uint64              `json:"petersburgBlock"`
	IstanbulBlock       uint64              `json:"istanbulBlock"`
	MuirGlacierBlock    uint64              `json:"muirGlacierBlock"`
	BerlinBlock         uint64              `json:"berlinBlock"`
	LondonBlock         uint64              `json:"londonBlock"`
	Clique              CliqueConfig        `json:"clique"`
	Arbitrum            ArbitrumChainParams `json:"arbitrum"`
}

// CliqueConfig is unused by Arbitrum chains but expected by the node.
type CliqueConfig struct {
	Period uint64 `json:"period"`
	Epoch  uint64 `json:"epoch"`
}

// ArbitrumChainParams holds the Arbitrum-specific genesis parameters.
type ArbitrumChainParams struct {
	EnableArbOS               bool   `json:"EnableArbOS"`
	AllowDebugPrecompiles     bool   `json:"AllowDebugPrecompiles"`
	DataAvailabilityCommittee bool   `json:"DataAvailabilityCommittee"`
	CelestiaDA                bool   `json:"CelestiaDA"`
	InitialArbOSVersion       uint64 `json:"InitialArbOSVersion"`
	InitialChainOwner         string `json:"InitialChainOwner"`
	GenesisBlockNum           uint64 `json:"GenesisBlockNum"`
	MaxCodeSize               uint64 `json:"MaxCodeSize"`
	MaxInitCodeSize           uint64 `json:"MaxInitCodeSize"`
}

// PrepareChainConfig builds the genesis chain config. AnyTrust and Celestia DA
// are mutually exclusive.
func PrepareChainConfig(p ChainConfigParams) (*ChainConfig, error) {
	if p.ChainID == 0 {
		return nil, apperrors.NewValidationError("chainId", "chain ID must be non-zero")
	}
	if err := AssertValidAddress("owner", p.InitialChainOwner); err != nil {
		return nil, err
	}
	if p.DataAvailabilityCommittee && p.CelestiaDA {
		return nil, apperrors.NewValidationError("chainType", "AnyTrust and Celestia DA cannot both be enabled")
	}

	return &ChainConfig{
		ChainID:        p.ChainID,
		EIP150Hash:     "0x0000000000000000000000000000000000000000000000000000000000000000",
		DAOForkSupport: true,
		Arbitrum: ArbitrumChainParams{
			EnableArbOS:               true,
			AllowDebugPrecompiles:     false,
			DataAvailabilityCommittee: p.DataAvailabilityCommittee,
			CelestiaDA:                p.CelestiaDA,
			InitialArbOSVersion:       DefaultInitialArbOSVersion,
			InitialChainOwner:         p.InitialChainOwner,
			GenesisBlockNum:           0,
			MaxCodeSize:               defaultMaxCodeSize,
			MaxInitCodeSize:           defaultMaxInitCodeSize,
		},
	}, nil
}

// JSON returns the chain config serialized as the creation payload expects.
func (c *ChainConfig) JSON() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal chain config: %w", err)
	}
	return string(data), nil
}
