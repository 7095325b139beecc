// Package orbit describes an Arbitrum Orbit chain and builds everything the
// parent chain's RollupCreator needs to create one: chain config, creation
// payload, transactions, and the node/L3 configuration derived afterwards.
package orbit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroAddress denotes the parent chain's default gas token when used as native token.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// DefaultWasmModuleRoot is the WASM module root of the consensus release the
// default configuration deploys.
const DefaultWasmModuleRoot = "0x10c65b27d5031ce2351c719072e58f3153228887f027f9f6d65300d2b5b30152"

// DefaultChainName is the placeholder name of a new chain.
const DefaultChainName = "My Arbitrum L3 Chain"

// ============================================================================
// Chain Type
// ============================================================================

// ChainType selects where the chain publishes its transaction data.
type ChainType string

const (
	// ChainTypeRollup posts data to the parent chain.
	ChainTypeRollup ChainType = "Rollup"
	// ChainTypeAnyTrust keeps data with a data availability committee.
	ChainTypeAnyTrust ChainType = "AnyTrust"
	// ChainTypeCelestiaDA posts data to Celestia.
	ChainTypeCelestiaDA ChainType = "CelestiaDA"
)

// ChainTypes lists every supported chain type.
var ChainTypes = []ChainType{ChainTypeRollup, ChainTypeAnyTrust, ChainTypeCelestiaDA}

// ParseChainType parses a chain type name case-insensitively.
func ParseChainType(s string) (ChainType, error) {
	for _, ct := range ChainTypes {
		if strings.EqualFold(s, string(ct)) {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown chain type %q (expected one of Rollup, AnyTrust, CelestiaDA)", s)
}

// String returns the chain type name.
func (c ChainType) String() string {
	return string(c)
}

// Description says where the chain type posts its transaction data.
func (c ChainType) Description() string {
	switch c {
	case ChainTypeRollup:
		return "Transaction data posted to the parent chain"
	case ChainTypeAnyTrust:
		return "Transaction data posted by a Data Availability Committee"
	case ChainTypeCelestiaDA:
		return "Transaction data posted to Celestia"
	default:
		return ""
	}
}

// Valid reports whether c is one of the supported chain types.
func (c ChainType) Valid() bool {
	for _, ct := range ChainTypes {
		if c == ct {
			return true
		}
	}
	return false
}

// UnmarshalJSON rejects unknown chain types.
func (c *ChainType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ct, err := ParseChainType(s)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}

// ============================================================================
// Rollup Configuration
// ============================================================================

// SequencerInboxMaxTimeVariation bounds how far the sequencer may deviate
// from the parent chain's clock.
type SequencerInboxMaxTimeVariation struct {
	DelayBlocks   uint64 `json:"delayBlocks"`
	FutureBlocks  uint64 `json:"futureBlocks"`
	DelaySeconds  uint64 `json:"delaySeconds"`
	FutureSeconds uint64 `json:"futureSeconds"`
}

// CelestiaConfig holds the Celestia DA settings written into the node config.
type CelestiaConfig struct {
	Enable             bool    `json:"enable" toml:"enable"`
	RPC                string  `json:"rpc" toml:"rpc"`
	TendermintRPC      string  `json:"tendermint_rpc" toml:"tendermint_rpc"`
	EthRPC             string  `json:"eth_rpc" toml:"eth_rpc"`
	NamespaceID        string  `json:"namespace_id" toml:"namespace_id"`
	AuthToken          string  `json:"auth_token" toml:"auth_token"`
	IsPoster           bool    `json:"is_poster" toml:"is_poster"`
	GasPrice           float64 `json:"gas_price" toml:"gas_price"`
	EventChannelSize   uint64  `json:"event_channel_size" toml:"event_channel_size"`
	BlobstreamXAddress string  `json:"blobstreamx_address" toml:"blobstreamx_address"`
}

// DefaultCelestiaConfig returns the Celestia settings used for CelestiaDA
// chains: a local light node posting blobs to the Mocha testnet.
func DefaultCelestiaConfig() CelestiaConfig {
	return CelestiaConfig{
		Enable:             true,
		IsPoster:           true,
		RPC:                "http://localhost:26658",
		TendermintRPC:      "rpc.celestia-mocha.com",
		EthRPC:             "",
		NamespaceID:        "000008e5f679bf7116cb",
		GasPrice:           0.1,
		AuthToken:          "",
		EventChannelSize:   100,
		BlobstreamXAddress: "0xc3e209eb245Fd59c8586777b499d6A665DF3ABD2",
	}
}

// CelestiaNodeConfig returns the Celestia section of a CelestiaDA node
// config: the defaults with the non-empty fields of override applied. The
// section is always enabled and posting.
func CelestiaNodeConfig(override *CelestiaConfig) CelestiaConfig {
	cfg := DefaultCelestiaConfig()
	if override != nil {
		if override.RPC != "" {
			cfg.RPC = override.RPC
		}
		if override.TendermintRPC != "" {
			cfg.TendermintRPC = override.TendermintRPC
		}
		if override.EthRPC != "" {
			cfg.EthRPC = override.EthRPC
		}
		if override.NamespaceID != "" {
			cfg.NamespaceID = override.NamespaceID
		}
		if override.AuthToken != "" {
			cfg.AuthToken = override.AuthToken
		}
		if override.GasPrice > 0 {
			cfg.GasPrice = override.GasPrice
		}
		if override.EventChannelSize > 0 {
			cfg.EventChannelSize = override.EventChannelSize
		}
		if override.BlobstreamXAddress != "" {
			cfg.BlobstreamXAddress = override.BlobstreamXAddress
		}
	}
	cfg.Enable = true
	cfg.IsPoster = true
	return cfg
}

// RollupConfig is the user-editable description of the chain to deploy.
type RollupConfig struct {
	ChainID                        uint64                         `json:"chainId"`
	ChainName                      string                         `json:"chainName"`
	Owner                          string                         `json:"owner"`
	ConfirmPeriodBlocks            uint64                         `json:"confirmPeriodBlocks"`
	BaseStake                      float64                        `json:"baseStake"`
	ExtraChallengeTimeBlocks       uint64                         `json:"extraChallengeTimeBlocks"`
	WasmModuleRoot                 string                         `json:"wasmModuleRoot"`
	LoserStakeEscrow               string                         `json:"loserStakeEscrow"`
	StakeToken                     string                         `json:"stakeToken"`
	NativeToken                    string                         `json:"nativeToken"`
	ChainConfig                    string                         `json:"chainConfig"`
	GenesisBlockNum                uint64                         `json:"genesisBlockNum"`
	SequencerInboxMaxTimeVariation SequencerInboxMaxTimeVariation `json:"sequencerInboxMaxTimeVariation"`
	CelestiaConfig                 CelestiaConfig                 `json:"celestiaConfig"`
}

// DefaultRollupConfig returns the configuration a new deployment starts from.
func DefaultRollupConfig(owner string, chainID uint64) RollupConfig {
	return RollupConfig{
		ConfirmPeriodBlocks:      150,
		StakeToken:               ZeroAddress,
		BaseStake:                0.1,
		Owner:                    owner,
		ExtraChallengeTimeBlocks: 0,
		WasmModuleRoot:           DefaultWasmModuleRoot,
		LoserStakeEscrow:         ZeroAddress,
		ChainID:                  chainID,
		ChainName:                DefaultChainName,
		ChainConfig:              "0x0000000000000000000000000000000000000000000000000000000000000000",
		GenesisBlockNum:          0,
		NativeToken:              ZeroAddress,
		SequencerInboxMaxTimeVariation: SequencerInboxMaxTimeVariation{
			DelayBlocks:   5760,
			FutureBlocks:  48,
			DelaySeconds:  86400,
			FutureSeconds: 3600,
		},
	}
}

// UsesCustomFeeToken reports whether the chain pays gas in an ERC-20 token.
func (c RollupConfig) UsesCustomFeeToken() bool {
	return c.NativeToken != "" && !strings.EqualFold(c.NativeToken, ZeroAddress)
}

// RollupConfigPatch is a partial RollupConfig. Nil fields are left unchanged
// when the patch is applied.
type RollupConfigPatch struct {
	ChainID                        *uint64                         `json:"chainId,omitempty"`
	ChainName                      *string                         `json:"chainName,omitempty"`
	Owner                          *string                         `json:"owner,omitempty"`
	ConfirmPeriodBlocks            *uint64                         `json:"confirmPeriodBlocks,omitempty"`
	BaseStake                      *float64                        `json:"baseStake,omitempty"`
	ExtraChallengeTimeBlocks       *uint64                         `json:"extraChallengeTimeBlocks,omitempty"`
	WasmModuleRoot                 *string                         `json:"wasmModuleRoot,omitempty"`
	LoserStakeEscrow               *string                         `json:"loserStakeEscrow,omitempty"`
	StakeToken                     *string                         `json:"stakeToken,omitempty"`
	NativeToken                    *string                         `json:"nativeToken,omitempty"`
	ChainConfig                    *string                         `json:"chainConfig,omitempty"`
	GenesisBlockNum                *uint64                         `json:"genesisBlockNum,omitempty"`
	SequencerInboxMaxTimeVariation *SequencerInboxMaxTimeVariation `json:"sequencerInboxMaxTimeVariation,omitempty"`
	CelestiaConfig                 *CelestiaConfig                 `json:"celestiaConfig,omitempty"`
}

// Apply merges the patch onto c and returns the result. c is not modified.
func (p RollupConfigPatch) Apply(c RollupConfig) RollupConfig {
	if p.ChainID != nil {
		c.ChainID = *p.ChainID
	}
	if p.ChainName != nil {
		c.ChainName = *p.ChainName
	}
	if p.Owner != nil {
		c.Owner = *p.Owner
	}
	if p.ConfirmPeriodBlocks != nil {
		c.ConfirmPeriodBlocks = *p.ConfirmPeriodBlocks
	}
	if p.BaseStake != nil {
		c.BaseStake = *p.BaseStake
	}
	if p.ExtraChallengeTimeBlocks != nil {
		c.ExtraChallengeTimeBlocks = *p.ExtraChallengeTimeBlocks
	}
	if p.WasmModuleRoot != nil {
		c.WasmModuleRoot = *p.WasmModuleRoot
	}
	if p.LoserStakeEscrow != nil {
		c.LoserStakeEscrow = *p.LoserStakeEscrow
	}
	if p.StakeToken != nil {
		c.StakeToken = *p.StakeToken
	}
	if p.NativeToken != nil {
		c.NativeToken = *p.NativeToken
	}
	if p.ChainConfig != nil {
		c.ChainConfig = *p.ChainConfig
	}
	if p.GenesisBlockNum != nil {
		c.GenesisBlockNum = *p.GenesisBlockNum
	}
	if p.SequencerInboxMaxTimeVariation != nil {
		c.SequencerInboxMaxTimeVariation = *p.SequencerInboxMaxTimeVariation
	}
	if p.CelestiaConfig != nil {
		c.CelestiaConfig = *p.CelestiaConfig
	}
	return c
}

// OwnerPatch sets only the owner.
func OwnerPatch(owner string) RollupConfigPatch {
	return RollupConfigPatch{Owner: &owner}
}

// ============================================================================
// Wallets
// ============================================================================

// Wallet is a validator or batch poster signer. The private key is optional;
// without it the generated node config carries an empty key.
type Wallet struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey,omitempty"`
}

// GenerateWallet creates a fresh secp256k1 keypair.
func GenerateWallet() (Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Wallet{}, fmt.Errorf("generate key: %w", err)
	}
	return Wallet{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}, nil
}

// WalletFromPrivateKey derives the wallet for a hex-encoded private key.
func WalletFromPrivateKey(hexKey string) (Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return Wallet{}, fmt.Errorf("parse private key: %w", err)
	}
	return Wallet{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
	}, nil
}

// WalletAddresses returns the addresses of wallets in order.
func WalletAddresses(wallets []Wallet) []string {
	addrs := make([]string, len(wallets))
	for i, w := range wallets {
		addrs[i] = w.Address
	}
	return addrs
}

// ============================================================================
// Contract Addresses
// ============================================================================

// CoreContracts contains the addresses created by a successful deployment.
type CoreContracts struct {
	Rollup                 common.Address `json:"rollup"`
	NativeToken            common.Address `json:"nativeToken"`
	Inbox                  common.Address `json:"inbox"`
	Outbox                 common.Address `json:"outbox"`
	RollupEventInbox       common.Address `json:"rollupEventInbox"`
	ChallengeManager       common.Address `json:"challengeManager"`
	AdminProxy             common.Address `json:"adminProxy"`
	SequencerInbox         common.Address `json:"sequencerInbox"`
	Bridge                 common.Address `json:"bridge"`
	UpgradeExecutor        common.Address `json:"upgradeExecutor"`
	ValidatorUtils         common.Address `json:"validatorUtils"`
	ValidatorWalletCreator common.Address `json:"validatorWalletCreator"`
	DeployedAtBlockNumber  uint64         `json:"deployedAtBlockNumber"`
}
