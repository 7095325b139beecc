package orbit

import (
	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

// L3ConfigParams are the inputs of BuildL3Config.
type L3ConfigParams struct {
	Account           string
	RollupConfig      RollupConfig
	CoreContracts     *CoreContracts
	Validators        []Wallet
	BatchPoster       Wallet
	ParentChainID     uint64
	ParentChainRPCURL string
}

// L3Config is the configuration consumed by the chain's post-deployment
// setup scripts (token bridge, fee collectors, chain ownership).
type L3Config struct {
	NetworkFeeReceiver         string `json:"networkFeeReceiver"`
	InfrastructureFeeCollector string `json:"infrastructureFeeCollector"`
	Staker                     string `json:"staker"`
	BatchPoster                string `json:"batchPoster"`
	ChainOwner                 string `json:"chainOwner"`
	ChainID                    uint64 `json:"chainId"`
	ChainName                  string `json:"chainName"`
	MinL2BaseFee               uint64 `json:"minL2BaseFee"`
	ParentMessageCountShift    uint64 `json:"parentMessageCountShift"`
	ParentChainID              uint64 `json:"parentChainId"`
	ParentChainNodeURL         string `json:"parent-chain-node-url"`
	Utils                      string `json:"utils"`
	Rollup                     string `json:"rollup"`
	Inbox                      string `json:"inbox"`
	NativeToken                string `json:"nativeToken"`
	Outbox                     string `json:"outbox"`
	RollupEventInbox           string `json:"rollupEventInbox"`
	ChallengeManager           string `json:"challengeManager"`
	AdminProxy                 string `json:"adminProxy"`
	SequencerInbox             string `json:"sequencerInbox"`
	Bridge                     string `json:"bridge"`
	UpgradeExecutor            string `json:"upgradeExecutor"`
	ValidatorUtils             string `json:"validatorUtils"`
	ValidatorWalletCreator     string `json:"validatorWalletCreator"`
	DeployedAtBlockNumber      uint64 `json:"deployedAtBlockNumber"`
}

const (
	defaultMinL2BaseFee            = 100_000_000
	defaultParentMessageCountShift = 20
)

// BuildL3Config assembles the L3 config from the deployment inputs and result.
// The first validator is the staker.
func BuildL3Config(p L3ConfigParams) (*L3Config, error) {
	if p.CoreContracts == nil {
		return nil, apperrors.NewValidationError("coreContracts", "core contracts are required")
	}
	if err := AssertValidAddress("account", p.Account); err != nil {
		return nil, err
	}
	if err := AssertValidAddressList("validators", WalletAddresses(p.Validators)); err != nil {
		return nil, err
	}
	if err := AssertValidAddress("batchPoster", p.BatchPoster.Address); err != nil {
		return nil, err
	}

	account := common.HexToAddress(p.Account).Hex()
	c := p.CoreContracts
	return &L3Config{
		NetworkFeeReceiver:         account,
		InfrastructureFeeCollector: account,
		Staker:                     p.Validators[0].Address,
		BatchPoster:                p.BatchPoster.Address,
		ChainOwner:                 account,
		ChainID:                    p.RollupConfig.ChainID,
		ChainName:                  p.RollupConfig.ChainName,
		MinL2BaseFee:               defaultMinL2BaseFee,
		ParentMessageCountShift:    defaultParentMessageCountShift,
		ParentChainID:              p.ParentChainID,
		ParentChainNodeURL:         p.ParentChainRPCURL,
		Utils:                      c.ValidatorUtils.Hex(),
		Rollup:                     c.Rollup.Hex(),
		Inbox:                      c.Inbox.Hex(),
		NativeToken:                c.NativeToken.Hex(),
		Outbox:                     c.Outbox.Hex(),
		RollupEventInbox:           c.RollupEventInbox.Hex(),
		ChallengeManager:           c.ChallengeManager.Hex(),
		AdminProxy:                 c.AdminProxy.Hex(),
		SequencerInbox:             c.SequencerInbox.Hex(),
		Bridge:                     c.Bridge.Hex(),
		UpgradeExecutor:            c.UpgradeExecutor.Hex(),
		ValidatorUtils:             c.ValidatorUtils.Hex(),
		ValidatorWalletCreator:     c.ValidatorWalletCreator.Hex(),
		DeployedAtBlockNumber:      c.DeployedAtBlockNumber,
	}, nil
}
