package orbit

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

// MaxTimeVariation is the ABI form of SequencerInboxMaxTimeVariation.
type MaxTimeVariation struct {
	DelayBlocks   *big.Int `abi:"delayBlocks"`
	FutureBlocks  *big.Int `abi:"futureBlocks"`
	DelaySeconds  *big.Int `abi:"delaySeconds"`
	FutureSeconds *big.Int `abi:"futureSeconds"`
}

// RollupCreatorConfig is the Config tuple passed to RollupCreator.createRollup.
type RollupCreatorConfig struct {
	ConfirmPeriodBlocks            uint64           `abi:"confirmPeriodBlocks"`
	ExtraChallengeTimeBlocks       uint64           `abi:"extraChallengeTimeBlocks"`
	StakeToken                     common.Address   `abi:"stakeToken"`
	BaseStake                      *big.Int         `abi:"baseStake"`
	WasmModuleRoot                 [32]byte         `abi:"wasmModuleRoot"`
	Owner                          common.Address   `abi:"owner"`
	LoserStakeEscrow               common.Address   `abi:"loserStakeEscrow"`
	ChainID                        *big.Int         `abi:"chainId"`
	ChainConfig                    string           `abi:"chainConfig"`
	GenesisBlockNum                uint64           `abi:"genesisBlockNum"`
	SequencerInboxMaxTimeVariation MaxTimeVariation `abi:"sequencerInboxMaxTimeVariation"`
}

// BuildRollupConfigPayload converts the user configuration and serialized
// chain config into the on-chain Config tuple.
func BuildRollupConfigPayload(cfg RollupConfig, chainConfig []byte) (RollupCreatorConfig, error) {
	owner, err := parseAddress("owner", cfg.Owner)
	if err != nil {
		return RollupCreatorConfig{}, err
	}
	stakeToken, err := parseAddress("stakeToken", cfg.StakeToken)
	if err != nil {
		return RollupCreatorConfig{}, err
	}
	loserStakeEscrow, err := parseAddress("loserStakeEscrow", cfg.LoserStakeEscrow)
	if err != nil {
		return RollupCreatorConfig{}, err
	}

	root, err := hexutil.Decode(cfg.WasmModuleRoot)
	if err != nil || len(root) != 32 {
		return RollupCreatorConfig{}, apperrors.NewValidationError("wasmModuleRoot", "must be a 0x-prefixed 32-byte hex string")
	}

	baseStake, err := EtherToWei(cfg.BaseStake)
	if err != nil {
		return RollupCreatorConfig{}, apperrors.NewValidationError("baseStake", err.Error())
	}

	if cfg.ChainID == 0 {
		return RollupCreatorConfig{}, apperrors.NewValidationError("chainId", "chain ID must be non-zero")
	}
	if cfg.ConfirmPeriodBlocks == 0 {
		return RollupCreatorConfig{}, apperrors.NewValidationError("confirmPeriodBlocks", "must be greater than zero")
	}

	payload := RollupCreatorConfig{
		ConfirmPeriodBlocks:      cfg.ConfirmPeriodBlocks,
		ExtraChallengeTimeBlocks: cfg.ExtraChallengeTimeBlocks,
		StakeToken:               stakeToken,
		BaseStake:                baseStake,
		Owner:                    owner,
		LoserStakeEscrow:         loserStakeEscrow,
		ChainID:                  new(big.Int).SetUint64(cfg.ChainID),
		ChainConfig:              string(chainConfig),
		GenesisBlockNum:          cfg.GenesisBlockNum,
		SequencerInboxMaxTimeVariation: MaxTimeVariation{
			DelayBlocks:   new(big.Int).SetUint64(cfg.SequencerInboxMaxTimeVariation.DelayBlocks),
			FutureBlocks:  new(big.Int).SetUint64(cfg.SequencerInboxMaxTimeVariation.FutureBlocks),
			DelaySeconds:  new(big.Int).SetUint64(cfg.SequencerInboxMaxTimeVariation.DelaySeconds),
			FutureSeconds: new(big.Int).SetUint64(cfg.SequencerInboxMaxTimeVariation.FutureSeconds),
		},
	}
	copy(payload.WasmModuleRoot[:], root)
	return payload, nil
}

// EtherToWei converts a decimal ether amount to wei using its shortest
// decimal representation, so 0.1 becomes exactly 10^17.
func EtherToWei(ether float64) (*big.Int, error) {
	if ether < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	s := strconv.FormatFloat(ether, 'f', -1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 18 {
		return nil, fmt.Errorf("amount %s has more than 18 decimals", s)
	}
	frac += strings.Repeat("0", 18-len(frac))

	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %s", s)
	}
	return wei, nil
}
