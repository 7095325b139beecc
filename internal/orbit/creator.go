package orbit

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Bidon15/orbit-setup/internal/chain"
	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

const (
	// DefaultMaxDataSize is the max batch size for chains settling to an L2.
	DefaultMaxDataSize = 104857
	// DefaultMaxFeePerGasForRetryables is 0.1 gwei.
	DefaultMaxFeePerGasForRetryables = 100_000_000
)

// DefaultRetryablesFees is the value forwarded to deploy the token bridge
// factories on the new chain, in 18-decimal units.
var DefaultRetryablesFees = big.NewInt(125_000_000_000_000_000)

// WellKnownRollupCreators maps parent chain IDs to RollupCreator deployments.
var WellKnownRollupCreators = map[uint64]common.Address{
	1:        common.HexToAddress("0x90D68B056c411015eaE3EC0b98AD94E2C91419F1"),
	11155111: common.HexToAddress("0xfb774ea8A92ae528A596c8D90CBCF1BdBc4Cee79"),
	42161:    common.HexToAddress("0x79607f00e61E6d7C0E6330bd7451f73136042a5C"),
	421614:   common.HexToAddress("0xd2Ec8376B1dF436fAb18120E416d3F2BeC61275b"),
}

const rollupCreatorABIJSON = `[
  {
    "type": "function",
    "name": "createRollup",
    "stateMutability": "payable",
    "inputs": [{
      "name": "deployParams",
      "type": "tuple",
      "components": [
        {
          "name": "config",
          "type": "tuple",
          "components": [
            {"name": "confirmPeriodBlocks", "type": "uint64"},
            {"name": "extraChallengeTimeBlocks", "type": "uint64"},
            {"name": "stakeToken", "type": "address"},
            {"name": "baseStake", "type": "uint256"},
            {"name": "wasmModuleRoot", "type": "bytes32"},
            {"name": "owner", "type": "address"},
            {"name": "loserStakeEscrow", "type": "address"},
            {"name": "chainId", "type": "uint256"},
            {"name": "chainConfig", "type": "string"},
            {"name": "genesisBlockNum", "type": "uint64"},
            {
              "name": "sequencerInboxMaxTimeVariation",
              "type": "tuple",
              "components": [
                {"name": "delayBlocks", "type": "uint256"},
                {"name": "futureBlocks", "type": "uint256"},
                {"name": "delaySeconds", "type": "uint256"},
                {"name": "futureSeconds", "type": "uint256"}
              ]
            }
          ]
        },
        {"name": "validators", "type": "address[]"},
        {"name": "maxDataSize", "type": "uint256"},
        {"name": "nativeToken", "type": "address"},
        {"name": "deployFactoriesToL2", "type": "bool"},
        {"name": "maxFeePerGasForRetryables", "type": "uint256"},
        {"name": "batchPosters", "type": "address[]"},
        {"name": "batchPosterManager", "type": "address"}
      ]
    }],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "event",
    "name": "RollupCreated",
    "anonymous": false,
    "inputs": [
      {"name": "rollupAddress", "type": "address", "indexed": true},
      {"name": "nativeToken", "type": "address", "indexed": true},
      {"name": "inboxAddress", "type": "address", "indexed": false},
      {"name": "outbox", "type": "address", "indexed": false},
      {"name": "rollupEventInbox", "type": "address", "indexed": false},
      {"name": "challengeManager", "type": "address", "indexed": false},
      {"name": "adminProxy", "type": "address", "indexed": false},
      {"name": "sequencerInbox", "type": "address", "indexed": false},
      {"name": "bridge", "type": "address", "indexed": false},
      {"name": "upgradeExecutor", "type": "address", "indexed": false},
      {"name": "validatorUtils", "type": "address", "indexed": false},
      {"name": "validatorWalletCreator", "type": "address", "indexed": false}
    ]
  }
]`

const erc20ABIJSON = `[
  {"type": "function", "name": "allowance", "stateMutability": "view",
   "inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}],
   "outputs": [{"name": "", "type": "uint256"}]},
  {"type": "function", "name": "approve", "stateMutability": "nonpayable",
   "inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}],
   "outputs": [{"name": "", "type": "bool"}]},
  {"type": "function", "name": "decimals", "stateMutability": "view",
   "inputs": [],
   "outputs": [{"name": "", "type": "uint8"}]}
]`

// CreateRollupParams is the RollupDeploymentParams tuple of createRollup.
type CreateRollupParams struct {
	Config                    RollupCreatorConfig `abi:"config"`
	Validators                []common.Address    `abi:"validators"`
	MaxDataSize               *big.Int            `abi:"maxDataSize"`
	NativeToken               common.Address      `abi:"nativeToken"`
	DeployFactoriesToL2       bool                `abi:"deployFactoriesToL2"`
	MaxFeePerGasForRetryables *big.Int            `abi:"maxFeePerGasForRetryables"`
	BatchPosters              []common.Address    `abi:"batchPosters"`
	BatchPosterManager        common.Address      `abi:"batchPosterManager"`
}

// NewCreateRollupParams fills in the deployment defaults around a Config tuple.
func NewCreateRollupParams(cfg RollupCreatorConfig, validators []common.Address, batchPoster, batchPosterManager, nativeToken common.Address) CreateRollupParams {
	return CreateRollupParams{
		Config:                    cfg,
		Validators:                validators,
		MaxDataSize:               big.NewInt(DefaultMaxDataSize),
		NativeToken:               nativeToken,
		DeployFactoriesToL2:       true,
		MaxFeePerGasForRetryables: big.NewInt(DefaultMaxFeePerGasForRetryables),
		BatchPosters:              []common.Address{batchPoster},
		BatchPosterManager:        batchPosterManager,
	}
}

// RollupCreator builds and decodes interactions with the parent chain's
// RollupCreator contract.
type RollupCreator struct {
	override common.Address
	creator  abi.ABI
	erc20    abi.ABI
	logger   *slog.Logger
}

// NewRollupCreator creates a RollupCreator. A zero address resolves the
// contract from WellKnownRollupCreators by parent chain ID.
func NewRollupCreator(address common.Address, logger *slog.Logger) (*RollupCreator, error) {
	creatorABI, err := abi.JSON(strings.NewReader(rollupCreatorABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse RollupCreator ABI: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ERC20 ABI: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RollupCreator{
		override: address,
		creator:  creatorABI,
		erc20:    erc20ABI,
		logger:   logger,
	}, nil
}

// Address returns the RollupCreator used on the client's chain.
func (r *RollupCreator) Address(ctx context.Context, client chain.Client) (common.Address, error) {
	if r.override != (common.Address{}) {
		return r.override, nil
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := WellKnownRollupCreators[chainID]
	if !ok {
		return common.Address{}, apperrors.NewValidationError("parentChainId",
			fmt.Sprintf("no RollupCreator known for parent chain %d; configure one explicitly", chainID))
	}
	return addr, nil
}

// RetryablesFees returns the fee that must be approved, scaled to the fee
// token's decimals.
func (r *RollupCreator) RetryablesFees(ctx context.Context, client chain.Client, nativeToken common.Address) (*big.Int, error) {
	value, err := r.callERC20(ctx, client, nativeToken, "decimals")
	if err != nil {
		return nil, err
	}
	decimals, ok := value.(uint8)
	if !ok {
		return nil, fmt.Errorf("decode decimals: unexpected type %T", value)
	}
	return ScaleFrom18Decimals(DefaultRetryablesFees, decimals), nil
}

// EnoughCustomFeeTokenAllowance reports whether owner has approved the
// RollupCreator to spend the retryables fee in nativeToken.
func (r *RollupCreator) EnoughCustomFeeTokenAllowance(ctx context.Context, client chain.Client, nativeToken, owner common.Address) (bool, error) {
	spender, err := r.Address(ctx, client)
	if err != nil {
		return false, err
	}
	required, err := r.RetryablesFees(ctx, client, nativeToken)
	if err != nil {
		return false, err
	}

	value, err := r.callERC20(ctx, client, nativeToken, "allowance", owner, spender)
	if err != nil {
		return false, err
	}
	allowance, ok := value.(*big.Int)
	if !ok {
		return false, fmt.Errorf("decode allowance: unexpected type %T", value)
	}

	r.logger.Debug("custom fee token allowance",
		slog.String("token", nativeToken.Hex()),
		slog.String("allowance", allowance.String()),
		slog.String("required", required.String()),
	)
	return allowance.Cmp(required) >= 0, nil
}

// PrepareCustomFeeTokenApproval builds the approve transaction for exactly
// the retryables fee.
func (r *RollupCreator) PrepareCustomFeeTokenApproval(ctx context.Context, client chain.Client, nativeToken, owner common.Address) (*chain.TxRequest, error) {
	spender, err := r.Address(ctx, client)
	if err != nil {
		return nil, err
	}
	amount, err := r.RetryablesFees(ctx, client, nativeToken)
	if err != nil {
		return nil, err
	}
	data, err := r.erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("encode approve: %w", err)
	}
	return &chain.TxRequest{To: nativeToken, Data: data}, nil
}

// PrepareCreateRollup builds the createRollup transaction. When the chain uses
// the parent chain's gas token the retryables fee is sent as value.
func (r *RollupCreator) PrepareCreateRollup(ctx context.Context, client chain.Client, params CreateRollupParams) (*chain.TxRequest, error) {
	to, err := r.Address(ctx, client)
	if err != nil {
		return nil, err
	}
	data, err := r.creator.Pack("createRollup", params)
	if err != nil {
		return nil, fmt.Errorf("encode createRollup: %w", err)
	}

	value := big.NewInt(0)
	if params.DeployFactoriesToL2 && params.NativeToken == (common.Address{}) {
		value = new(big.Int).Set(DefaultRetryablesFees)
	}
	return &chain.TxRequest{To: to, Data: data, Value: value}, nil
}

// callERC20 performs a view call returning a single value.
func (r *RollupCreator) callERC20(ctx context.Context, client chain.Client, token common.Address, method string, args ...interface{}) (interface{}, error) {
	data, err := r.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	out, err := client.Call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	values, err := r.erc20.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("decode %s: expected 1 value, got %d", method, len(values))
	}
	return values[0], nil
}

// ScaleFrom18Decimals converts an 18-decimal amount to a token with the given
// decimals, rounding up when precision is lost.
func ScaleFrom18Decimals(amount *big.Int, decimals uint8) *big.Int {
	switch {
	case decimals == 18:
		return new(big.Int).Set(amount)
	case decimals > 18:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-18)), nil)
		return new(big.Int).Mul(amount, factor)
	default:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
		q, m := new(big.Int).DivMod(amount, factor, new(big.Int))
		if m.Sign() > 0 {
			q.Add(q, big.NewInt(1))
		}
		return q
	}
}
