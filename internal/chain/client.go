package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrReverted is returned when a confirmed transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

const (
	// DefaultGasLimit is used when estimation fails.
	DefaultGasLimit uint64 = 15_000_000
	// MaxGasLimit keeps transactions under common parent chain block limits.
	MaxGasLimit uint64 = 15_000_000
	// MinGasPrice is the floor applied after boosting the suggested price.
	MinGasPrice int64 = 2_000_000_000
)

// TxRequest describes a transaction to send from the client's account.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Client is the parent chain capability used during deployment.
type Client interface {
	// Account is the address transactions are sent from.
	Account() common.Address
	ChainID(ctx context.Context) (uint64, error)
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	SendTransaction(ctx context.Context, req *TxRequest) (common.Hash, error)
	// WaitForConfirmation blocks until the transaction is mined and returns
	// ErrReverted if it failed.
	WaitForConfirmation(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Backend is the subset of ethclient.Client used by EthClient.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EthClient implements Client over a JSON-RPC backend and a signer.
type EthClient struct {
	backend      Backend
	signer       TransactionSigner
	logger       *slog.Logger
	pollInterval time.Duration
	timeout      time.Duration
	close        func()
}

// Option configures an EthClient.
type Option func(*EthClient)

// WithPollInterval sets how often receipts are polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *EthClient) { c.pollInterval = d }
}

// WithConfirmationTimeout bounds WaitForConfirmation.
func WithConfirmationTimeout(d time.Duration) Option {
	return func(c *EthClient) { c.timeout = d }
}

// NewEthClient wraps an existing backend.
func NewEthClient(backend Backend, signer TransactionSigner, logger *slog.Logger, opts ...Option) *EthClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &EthClient{
		backend:      backend,
		signer:       signer,
		logger:       logger,
		pollInterval: 2 * time.Second,
		timeout:      5 * time.Minute,
		close:        func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SignerFactory creates the signer once the parent chain ID is known.
type SignerFactory func(chainID *big.Int) (TransactionSigner, error)

// Dial connects to a parent chain RPC endpoint and creates the signer for
// the chain it serves.
func Dial(ctx context.Context, rpcURL string, newSigner SignerFactory, logger *slog.Logger, opts ...Option) (*EthClient, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect to parent chain: %w", err)
	}
	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("get parent chain ID: %w", err)
	}
	signer, err := newSigner(chainID)
	if err != nil {
		rpc.Close()
		return nil, err
	}

	c := NewEthClient(rpc, signer, logger, opts...)
	c.close = rpc.Close
	return c, nil
}

// Close releases the underlying connection.
func (c *EthClient) Close() {
	c.close()
}

// Account returns the signer's address.
func (c *EthClient) Account() common.Address {
	return c.signer.Address()
}

// ChainID returns the parent chain's ID.
func (c *EthClient) ChainID(ctx context.Context) (uint64, error) {
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain ID: %w", err)
	}
	return id.Uint64(), nil
}

// Call performs a read-only contract call at the latest block.
func (c *EthClient) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From: c.signer.Address(),
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", to.Hex(), err)
	}
	return out, nil
}

// SendTransaction prices, signs, and broadcasts req.
func (c *EthClient) SendTransaction(ctx context.Context, req *TxRequest) (common.Hash, error) {
	from := c.signer.Address()
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := c.gasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas price: %w", err)
	}

	to := req.To
	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
		Data:     req.Data,
	})
	if err != nil {
		gasLimit = DefaultGasLimit
		c.logger.Warn("gas estimation failed, using default",
			slog.Uint64("gas_limit", gasLimit),
			slog.String("error", err.Error()),
		)
	}
	gasLimit = boundGasLimit(gasLimit)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     req.Data,
	})

	signedTx, err := c.signer.SignTransaction(ctx, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	c.logger.Info("transaction submitted",
		slog.String("tx_hash", signedTx.Hash().Hex()),
		slog.String("to", to.Hex()),
		slog.Uint64("gas_limit", gasLimit),
		slog.String("gas_price", gasPrice.String()),
	)
	return signedTx.Hash(), nil
}

// WaitForConfirmation polls for the receipt of hash.
func (c *EthClient) WaitForConfirmation(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
			}
			c.logger.Info("transaction confirmed",
				slog.String("tx_hash", hash.Hex()),
				slog.Uint64("block_number", receipt.BlockNumber.Uint64()),
			)
			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			c.logger.Debug("receipt lookup failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// gasPrice boosts the suggested price by 50% with a 2 gwei floor.
func (c *EthClient) gasPrice(ctx context.Context) (*big.Int, error) {
	suggested, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return boostGasPrice(suggested), nil
}

func boostGasPrice(suggested *big.Int) *big.Int {
	boosted := new(big.Int).Mul(suggested, big.NewInt(150))
	boosted.Div(boosted, big.NewInt(100))

	floor := big.NewInt(MinGasPrice)
	if boosted.Cmp(floor) < 0 {
		return floor
	}
	return boosted
}

// boundGasLimit adds a 20% buffer and caps the result at MaxGasLimit.
func boundGasLimit(estimate uint64) uint64 {
	limit := estimate * 120 / 100
	if limit > MaxGasLimit {
		return MaxGasLimit
	}
	return limit
}

var _ Client = (*EthClient)(nil)
