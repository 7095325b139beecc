package chain

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// RemoteSignerConfig configures a signer backed by an eth_signTransaction
// endpoint that answers with the raw signed transaction. Authentication is a
// bearer API key or a client certificate.
type RemoteSignerConfig struct {
	Endpoint   string
	APIKey     string
	ClientCert string
	ClientKey  string
	CACert     string

	ChainID *big.Int
	Address common.Address

	// Attempts bounds signing calls per transaction. Defaults to 3.
	Attempts      uint
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// RemoteSigner signs parent chain transactions with a key held by a remote
// service.
type RemoteSigner struct {
	endpoint string
	address  common.Address
	chainID  *big.Int

	attempts      uint
	retryDelay    time.Duration
	maxRetryDelay time.Duration

	httpClient *http.Client
	rpc        *rpc.Client
}

// NewRemoteSigner creates a RemoteSigner. No request is made until the first
// transaction is signed.
func NewRemoteSigner(cfg RemoteSignerConfig) (*RemoteSigner, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote signer endpoint is required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	opts := []rpc.ClientOption{rpc.WithHTTPClient(httpClient)}
	switch {
	case cfg.ClientCert != "" && cfg.ClientKey != "":
		tlsConfig, err := clientTLSConfig(cfg.ClientCert, cfg.ClientKey, cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	case cfg.APIKey != "":
		opts = append(opts, rpc.WithHeader("Authorization", "Bearer "+cfg.APIKey))
	default:
		return nil, fmt.Errorf("remote signer needs an API key or a client certificate")
	}

	client, err := rpc.DialOptions(context.Background(), cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote signer endpoint %s: %w", cfg.Endpoint, err)
	}

	s := &RemoteSigner{
		endpoint:      cfg.Endpoint,
		address:       cfg.Address,
		chainID:       cfg.ChainID,
		attempts:      cfg.Attempts,
		retryDelay:    cfg.RetryDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
		httpClient:    httpClient,
		rpc:           client,
	}
	if s.attempts == 0 {
		s.attempts = 3
	}
	if s.retryDelay <= 0 {
		s.retryDelay = time.Second
	}
	if s.maxRetryDelay <= 0 {
		s.maxRetryDelay = 10 * time.Second
	}
	return s, nil
}

func clientTLSConfig(certPEM, keyPEM, caPEM string) (*tls.Config, error) {
	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("client certificate: %w", err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if caPEM == "" {
		return cfg, nil
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM([]byte(caPEM)) {
		return nil, fmt.Errorf("no certificate found in CA PEM")
	}
	cfg.RootCAs = roots
	return cfg, nil
}

// Address returns the account of the remote key.
func (s *RemoteSigner) Address() common.Address {
	return s.address
}

// ChainID returns the chain ID used for EIP-155 signing.
func (s *RemoteSigner) ChainID() *big.Int {
	return s.chainID
}

// SignTransaction sends tx to the remote service for signing. Unreachable
// endpoints, 5xx answers and JSON-RPC server errors are retried.
func (s *RemoteSigner) SignTransaction(ctx context.Context, tx *types.Transaction) (*types.Transaction, error) {
	args := s.sendTxArgs(tx)

	raw, err := retry.DoWithData(
		func() (hexutil.Bytes, error) {
			var raw hexutil.Bytes
			err := s.rpc.CallContext(ctx, &raw, "eth_signTransaction", args)
			return raw, err
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.retryDelay),
		retry.MaxDelay(s.maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(transientSignerError),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("remote signer %s: %w", s.endpoint, err)
	}

	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}
	return signed, nil
}

// sendTxArgs describes tx the way eth_signTransaction expects it.
func (s *RemoteSigner) sendTxArgs(tx *types.Transaction) apitypes.SendTxArgs {
	args := apitypes.SendTxArgs{
		From:    common.NewMixedcaseAddress(s.address),
		Gas:     hexutil.Uint64(tx.Gas()),
		Value:   hexutil.Big(*tx.Value()),
		Nonce:   hexutil.Uint64(tx.Nonce()),
		ChainID: (*hexutil.Big)(s.chainID),
	}
	if to := tx.To(); to != nil {
		addr := common.NewMixedcaseAddress(*to)
		args.To = &addr
	}
	if data := tx.Data(); len(data) > 0 {
		input := hexutil.Bytes(data)
		args.Data = &input
	}

	if tx.Type() == types.DynamicFeeTxType {
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
		if list := tx.AccessList(); len(list) > 0 {
			args.AccessList = &list
		}
		return args
	}
	args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	return args
}

// transientSignerError reports whether a signing call may succeed when
// repeated.
func transientSignerError(err error) bool {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// -32000 to -32099 are reserved for implementation-defined server errors.
		code := rpcErr.ErrorCode()
		return code >= -32099 && code <= -32000
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

var _ TransactionSigner = (*RemoteSigner)(nil)
