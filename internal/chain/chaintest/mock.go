// Package chaintest provides test doubles for the chain package.
package chaintest

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	"github.com/Bidon15/orbit-setup/internal/chain"
)

// MockClient is a mock implementation of chain.Client.
type MockClient struct {
	mock.Mock
}

var _ chain.Client = (*MockClient)(nil)

func (m *MockClient) Account() common.Address {
	return m.Called().Get(0).(common.Address)
}

func (m *MockClient) ChainID(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	args := m.Called(ctx, to, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockClient) SendTransaction(ctx context.Context, req *chain.TxRequest) (common.Hash, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(common.Hash), args.Error(1)
}

func (m *MockClient) WaitForConfirmation(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}
