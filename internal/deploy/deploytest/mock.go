// Package deploytest provides test doubles for the deploy package.
package deploytest

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"

	"github.com/Bidon15/orbit-setup/internal/chain"
	"github.com/Bidon15/orbit-setup/internal/orbit"
)

// MockRollupCreator is a mock implementation of deploy.RollupCreator.
type MockRollupCreator struct {
	mock.Mock
}

func (m *MockRollupCreator) EnoughCustomFeeTokenAllowance(ctx context.Context, client chain.Client, nativeToken, owner common.Address) (bool, error) {
	args := m.Called(ctx, client, nativeToken, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockRollupCreator) PrepareCustomFeeTokenApproval(ctx context.Context, client chain.Client, nativeToken, owner common.Address) (*chain.TxRequest, error) {
	args := m.Called(ctx, client, nativeToken, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.TxRequest), args.Error(1)
}

func (m *MockRollupCreator) PrepareCreateRollup(ctx context.Context, client chain.Client, params orbit.CreateRollupParams) (*chain.TxRequest, error) {
	args := m.Called(ctx, client, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.TxRequest), args.Error(1)
}

func (m *MockRollupCreator) DecodeCreateRollupReceipt(receipt *types.Receipt) (*orbit.CoreContracts, error) {
	args := m.Called(receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orbit.CoreContracts), args.Error(1)
}
