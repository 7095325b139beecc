package orbit

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	apperrors "github.com/Bidon15/orbit-setup/internal/pkg/errors"
)

// rollupCreatedDataWords is the number of non-indexed address words in RollupCreated.
const rollupCreatedDataWords = 10

// RollupCreatedTopic returns the event signature hash of RollupCreated.
func (r *RollupCreator) RollupCreatedTopic() common.Hash {
	return r.creator.Events["RollupCreated"].ID
}

// DecodeCreateRollupReceipt extracts the core contract addresses from the
// RollupCreated event of a confirmed createRollup receipt.
func (r *RollupCreator) DecodeCreateRollupReceipt(receipt *types.Receipt) (*CoreContracts, error) {
	if receipt == nil {
		return nil, apperrors.Wrap(apperrors.KindReceiptDecode, "no receipt to decode", nil)
	}

	event := r.creator.Events["RollupCreated"]
	for _, log := range receipt.Logs {
		if len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}

		if len(log.Topics) < 3 {
			return nil, r.decodeError(receipt, fmt.Errorf("RollupCreated has %d topics, expected 3", len(log.Topics)))
		}
		if len(log.Data) < rollupCreatedDataWords*32 {
			return nil, r.decodeError(receipt, fmt.Errorf("RollupCreated data too short: %d bytes", len(log.Data)))
		}

		values := make(map[string]interface{})
		if err := event.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
			return nil, r.decodeError(receipt, err)
		}

		addr := func(name string) common.Address {
			a, _ := values[name].(common.Address)
			return a
		}

		contracts := &CoreContracts{
			Rollup:                 common.BytesToAddress(log.Topics[1].Bytes()),
			NativeToken:            common.BytesToAddress(log.Topics[2].Bytes()),
			Inbox:                  addr("inboxAddress"),
			Outbox:                 addr("outbox"),
			RollupEventInbox:       addr("rollupEventInbox"),
			ChallengeManager:       addr("challengeManager"),
			AdminProxy:             addr("adminProxy"),
			SequencerInbox:         addr("sequencerInbox"),
			Bridge:                 addr("bridge"),
			UpgradeExecutor:        addr("upgradeExecutor"),
			ValidatorUtils:         addr("validatorUtils"),
			ValidatorWalletCreator: addr("validatorWalletCreator"),
		}
		if receipt.BlockNumber != nil {
			contracts.DeployedAtBlockNumber = receipt.BlockNumber.Uint64()
		}
		return contracts, nil
	}

	return nil, r.decodeError(receipt, fmt.Errorf("RollupCreated event not found in %d logs", len(receipt.Logs)))
}

func (r *RollupCreator) decodeError(receipt *types.Receipt, err error) error {
	return apperrors.Wrap(apperrors.KindReceiptDecode,
		fmt.Sprintf("transaction %s confirmed but its contracts could not be read; the chain may be partially created, inspect it manually",
			receipt.TxHash.Hex()),
		err)
}
