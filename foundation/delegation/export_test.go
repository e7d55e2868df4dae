package delegation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// VotesChangedLog builds the DelegateVotesChanged log a token emits.
func VotesChangedLog(token common.Address, delegate common.Address, previous *big.Int, current *big.Int, index uint) (*types.Log, error) {
	event := tokenABI.Events[eventDelegateVotesChanged]

	data, err := event.Inputs.NonIndexed().Pack(previous, current)
	if err != nil {
		return nil, err
	}

	lg := types.Log{
		Address: token,
		Topics:  []common.Hash{event.ID, addressTopic(delegate)},
		Data:    data,
		Index:   index,
	}

	return &lg, nil
}

// DelegateChangedLog builds the DelegateChanged log a token emits.
func DelegateChangedLog(token common.Address, delegator common.Address, from common.Address, to common.Address, block uint64, tx common.Hash, index uint) types.Log {
	event := tokenABI.Events[eventDelegateChanged]

	return types.Log{
		Address:     token,
		Topics:      []common.Hash{event.ID, addressTopic(delegator), addressTopic(from), addressTopic(to)},
		BlockNumber: block,
		TxHash:      tx,
		Index:       index,
	}
}
