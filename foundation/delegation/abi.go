package delegation

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// tokenEvents is the subset of the governance token ABI needed to follow
// delegation to a single delegate.
const tokenEvents = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "delegator", "type": "address"},
			{"indexed": true, "name": "fromDelegate", "type": "address"},
			{"indexed": true, "name": "toDelegate", "type": "address"}
		],
		"name": "DelegateChanged",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "delegate", "type": "address"},
			{"indexed": false, "name": "previousBalance", "type": "uint256"},
			{"indexed": false, "name": "newBalance", "type": "uint256"}
		],
		"name": "DelegateVotesChanged",
		"type": "event"
	}
]`

// Names of the events used from the token contract.
const (
	eventDelegateChanged      = "DelegateChanged"
	eventDelegateVotesChanged = "DelegateVotesChanged"
)

var tokenABI = mustParseABI(tokenEvents)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parsing token abi: %s", err))
	}
	return parsed
}

// addressTopic returns the topic form of an indexed address.
func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// votesChange decodes a DelegateVotesChanged log for the specified delegate
// and returns newBalance - previousBalance in base units. The bool result is
// false when the log is some other event or belongs to another delegate.
func votesChange(lg *types.Log, delegate common.Address) (*big.Int, bool, error) {
	event := tokenABI.Events[eventDelegateVotesChanged]

	if len(lg.Topics) < 2 || lg.Topics[0] != event.ID {
		return nil, false, nil
	}

	if common.BytesToAddress(lg.Topics[1].Bytes()) != delegate {
		return nil, false, nil
	}

	values, err := tokenABI.Unpack(eventDelegateVotesChanged, lg.Data)
	if err != nil {
		return nil, false, fmt.Errorf("unpacking %s: %w", eventDelegateVotesChanged, err)
	}

	if len(values) != 2 {
		return nil, false, fmt.Errorf("unpacking %s: got %d values", eventDelegateVotesChanged, len(values))
	}

	previous, ok := values[0].(*big.Int)
	if !ok {
		return nil, false, fmt.Errorf("unpacking %s: previousBalance is %T", eventDelegateVotesChanged, values[0])
	}

	current, ok := values[1].(*big.Int)
	if !ok {
		return nil, false, fmt.Errorf("unpacking %s: newBalance is %T", eventDelegateVotesChanged, values[1])
	}

	return new(big.Int).Sub(current, previous), true, nil
}
