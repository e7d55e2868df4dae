package delegation

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Backend represents the behavior required from an Ethereum node to read
// delegation events. An *ethclient.Client satisfies this interface.
type Backend interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Source reads delegation events for a governance token.
type Source struct {
	log     *zap.SugaredLogger
	backend Backend
	token   common.Address
}

// NewSource constructs a source for the token contract at the specified
// address.
func NewSource(log *zap.SugaredLogger, backend Backend, token common.Address) *Source {
	return &Source{
		log:     log,
		backend: backend,
		token:   token,
	}
}

// Events returns every DelegateChanged event inside the window that moves
// votes to or away from the window's delegate, ordered by block and log
// index. Each event carries the token logs its transaction emitted after
// the delegation change and before the next one.
func (s *Source) Events(ctx context.Context, w Window) ([]Event, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	id := tokenABI.Events[eventDelegateChanged].ID
	delegate := addressTopic(w.Delegate)

	// Topics are [event, delegator, fromDelegate, toDelegate].
	queries := map[string][][]common.Hash{
		"to":   {{id}, nil, nil, {delegate}},
		"from": {{id}, nil, {delegate}},
	}

	seen := make(map[logKey]struct{})
	var logs []types.Log

	for _, direction := range []string{"to", "from"} {
		q := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(w.StartBlock),
			ToBlock:   new(big.Int).SetUint64(w.EndBlock),
			Addresses: []common.Address{s.token},
			Topics:    queries[direction],
		}

		found, err := s.backend.FilterLogs(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("filtering delegations %s delegate: %w", direction, err)
		}

		s.log.Infow("delegation logs", "direction", direction, "count", len(found))

		for _, lg := range found {
			if lg.Removed || len(lg.Topics) < 2 {
				continue
			}

			key := logKey{tx: lg.TxHash, index: lg.Index}
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}

			logs = append(logs, lg)
		}
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	receipts := make(map[common.Hash]*types.Receipt)
	events := make([]Event, 0, len(logs))

	for _, lg := range logs {
		receipt, exists := receipts[lg.TxHash]
		if !exists {
			var err error
			receipt, err = s.backend.TransactionReceipt(ctx, lg.TxHash)
			if err != nil {
				return nil, fmt.Errorf("fetching receipt %s: %w", lg.TxHash.Hex(), err)
			}
			if receipt == nil {
				return nil, fmt.Errorf("fetching receipt %s: %w", lg.TxHash.Hex(), ErrNoReceipt)
			}
			receipts[lg.TxHash] = receipt
		}

		events = append(events, Event{
			Delegator:   common.BytesToAddress(lg.Topics[1].Bytes()),
			BlockNumber: lg.BlockNumber,
			Index:       lg.Index,
			TxHash:      lg.TxHash,
			Logs:        s.eventLogs(receipt, lg.Index),
		})
	}

	s.log.Infow("delegation events", "count", len(events), "receipts", len(receipts))

	return events, nil
}

// eventLogs returns the token logs of the receipt that follow the
// DelegateChanged log at index, up to the next DelegateChanged log.
func (s *Source) eventLogs(receipt *types.Receipt, index uint) []*types.Log {
	id := tokenABI.Events[eventDelegateChanged].ID

	var logs []*types.Log
	for _, lg := range receipt.Logs {
		if lg.Index <= index || lg.Address != s.token {
			continue
		}
		if len(lg.Topics) > 0 && lg.Topics[0] == id {
			break
		}
		logs = append(logs, lg)
	}

	return logs
}

// logKey identifies a single log.
type logKey struct {
	tx    common.Hash
	index uint
}
