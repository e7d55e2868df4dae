// Package delegation computes reward allocations for accounts that delegate
// their governance votes to a single delegate during a window of blocks.
//
// The reward pool is paid out at a constant rate per block. Between two
// delegation events every tracked delegator earns its share of the rate in
// proportion to its contribution to the delegate's votes. A delegator that
// withdraws everything forfeits what it earned; the forfeited amount goes
// back to the pool and the rate is recomputed over the blocks that remain.
package delegation

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/rewards/foundation/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of decimal places kept by divisions.
const divisionPrecision = 36

// Set of error variables for computing allocations.
var (
	ErrInvalidWindow = errors.New("invalid window")
	ErrUnordered     = errors.New("events out of block order")
	ErrNoReceipt     = errors.New("node returned no receipt")
)

// Window describes the reward program being allocated.
type Window struct {
	Delegate     common.Address
	StartBlock   uint64
	EndBlock     uint64
	TotalRewards decimal.Decimal
}

// Validate checks the window can be used to allocate rewards.
func (w Window) Validate() error {
	if w.Delegate == (common.Address{}) {
		return fmt.Errorf("%w: delegate address is required", ErrInvalidWindow)
	}

	if w.EndBlock <= w.StartBlock {
		return fmt.Errorf("%w: end block %d must be after start block %d", ErrInvalidWindow, w.EndBlock, w.StartBlock)
	}

	if !w.TotalRewards.IsPositive() {
		return fmt.Errorf("%w: total rewards must be positive", ErrInvalidWindow)
	}

	return nil
}

// Event represents a delegation change to or from the delegate together with
// the logs of the transaction that made it.
type Event struct {
	Delegator   common.Address
	BlockNumber uint64
	Index       uint
	TxHash      common.Hash
	Logs        []*types.Log
}

// Allocation is the reward earned by a single delegator. Amounts are in the
// human readable token denomination.
type Allocation struct {
	Address           common.Address
	AllocatedRewards  decimal.Decimal
	TotalContribution decimal.Decimal
}

// =============================================================================

// Allocate walks the events in block order and returns the allocation of
// every delegator seen, in the order they were first seen. All vote changes
// carried by an event are applied before the blocks up to the next event
// are paid out.
func Allocate(events []Event, w Window) ([]Allocation, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	for i, ev := range events {
		if ev.BlockNumber < w.StartBlock || ev.BlockNumber > w.EndBlock {
			return nil, fmt.Errorf("%w: event at block %d is outside [%d, %d]", ErrInvalidWindow, ev.BlockNumber, w.StartBlock, w.EndBlock)
		}
		if i > 0 && ev.BlockNumber < events[i-1].BlockNumber {
			return nil, fmt.Errorf("%w: block %d after block %d", ErrUnordered, ev.BlockNumber, events[i-1].BlockNumber)
		}
	}

	if len(events) == 1 {
		return sole(events[0], w)
	}

	l := newLedger(w)

	for i, ev := range events {
		next := w.EndBlock
		if i+1 < len(events) {
			next = events[i+1].BlockNumber
		}
		span := next - ev.BlockNumber

		for _, lg := range ev.Logs {
			change, ok, err := votesChange(lg, w.Delegate)
			if err != nil {
				return nil, fmt.Errorf("block %d tx %s: %w", ev.BlockNumber, ev.TxHash.Hex(), err)
			}
			if !ok {
				continue
			}

			l.apply(ev.Delegator, ev.BlockNumber, units.FromBase(change, units.Decimals))
		}

		l.accrue(span)
	}

	return l.allocations(), nil
}

// Total returns the sum of the allocated rewards.
func Total(allocs []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocs {
		total = total.Add(a.AllocatedRewards)
	}
	return total
}

// sole handles a window with a single delegation: that delegator receives
// the entire pool.
func sole(ev Event, w Window) ([]Allocation, error) {
	for _, lg := range ev.Logs {
		change, ok, err := votesChange(lg, w.Delegate)
		if err != nil {
			return nil, fmt.Errorf("block %d tx %s: %w", ev.BlockNumber, ev.TxHash.Hex(), err)
		}
		if !ok || change.Sign() <= 0 {
			continue
		}

		alloc := Allocation{
			Address:           ev.Delegator,
			AllocatedRewards:  w.TotalRewards,
			TotalContribution: units.FromBase(change, units.Decimals),
		}
		return []Allocation{alloc}, nil
	}

	return []Allocation{}, nil
}

// =============================================================================

// ledger tracks the state of the reward pool while events are applied.
type ledger struct {
	window    Window
	remaining decimal.Decimal
	rate      decimal.Decimal
	supply    decimal.Decimal
	accounts  map[common.Address]*Allocation
	order     []common.Address
}

func newLedger(w Window) *ledger {
	return &ledger{
		window:    w,
		remaining: w.TotalRewards,
		rate:      rateOver(w.TotalRewards, w.EndBlock, w.StartBlock),
		accounts:  make(map[common.Address]*Allocation),
	}
}

// apply records a change in the votes the delegator gives the delegate.
func (l *ledger) apply(delegator common.Address, block uint64, change decimal.Decimal) {
	l.supply = l.supply.Add(change)
	if change.IsZero() {
		return
	}

	acct, tracked := l.accounts[delegator]

	switch {
	case !tracked && !change.IsPositive():

		// Votes delegated before the window started are not tracked.
		return

	case !tracked:
		l.accounts[delegator] = &Allocation{
			Address:           delegator,
			TotalContribution: change,
		}
		l.order = append(l.order, delegator)

	default:
		balance := acct.TotalContribution.Add(change)
		if !balance.IsPositive() {
			l.slash(acct, block)
			return
		}
		acct.TotalContribution = balance
	}
}

// accrue pays every tracked delegator its share of the rate for the
// specified number of blocks.
func (l *ledger) accrue(span uint64) {
	for _, addr := range l.order {
		acct := l.accounts[addr]
		l.credit(acct, l.proRata(acct.TotalContribution, span))
	}
}

// slash removes everything the account earned, returns it to the pool and
// spreads the pool over the blocks left in the window.
func (l *ledger) slash(acct *Allocation, block uint64) {
	l.remaining = l.remaining.Add(acct.AllocatedRewards)
	acct.AllocatedRewards = decimal.Zero
	acct.TotalContribution = decimal.Zero

	l.rate = rateOver(l.remaining, l.window.EndBlock, block)
}

// credit moves the amount from the pool to the account.
func (l *ledger) credit(acct *Allocation, amount decimal.Decimal) {
	acct.AllocatedRewards = acct.AllocatedRewards.Add(amount)
	l.remaining = l.remaining.Sub(amount)
}

// proRata is the part of the rate earned by share over span blocks.
func (l *ledger) proRata(share decimal.Decimal, span uint64) decimal.Decimal {
	if !l.supply.IsPositive() || !share.IsPositive() || span == 0 {
		return decimal.Zero
	}

	blocks := decimal.NewFromInt(int64(span))
	return share.Mul(l.rate).Mul(blocks).DivRound(l.supply, divisionPrecision)
}

func (l *ledger) allocations() []Allocation {
	allocs := make([]Allocation, 0, len(l.order))
	for _, addr := range l.order {
		allocs = append(allocs, *l.accounts[addr])
	}
	return allocs
}

// rateOver returns the amount paid per block when spreading the pool
// between from and end.
func rateOver(pool decimal.Decimal, end uint64, from uint64) decimal.Decimal {
	if end <= from {
		return decimal.Zero
	}

	blocks := decimal.NewFromInt(int64(end - from))
	return pool.DivRound(blocks, divisionPrecision)
}
