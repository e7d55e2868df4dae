package delegation_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ardanlabs/rewards/foundation/delegation"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var (
	token      = common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984")
	ambassador = common.HexToAddress("0x46abFE1C972fCa43766d6aD70E1c1Df72F4Bb4d1")
	elsewhere  = common.HexToAddress("0x7064d1fa592fa9d50c06c6e1a3f79399f12cfaf3")

	delegatorOne   = common.HexToAddress("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	delegatorTwo   = common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	delegatorThree = common.HexToAddress("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")
)

// ether returns n whole tokens in base units.
func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// votes builds an event whose receipt moves the delegate's votes from
// previous to current whole tokens.
func votes(t *testing.T, delegator common.Address, block uint64, delegate common.Address, previous int64, current int64) delegation.Event {
	t.Helper()

	lg, err := delegation.VotesChangedLog(token, delegate, ether(previous), ether(current), 1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to pack the votes log: %v", failed, err)
	}

	return delegation.Event{
		Delegator:   delegator,
		BlockNumber: block,
		Logs:        []*types.Log{lg},
	}
}

func window() delegation.Window {
	return delegation.Window{
		Delegate:     ambassador,
		StartBlock:   1000,
		EndBlock:     2000,
		TotalRewards: decimal.NewFromInt(32_000),
	}
}

// =============================================================================

func TestAllocate(t *testing.T) {
	type table struct {
		name   string
		events func(t *testing.T) []delegation.Event
		exp    map[common.Address]string
	}

	tt := []table{
		{
			name: "two-delegators",
			events: func(t *testing.T) []delegation.Event {
				return []delegation.Event{
					votes(t, delegatorOne, 1000, ambassador, 0, 50),
					votes(t, delegatorTwo, 1500, ambassador, 50, 100),
				}
			},
			exp: map[common.Address]string{
				delegatorOne: "24000",
				delegatorTwo: "8000",
			},
		},
		{
			name: "three-delegators",
			events: func(t *testing.T) []delegation.Event {
				return []delegation.Event{
					votes(t, delegatorOne, 1000, ambassador, 0, 10),
					votes(t, delegatorTwo, 1250, ambassador, 10, 60),
					votes(t, delegatorThree, 1300, ambassador, 60, 260),
				}
			},
			exp: map[common.Address]string{
				delegatorOne:   "9128.21",
				delegatorTwo:   "5641.03",
				delegatorThree: "17230.77",
			},
		},
		{
			name: "undelegation",
			events: func(t *testing.T) []delegation.Event {
				return []delegation.Event{
					votes(t, delegatorOne, 1000, ambassador, 0, 10),
					votes(t, delegatorTwo, 1250, ambassador, 10, 60),
					votes(t, delegatorOne, 1300, ambassador, 60, 50),
					votes(t, delegatorThree, 1700, ambassador, 50, 250),
				}
			},
			exp: map[common.Address]string{
				delegatorOne:   "0",
				delegatorTwo:   "21485.71",
				delegatorThree: "10514.29",
			},
		},
		{
			name: "top-up",
			events: func(t *testing.T) []delegation.Event {
				return []delegation.Event{
					votes(t, delegatorOne, 1000, ambassador, 0, 10),
					votes(t, delegatorOne, 1500, ambassador, 10, 20),
				}
			},
			exp: map[common.Address]string{
				delegatorOne: "32000",
			},
		},
		{
			name: "single-delegation",
			events: func(t *testing.T) []delegation.Event {
				return []delegation.Event{
					votes(t, delegatorOne, 1200, ambassador, 0, 50),
				}
			},
			exp: map[common.Address]string{
				delegatorOne: "32000",
			},
		},
		{
			name: "other-delegate",
			events: func(t *testing.T) []delegation.Event {
				return []delegation.Event{
					votes(t, delegatorOne, 1000, ambassador, 0, 50),
					votes(t, delegatorTwo, 1500, elsewhere, 0, 50),
				}
			},
			exp: map[common.Address]string{
				delegatorOne: "32000",
			},
		},
		{
			name: "no-events",
			events: func(t *testing.T) []delegation.Event {
				return nil
			},
			exp: map[common.Address]string{},
		},
	}

	t.Log("Given the need to allocate rewards to delegators.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling the %s scenario.", testID, tst.name)
				{
					allocs, err := delegation.Allocate(tst.events(t), window())
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to allocate: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to allocate.", success, testID)

					if len(allocs) != len(tst.exp) {
						t.Fatalf("\t%s\tTest %d:\tShould get %d allocations, got %d.", failed, testID, len(tst.exp), len(allocs))
					}
					t.Logf("\t%s\tTest %d:\tShould get %d allocations.", success, testID, len(tst.exp))

					for _, a := range allocs {
						exp, exists := tst.exp[a.Address]
						if !exists {
							t.Fatalf("\t%s\tTest %d:\tShould not allocate to %s.", failed, testID, a.Address)
						}

						got := a.AllocatedRewards.Round(2).String()
						if got != exp {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, exp)
							t.Fatalf("\t%s\tTest %d:\tShould allocate the expected rewards to %s.", failed, testID, a.Address)
						}
						t.Logf("\t%s\tTest %d:\tShould allocate %s to %s.", success, testID, exp, a.Address)
					}
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func TestAllocateConservesPool(t *testing.T) {
	t.Log("Given delegations that start at the beginning of the window.")
	{
		events := []delegation.Event{
			votes(t, delegatorOne, 1000, ambassador, 0, 10),
			votes(t, delegatorTwo, 1250, ambassador, 10, 60),
			votes(t, delegatorOne, 1300, ambassador, 60, 50),
			votes(t, delegatorThree, 1700, ambassador, 50, 250),
		}

		allocs, err := delegation.Allocate(events, window())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to allocate: %v", failed, err)
		}

		total := delegation.Total(allocs)
		if total.Sub(decimal.NewFromInt(32_000)).Abs().GreaterThan(decimal.New(1, -18)) {
			t.Fatalf("\t%s\tShould pay out the whole pool, got %s.", failed, total)
		}
		t.Logf("\t%s\tShould pay out the whole pool.", success)

		if allocs[0].Address != delegatorOne || allocs[1].Address != delegatorTwo || allocs[2].Address != delegatorThree {
			t.Fatalf("\t%s\tShould keep the order delegators were first seen.", failed)
		}
		t.Logf("\t%s\tShould keep the order delegators were first seen.", success)

		if !allocs[0].TotalContribution.IsZero() {
			t.Fatalf("\t%s\tShould zero the contribution of a slashed delegator, got %s.", failed, allocs[0].TotalContribution)
		}
		if !allocs[2].TotalContribution.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("\t%s\tShould track the contribution in whole tokens, got %s.", failed, allocs[2].TotalContribution)
		}
		t.Logf("\t%s\tShould track contributions in whole tokens.", success)
	}
}

func TestAllocateErrors(t *testing.T) {
	t.Log("Given invalid input to the allocation.")
	{
		t.Logf("\tTest 0:\tWhen events are out of block order.")
		{
			events := []delegation.Event{
				votes(t, delegatorOne, 1500, ambassador, 0, 10),
				votes(t, delegatorTwo, 1200, ambassador, 10, 20),
			}

			if _, err := delegation.Allocate(events, window()); !errors.Is(err, delegation.ErrUnordered) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrUnordered, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrUnordered.", success)
		}

		t.Logf("\tTest 1:\tWhen an event is outside the window.")
		{
			events := []delegation.Event{
				votes(t, delegatorOne, 999, ambassador, 0, 10),
			}

			if _, err := delegation.Allocate(events, window()); !errors.Is(err, delegation.ErrInvalidWindow) {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrInvalidWindow, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get ErrInvalidWindow.", success)
		}

		t.Logf("\tTest 2:\tWhen the window is empty.")
		{
			w := window()
			w.EndBlock = w.StartBlock

			if _, err := delegation.Allocate(nil, w); !errors.Is(err, delegation.ErrInvalidWindow) {
				t.Fatalf("\t%s\tTest 2:\tShould get ErrInvalidWindow, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get ErrInvalidWindow.", success)
		}

		t.Logf("\tTest 3:\tWhen the votes log can't be decoded.")
		{
			ev := votes(t, delegatorOne, 1000, ambassador, 0, 10)
			ev.Logs[0].Data = []byte{1, 2, 3}
			events := []delegation.Event{ev, votes(t, delegatorTwo, 1100, ambassador, 10, 20)}

			if _, err := delegation.Allocate(events, window()); err == nil {
				t.Fatalf("\t%s\tTest 3:\tShould fail to decode the log.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould fail to decode the log.", success)
		}
	}
}
