// Package distributor builds the merkle distribution that a claim contract
// is deployed with. Every account receives one claim holding its index, the
// amount in base units and the proof of its leaf.
package distributor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"slices"
	"sort"
	"strings"

	"github.com/ardanlabs/rewards/business/core/claims"
	"github.com/ardanlabs/rewards/foundation/merkle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of error variables for building a distribution.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNoClaims       = errors.New("no claims to distribute")
	ErrUnknownAccount = errors.New("account has no claim")
)

// Claim is what a single account can claim from the distribution.
type Claim struct {
	Index   uint64        `json:"index"`
	Amount  *hexutil.Big  `json:"amount"`
	Reasons string        `json:"reasons,omitempty"`
	Proof   []common.Hash `json:"proof"`
}

// Distribution is the merkle root, the total of all claims and the claims
// keyed by checksummed account address. Skipped counts the records left out
// because they round to zero base units.
type Distribution struct {
	MerkleRoot common.Hash      `json:"merkleRoot"`
	TokenTotal *hexutil.Big     `json:"tokenTotal"`
	Claims     map[string]Claim `json:"claims"`
	Skipped    int              `json:"-"`
}

// Claim returns the claim of the specified account.
func (d Distribution) Claim(account common.Address) (Claim, error) {
	c, exists := d.Claims[account.Hex()]
	if !exists {
		return Claim{}, fmt.Errorf("%w: %s", ErrUnknownAccount, account.Hex())
	}
	return c, nil
}

// =============================================================================

// Build aggregates the records per account and builds the distribution.
// Accounts are indexed in ascending address order so the same records
// always produce the same root. Records earning zero base units are
// skipped; negative or fractional earnings are an error.
func Build(records []claims.Record) (Distribution, error) {
	type entry struct {
		amount  *big.Int
		reasons []string
	}

	entries := make(map[common.Address]*entry)
	var skipped int

	for i, rec := range records {
		if !common.IsHexAddress(rec.Address) {
			return Distribution{}, fmt.Errorf("record %d: %w: %q", i, ErrInvalidAddress, rec.Address)
		}

		amount, ok := new(big.Int).SetString(rec.Earnings, 10)
		if !ok || amount.Sign() < 0 {
			return Distribution{}, fmt.Errorf("record %d: %w: %q", i, ErrInvalidAmount, rec.Earnings)
		}

		if amount.Sign() == 0 {
			skipped++
			continue
		}

		account := common.HexToAddress(rec.Address)

		e, exists := entries[account]
		if !exists {
			e = &entry{amount: new(big.Int)}
			entries[account] = e
		}

		e.amount.Add(e.amount, amount)
		if rec.Reasons != "" && !slices.Contains(e.reasons, rec.Reasons) {
			e.reasons = append(e.reasons, rec.Reasons)
		}
	}

	if len(entries) == 0 {
		return Distribution{}, ErrNoClaims
	}

	accounts := make([]common.Address, 0, len(entries))
	for account := range entries {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i][:], accounts[j][:]) < 0
	})

	leaves := make([]leaf, len(accounts))
	total := new(big.Int)
	for i, account := range accounts {
		leaves[i] = leaf{
			index:   uint64(i),
			account: account,
			amount:  entries[account].amount,
		}
		total.Add(total, entries[account].amount)
	}

	tree, err := merkle.NewTree(leaves, merkle.WithKeccak256[leaf](), merkle.WithSortedPairs[leaf]())
	if err != nil {
		return Distribution{}, fmt.Errorf("building tree: %w", err)
	}

	d := Distribution{
		MerkleRoot: common.BytesToHash(tree.MerkleRoot),
		TokenTotal: (*hexutil.Big)(total),
		Claims:     make(map[string]Claim, len(leaves)),
		Skipped:    skipped,
	}

	for _, l := range leaves {
		proof, _, err := tree.Proof(l)
		if err != nil {
			return Distribution{}, fmt.Errorf("proof for %s: %w", l.account.Hex(), err)
		}

		hashes := make([]common.Hash, len(proof))
		for i, p := range proof {
			hashes[i] = common.BytesToHash(p)
		}

		d.Claims[l.account.Hex()] = Claim{
			Index:   l.index,
			Amount:  (*hexutil.Big)(new(big.Int).Set(l.amount)),
			Reasons: strings.Join(entries[l.account].reasons, ", "),
			Proof:   hashes,
		}
	}

	return d, nil
}

// Verify reports whether the claim of the account is part of the tree with
// the specified root.
func Verify(root common.Hash, account common.Address, c Claim) (bool, error) {
	if c.Amount == nil {
		return false, fmt.Errorf("%w: missing amount", ErrInvalidAmount)
	}

	l := leaf{
		index:   c.Index,
		account: account,
		amount:  c.Amount.ToInt(),
	}

	sum, err := l.Hash()
	if err != nil {
		return false, err
	}

	proof := make([][]byte, len(c.Proof))
	for i, h := range c.Proof {
		proof[i] = h.Bytes()
	}

	return merkle.VerifySortedProof(root.Bytes(), sum, proof, merkle.Keccak256)
}

// Write encodes the distribution as indented JSON.
func Write(w io.Writer, d Distribution) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(d)
}

// Read decodes a distribution written by Write.
func Read(r io.Reader) (Distribution, error) {
	var d Distribution
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Distribution{}, fmt.Errorf("decoding distribution: %w", err)
	}

	return d, nil
}
