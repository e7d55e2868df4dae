package distributor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// leaf is the value stored in the tree for a single claim. Its hash is
// keccak256(uint256 index, address account, uint256 amount) with the
// fields tightly packed.
type leaf struct {
	index   uint64
	account common.Address
	amount  *big.Int
}

// Hash implements the merkle Hashable interface.
func (l leaf) Hash() ([]byte, error) {
	index := new(big.Int).SetUint64(l.index)

	return crypto.Keccak256(
		common.LeftPadBytes(index.Bytes(), 32),
		l.account.Bytes(),
		common.LeftPadBytes(l.amount.Bytes(), 32),
	), nil
}

// Equals implements the merkle Hashable interface.
func (l leaf) Equals(other leaf) bool {
	return l.index == other.index && l.account == other.account && l.amount.Cmp(other.amount) == 0
}
