// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkle tree that can hash
// sorted pairs with keccak256 so proofs can be checked by a claim contract
// without knowing the position of the leaf.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"hash"

	"github.com/ethereum/go-ethereum/crypto"
)

// Set of error variables for building and checking trees.
var (
	ErrNoContent    = errors.New("cannot construct tree with no content")
	ErrNotFound     = errors.New("unable to find data in tree")
	ErrInvalidRoot  = errors.New("root hash invalid")
	ErrInvalidProof = errors.New("merkle root is not equivalent to the merkle root calculated on the critical path")
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
	sortedPairs  bool
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// WithKeccak256 hashes intermediate nodes with keccak256, the hash used by
// the EVM.
func WithKeccak256[T Hashable[T]]() func(t *Tree[T]) {
	return WithHashStrategy[T](Keccak256)
}

// WithSortedPairs orders every pair of child hashes before hashing them so
// a proof doesn't need to carry the side of each sibling.
func WithSortedPairs[T Hashable[T]]() func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.sortedPairs = true
	}
}

// Keccak256 constructs a keccak256 hasher.
func Keccak256() hash.Hash {
	return crypto.NewKeccakState()
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch. An odd number of leafs is evened out by repeating the last.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return ErrNoContent
	}

	leafs := make([]*Node[T], 0, len(values)+1)
	for _, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return err
		}

		leafs = append(leafs, &Node[T]{
			Hash:  hash,
			Value: value,
			leaf:  true,
			Tree:  t,
		})
	}

	if len(leafs)%2 == 1 {
		last := leafs[len(leafs)-1]
		leafs = append(leafs, &Node[T]{
			Hash:  last.Hash,
			Value: last.Value,
			leaf:  true,
			dup:   true,
			Tree:  t,
		})
	}

	root, err := buildIntermediate(leafs, t)
	if err != nil {
		return err
	}

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Proof returns the sibling hashes on the path from the data to the root and
// the side of each sibling: 0 when the sibling is concatenated first, 1 when
// it is concatenated second. Trees built WithSortedPairs can ignore the order.
func (t *Tree[T]) Proof(data T) ([][]byte, []int64, error) {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		var proof [][]byte
		var order []int64

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			if parent.Left == node {
				proof = append(proof, parent.Right.Hash)
				order = append(order, 1)
			} else {
				proof = append(proof, parent.Left.Hash)
				order = append(order, 0)
			}
			node = parent
		}

		return proof, order, nil
	}

	return nil, nil, ErrNotFound
}

// Verify recalculates every hash in the tree and checks the result matches
// the stored root.
func (t *Tree[T]) Verify() error {
	calculated, err := t.Root.verify()
	if err != nil {
		return err
	}

	if !bytes.Equal(t.MerkleRoot, calculated) {
		return ErrInvalidRoot
	}

	return nil
}

// VerifyData checks the data is in the tree and that the hashes on its path
// to the root are valid.
func (t *Tree[T]) VerifyData(data T) error {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			left, err := parent.Left.CalculateHash()
			if err != nil {
				return err
			}

			right, err := parent.Right.CalculateHash()
			if err != nil {
				return err
			}

			sum, err := t.combine(left, right)
			if err != nil {
				return err
			}

			if !bytes.Equal(sum, parent.Hash) {
				return ErrInvalidProof
			}
		}

		return nil
	}

	return ErrNotFound
}

// Values returns the values stored in the tree without the leaf added to
// even out the count.
func (t *Tree[T]) Values() []T {
	values := make([]T, 0, len(t.Leafs))
	for _, node := range t.Leafs {
		if node.dup {
			continue
		}
		values = append(values, node.Value)
	}

	return values
}

// combine hashes two child hashes into their parent hash.
func (t *Tree[T]) combine(left []byte, right []byte) ([]byte, error) {
	return hashPair(t.hashStrategy, t.sortedPairs, left, right)
}

// =============================================================================

// VerifySortedProof reports whether the leaf hash and proof reproduce the
// root of a tree built WithSortedPairs and the specified hash strategy.
func VerifySortedProof(root []byte, leaf []byte, proof [][]byte, hashStrategy func() hash.Hash) (bool, error) {
	sum := leaf
	for _, sibling := range proof {
		var err error
		if sum, err = hashPair(hashStrategy, true, sum, sibling); err != nil {
			return false, err
		}
	}

	return bytes.Equal(sum, root), nil
}

func hashPair(hashStrategy func() hash.Hash, sorted bool, left []byte, right []byte) ([]byte, error) {
	if sorted && bytes.Compare(left, right) > 0 {
		left, right = right, left
	}

	h := hashStrategy()
	if _, err := h.Write(left); err != nil {
		return nil, err
	}
	if _, err := h.Write(right); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to its
// immediate relationships, a hash, the data if it is a leaf, and other metadata.
type Node[T Hashable[T]] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   []byte
	Value  T
	leaf   bool
	dup    bool
}

// verify walks down the tree until hitting a leaf, calculating the hash at
// each level and returning the resulting hash of the node.
func (n *Node[T]) verify() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	left, err := n.Left.verify()
	if err != nil {
		return nil, err
	}

	right, err := n.Right.verify()
	if err != nil {
		return nil, err
	}

	return n.Tree.combine(left, right)
}

// CalculateHash is a helper function that calculates the hash of the node.
func (n *Node[T]) CalculateHash() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	return n.Tree.combine(n.Left.Hash, n.Right.Hash)
}

// =============================================================================

// buildIntermediate constructs the intermediate and root levels of the tree
// for a given list of nodes and returns the root node.
func buildIntermediate[T Hashable[T]](nl []*Node[T], t *Tree[T]) (*Node[T], error) {
	nodes := make([]*Node[T], 0, (len(nl)+1)/2)

	for i := 0; i < len(nl); i += 2 {
		left, right := i, i+1
		if right == len(nl) {
			right = i
		}

		sum, err := t.combine(nl[left].Hash, nl[right].Hash)
		if err != nil {
			return nil, err
		}

		n := Node[T]{
			Left:  nl[left],
			Right: nl[right],
			Hash:  sum,
			Tree:  t,
		}

		nodes = append(nodes, &n)
		nl[left].Parent = &n
		nl[right].Parent = &n

		if len(nl) == 2 {
			return &n, nil
		}
	}

	return buildIntermediate(nodes, t)
}
