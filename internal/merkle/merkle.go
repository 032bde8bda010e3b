// Package merkle builds the batch commitment tree over per-certificate
// hashes. Construction is bit-compatible with the on-chain verifier's
// expectations: leaves are double-keccak hashes of the ABI encoded value and
// intermediate nodes hash their children in sorted order, so proofs generated
// here validate against the root anchored on chain.
package merkle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

var (
	ErrEmptyTree       = errors.New("merkle: tree needs at least one leaf")
	ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")
	ErrBadProofHash    = errors.New("merkle: malformed proof element")
)

// Tree is an in-memory Merkle tree over an ordered list of string leaves
// (one per batch row). Ephemeral: built per batch request, discarded after
// the per-leaf records are persisted.
type Tree struct {
	nodes     [][]byte // flattened tree, root at index 0
	treeIndex []int    // original leaf index -> node index
	leafCount int
}

func keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// abiEncodeString mirrors abi.encode(["string"], [s]).
func abiEncodeString(s string) []byte {
	data := []byte(s)
	padded := (len(data) + 31) / 32 * 32
	out := make([]byte, 64+padded)
	out[31] = 0x20 // offset of the dynamic payload
	lengthWord(out[32:64], len(data))
	copy(out[64:], data)
	return out
}

func lengthWord(dst []byte, n int) {
	for i := len(dst) - 1; i >= 0 && n > 0; i-- {
		dst[i] = byte(n)
		n >>= 8
	}
}

// LeafHash is the standard leaf digest: keccak256(keccak256(abi.encode(v))).
func LeafHash(value string) []byte {
	return keccak256(keccak256(abiEncodeString(value)))
}

func hashPair(a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return keccak256(a, b)
}

// NewTree builds the tree over values in row order.
func NewTree(values []string) (*Tree, error) {
	n := len(values)
	if n == 0 {
		return nil, ErrEmptyTree
	}

	type hashedLeaf struct {
		valueIndex int
		hash       []byte
	}
	hashed := make([]hashedLeaf, n)
	for i, v := range values {
		hashed[i] = hashedLeaf{valueIndex: i, hash: LeafHash(v)}
	}
	sort.SliceStable(hashed, func(i, j int) bool {
		return bytes.Compare(hashed[i].hash, hashed[j].hash) < 0
	})

	nodes := make([][]byte, 2*n-1)
	treeIndex := make([]int, n)
	for pos, hl := range hashed {
		idx := len(nodes) - 1 - pos
		nodes[idx] = hl.hash
		treeIndex[hl.valueIndex] = idx
	}
	for i := len(nodes) - 1 - n; i >= 0; i-- {
		nodes[i] = hashPair(nodes[2*i+1], nodes[2*i+2])
	}

	return &Tree{nodes: nodes, treeIndex: treeIndex, leafCount: n}, nil
}

// Root returns the 0x-prefixed hex root committing to the whole batch.
func (t *Tree) Root() string {
	return "0x" + hex.EncodeToString(t.nodes[0])
}

// Proof returns the sibling path for the leaf at the original row index,
// bottom-up, each element 0x-prefixed hex.
func (t *Tree) Proof(i int) ([]string, error) {
	if i < 0 || i >= t.leafCount {
		return nil, ErrIndexOutOfRange
	}
	var proof []string
	idx := t.treeIndex[i]
	for idx > 0 {
		sibling := idx - 1
		if idx%2 == 1 {
			sibling = idx + 1
		}
		proof = append(proof, "0x"+hex.EncodeToString(t.nodes[sibling]))
		idx = (idx - 1) / 2
	}
	return proof, nil
}

// Verify checks a value and proof against a root produced by this package
// (or by the chain's verifier, which shares the pair-sorting convention).
func Verify(root, value string, proof []string) bool {
	current := LeafHash(value)
	for _, p := range proof {
		sibling, err := decodeHash(p)
		if err != nil {
			return false
		}
		current = hashPair(current, sibling)
	}
	return "0x"+hex.EncodeToString(current) == strings.ToLower(root)
}

// EncodedProof returns the keccak256 hex of the concatenated raw proof
// bytes. Stored alongside the raw proof for audit; on-chain verification
// always uses the raw proof array.
func EncodedProof(proof []string) (string, error) {
	var raw []byte
	for _, p := range proof {
		b, err := decodeHash(p)
		if err != nil {
			return "", err
		}
		raw = append(raw, b...)
	}
	return "0x" + hex.EncodeToString(keccak256(raw)), nil
}

func decodeHash(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return nil, ErrBadProofHash
	}
	return b, nil
}
