// Package merkle implements the keccak-256 binary Merkle trees backing the
// tx-data roots (spec.md §4.7): submitted_root over blob hashes and
// bridged_root over outbound bridge messages, combined into data_root.
// Grounded on original_source/base/src/header_extension/builder_data.rs.
package merkle

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/crypto"
	"github.com/availproject/avail-da/errs"
)

// Proof is the inclusion-proof shape returned by kate_queryDataProof:
// verifying hashes Leaf once more before climbing the sibling path, so
// that an internal node's hash can never be replayed as a valid leaf.
type Proof struct {
	Root           common.Hash
	Siblings       []common.Hash
	LeafIndex      int
	NumberOfLeaves int
	Leaf           common.Hash
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// BuildTree pads leafHashes with common.Hash{} up to the next power of
// two, then builds a binary tree whose bottom-level nodes are
// keccak256(leaf) and whose internal nodes are keccak256(left || right).
// Returns the root and the full level-0 (padded, single-hashed) set plus
// every computed level, for proof generation.
func BuildTree(leafHashes []common.Hash) (root common.Hash, levels [][]common.Hash) {
	if len(leafHashes) == 0 {
		return common.Hash{}, nil
	}
	n := nextPow2(len(leafHashes))
	padded := make([]common.Hash, n)
	copy(padded, leafHashes)

	bottom := make([]common.Hash, n)
	for i, leaf := range padded {
		bottom[i] = crypto.Keccak256Hash(leaf[:])
	}

	levels = [][]common.Hash{bottom}
	cur := bottom
	for len(cur) > 1 {
		next := make([]common.Hash, len(cur)/2)
		for i := range next {
			next[i] = crypto.Keccak256Hash(cur[2*i][:], cur[2*i+1][:])
		}
		levels = append(levels, next)
		cur = next
	}
	return cur[0], levels
}

// ProveIndex builds the inclusion proof for leaf index idx given the
// original (unpadded) leaf hashes.
func ProveIndex(leafHashes []common.Hash, idx int) (Proof, error) {
	if idx < 0 || idx >= len(leafHashes) {
		return Proof{}, errs.New(errs.InvalidLeafIndex, "leaf index %d out of range [0,%d)", idx, len(leafHashes))
	}
	root, levels := BuildTree(leafHashes)

	var siblings []common.Hash
	pos := idx
	for level := 0; level < len(levels)-1; level++ {
		layer := levels[level]
		var sibling common.Hash
		if pos%2 == 0 {
			sibling = layer[pos+1]
		} else {
			sibling = layer[pos-1]
		}
		siblings = append(siblings, sibling)
		pos /= 2
	}

	return Proof{
		Root:           root,
		Siblings:       siblings,
		LeafIndex:      idx,
		NumberOfLeaves: len(leafHashes),
		Leaf:           leafHashes[idx],
	}, nil
}

// VerifyProof rehashes Leaf and climbs the sibling path, comparing the
// result against Root.
func VerifyProof(p Proof) bool {
	if p.NumberOfLeaves <= 0 {
		return false
	}
	if p.LeafIndex < 0 || p.LeafIndex >= p.NumberOfLeaves {
		return false
	}
	expectedDepth := 0
	for (1 << expectedDepth) < nextPow2(p.NumberOfLeaves) {
		expectedDepth++
	}
	if len(p.Siblings) != expectedDepth {
		return false
	}

	node := crypto.Keccak256Hash(p.Leaf[:])
	pos := p.LeafIndex
	for _, sibling := range p.Siblings {
		if pos%2 == 0 {
			node = crypto.Keccak256Hash(node[:], sibling[:])
		} else {
			node = crypto.Keccak256Hash(sibling[:], node[:])
		}
		pos /= 2
	}
	return node == p.Root
}
