package blob

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// MinShardHolderCount is the floor on the number of validators that must
// hold each shard, regardless of validator-set size.
const MinShardHolderCount = 4

// MinShardHolderPercentage is the fraction of the validator set that must
// hold each shard once the set exceeds MinShardHolderCount.
const MinShardHolderPercentage = 0.34

// ValidatorsPerShard returns the number of validators that must hold a
// single shard, given the current validator-set size (spec.md §4.12).
func ValidatorsPerShard(nbValidators int) int {
	if nbValidators <= MinShardHolderCount {
		return nbValidators
	}
	pct := int(MinShardHolderPercentage * float64(nbValidators))
	if float64(pct) < MinShardHolderPercentage*float64(nbValidators) {
		pct++ // ceil
	}
	if pct < MinShardHolderCount {
		return MinShardHolderCount
	}
	return pct
}

// ShardsToStore decides which of nbShards this validator must hold, given
// the full ordered validator set and its own id. Returns an empty slice if
// there are no validators or myID is absent from the set.
func ShardsToStore(blobHash common.Hash, nbShards uint16, validators []uint64, myID uint64) []uint16 {
	nv := len(validators)
	if nv == 0 {
		return nil
	}
	nps := ValidatorsPerShard(nv)
	if nps == 0 {
		return nil
	}

	myPos := -1
	for i, v := range validators {
		if v == myID {
			myPos = i
			break
		}
	}
	if myPos == -1 {
		return nil
	}

	seed := binary.LittleEndian.Uint64(blobHash[:8])
	ring := uint64(nv)

	var out []uint16
	for s := uint16(0); s < nbShards; s++ {
		base := (seed + uint64(s)) % ring
		for i := 0; i < nps; i++ {
			idx := (int(base) + i) % nv
			if idx == myPos {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
