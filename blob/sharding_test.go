package blob

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestValidatorsPerShardUsesFloorUnderThreshold(t *testing.T) {
	if got := ValidatorsPerShard(3); got != 3 {
		t.Errorf("ValidatorsPerShard(3) = %d, want 3", got)
	}
	if got := ValidatorsPerShard(4); got != 4 {
		t.Errorf("ValidatorsPerShard(4) = %d, want 4", got)
	}
}

func TestValidatorsPerShardUsesPercentageAboveThreshold(t *testing.T) {
	got := ValidatorsPerShard(12)
	if got < MinShardHolderCount {
		t.Errorf("ValidatorsPerShard(12) = %d, below floor %d", got, MinShardHolderCount)
	}
}

func TestShardsToStoreAbsentValidatorStoresNothing(t *testing.T) {
	validators := []uint64{1, 2, 3, 4, 5}
	out := ShardsToStore(common.HexToHash("0xdead"), 10, validators, 999)
	if len(out) != 0 {
		t.Errorf("expected no shards for an absent validator, got %v", out)
	}
}

func TestShardsToStoreDeterministic(t *testing.T) {
	hash := common.HexToHash("0x0102030405060708")
	validators := make([]uint64, 12)
	for i := range validators {
		validators[i] = uint64(i)
	}
	a := ShardsToStore(hash, 10, validators, 3)
	b := ShardsToStore(hash, 10, validators, 3)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic shard assignment: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic shard assignment: %v vs %v", a, b)
		}
	}
}

func TestShardsToStoreEveryShardHasNpsOwners(t *testing.T) {
	hash := common.HexToHash("0xabc")
	nbShards := uint16(10)
	validators := make([]uint64, 12)
	for i := range validators {
		validators[i] = uint64(i)
	}
	nps := ValidatorsPerShard(len(validators))

	owners := make(map[uint16]int)
	for _, v := range validators {
		shards := ShardsToStore(hash, nbShards, validators, v)
		for _, s := range shards {
			owners[s]++
		}
	}
	for s := uint16(0); s < nbShards; s++ {
		if owners[s] != nps {
			t.Errorf("shard %d has %d owners, want %d", s, owners[s], nps)
		}
	}
}

func TestShardsToStoreMatchesRingFixture(t *testing.T) {
	var hashBytes [32]byte
	binary.LittleEndian.PutUint64(hashBytes[:8], 0x0102030405060708)
	hash := common.BytesToHash(hashBytes[:])

	validators := make([]uint64, 12)
	for i := range validators {
		validators[i] = uint64(i)
	}
	nps := ValidatorsPerShard(12)

	got := ShardsToStore(hash, 10, validators, 3)
	seed := uint64(0x0102030405060708)
	var want []uint16
	for s := uint16(0); s < 10; s++ {
		base := (seed + uint64(s)) % 12
		for i := 0; i < nps; i++ {
			if (int(base)+i)%12 == 3 {
				want = append(want, s)
				break
			}
		}
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
