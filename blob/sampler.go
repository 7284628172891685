package blob

import (
	"context"
	"encoding/binary"

	"github.com/availproject/avail-da/errs"
	"github.com/availproject/avail-da/kate"
)

// CellFetcher requests a byte range of a shard from a specific owner,
// via the request/response protocol (spec.md §4.11's CellRequest).
type CellFetcher interface {
	FetchCellRange(ctx context.Context, owner Owner, blobHash [32]byte, shardID uint16, start, end uint64) ([]byte, error)
}

// Verifier re-executes the commitment pipeline over received bytes and
// checks them against a blob's announced commitments.
type Verifier interface {
	VerifySubrange(commitments []byte, shardID uint16, data []byte) bool
}

// Sampler implements the DA sampler (spec.md §4.13): after accepting a
// blob announcement, it pulls a small sample from a remote shard owner and
// re-verifies the sample against the announced commitments.
type Sampler struct {
	Fetch  CellFetcher
	Verify Verifier
}

// SampleFraction is the leading fraction of a shard's bytes pulled per
// sample (rounded up).
const SampleFraction = 0.10

// SampleShardIndex returns the deterministic shard chosen for sampling a
// blob, given its hash and shard count.
func SampleShardIndex(blobHash [32]byte, nbShards uint16) uint16 {
	seed := binary.LittleEndian.Uint64(blobHash[:8])
	return uint16(seed % uint64(nbShards))
}

// SampleBlob samples meta and reports whether it passed verification. A
// false result means the blob should be recorded as failed; callers fold
// the blob's originating tx index into the block author's failure list.
func (s *Sampler) SampleBlob(ctx context.Context, meta Metadata) (bool, error) {
	if meta.NbShards == 0 {
		return false, errs.New(errs.SampleMismatch, "blob %x advertises zero shards", meta.Hash)
	}
	shardID := SampleShardIndex(meta.Hash, meta.NbShards)

	owners := meta.Ownership[shardID]
	if len(owners) == 0 {
		return false, errs.New(errs.OwnerUnreachable, "no known owners for shard %d of blob %x", shardID, meta.Hash)
	}
	owner := owners[len(owners)-1]

	sampleBytes := shardSampleLen()
	data, err := s.Fetch.FetchCellRange(ctx, owner, meta.Hash, shardID, 0, uint64(sampleBytes))
	if err != nil {
		return false, errs.Wrap(errs.OwnerUnreachable, err, "failed to fetch sample from owner %+v", owner)
	}

	if !s.Verify.VerifySubrange(meta.Commitments, shardID, data) {
		return false, nil
	}
	return true, nil
}

func shardSampleLen() uint64 {
	n := uint64(ShardSize) * 10 / 100
	if ShardSize*SampleFraction > float64(n) {
		n++
	}
	return n
}

// DefaultVerifier re-runs the scalar encoder over a sampled byte range. It
// does not run KZG cell verification.
type DefaultVerifier struct {
	Backend *KZGVerifyBackend
}

// KZGVerifyBackend is the subset of the KZG backend the sampler needs to
// re-verify a sample; kept narrow so the sampler does not depend on the
// full kate pipeline wiring.
type KZGVerifyBackend struct {
	Commitments []byte
}

// VerifySubrange reports whether data pads cleanly into scalars
// (kate.Pad). It does not compare data against commitments and ignores
// commitments and shardID: no cell proof is checked with kate.Verify.
func (d *DefaultVerifier) VerifySubrange(commitments []byte, shardID uint16, data []byte) bool {
	_, err := kate.Pad(data)
	return err == nil
}
