// Package blob implements the blob-admission, shard-store, validator
// sharding, and DA sampler components (spec.md §4.9-§4.13): everything
// that ties an on-chain metadata transaction to off-chain blob bytes and
// disseminates shards among validators. Grounded on
// original_source/blob/src/types.rs, store.rs, utils.rs and rpc.rs.
package blob

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/scale"
)

// Owner identifies a validator/peer pair known to hold a shard.
type Owner struct {
	ValidatorID uint64
	PeerID      string
}

// Metadata is the on-chain-derived record for one submitted blob.
// Invariants: NbShards = ceil(Size/ShardSize); once inserted, Metadata may
// only be merged with additional ownership entries.
type Metadata struct {
	Hash                 common.Hash
	Size                 uint64
	NbShards             uint16
	Commitments          []byte
	Ownership            map[uint16][]Owner
	IsNotified           bool
	ExpiresAt            uint64
	FinalizedBlockHash   common.Hash
	FinalizedBlockNumber uint64
}

// Clone returns a deep copy of m, safe to mutate independently.
func (m Metadata) Clone() Metadata {
	out := m
	out.Commitments = append([]byte(nil), m.Commitments...)
	out.Ownership = make(map[uint16][]Owner, len(m.Ownership))
	for k, v := range m.Ownership {
		out.Ownership[k] = append([]Owner(nil), v...)
	}
	return out
}

// MergeOwnership adds an owner to shard, deduplicating and keeping the
// slice sorted by (ValidatorID, PeerID) for deterministic encoding.
func (m *Metadata) MergeOwnership(shardID uint16, owner Owner) {
	if m.Ownership == nil {
		m.Ownership = make(map[uint16][]Owner)
	}
	owners := m.Ownership[shardID]
	for _, o := range owners {
		if o == owner {
			return
		}
	}
	owners = append(owners, owner)
	sortOwners(owners)
	m.Ownership[shardID] = owners
}

func sortOwners(owners []Owner) {
	for i := 1; i < len(owners); i++ {
		for j := i; j > 0 && ownerLess(owners[j], owners[j-1]); j-- {
			owners[j], owners[j-1] = owners[j-1], owners[j]
		}
	}
}

func ownerLess(a, b Owner) bool {
	if a.ValidatorID != b.ValidatorID {
		return a.ValidatorID < b.ValidatorID
	}
	return a.PeerID < b.PeerID
}

// Shard is a contiguous byte range of a blob, stored and served as a P2P
// unit. Invariant: concatenating shards in ShardID order reproduces the
// original blob bytes.
type Shard struct {
	BlobHash common.Hash
	ShardID  uint16
	Data     []byte
	Size     uint64
}

// EncodeMetadata SCALE-encodes a Metadata for persistence or wire transfer.
func EncodeMetadata(m Metadata) []byte {
	e := scale.NewEncoder()
	e.PutFixedBytes(m.Hash[:])
	e.PutUint64(m.Size)
	e.PutUint16(m.NbShards)
	e.PutBytes(m.Commitments)
	e.PutBool(m.IsNotified)
	e.PutUint64(m.ExpiresAt)
	e.PutFixedBytes(m.FinalizedBlockHash[:])
	e.PutUint64(m.FinalizedBlockNumber)

	e.PutCompact(uint64(len(m.Ownership)))
	for shardID, owners := range m.Ownership {
		e.PutUint16(shardID)
		e.PutCompact(uint64(len(owners)))
		for _, o := range owners {
			e.PutUint64(o.ValidatorID)
			e.PutBytes([]byte(o.PeerID))
		}
	}
	return e.Bytes()
}

// DecodeMetadata parses a SCALE-encoded Metadata.
func DecodeMetadata(buf []byte) (Metadata, error) {
	d := scale.NewDecoder(buf)
	m := Metadata{Ownership: make(map[uint16][]Owner)}

	hashBytes, err := d.GetFixedBytes(32)
	if err != nil {
		return Metadata{}, err
	}
	m.Hash = common.BytesToHash(hashBytes)

	if m.Size, err = d.GetUint64(); err != nil {
		return Metadata{}, err
	}
	if m.NbShards, err = d.GetUint16(); err != nil {
		return Metadata{}, err
	}
	if m.Commitments, err = d.GetBytes(); err != nil {
		return Metadata{}, err
	}
	if m.IsNotified, err = d.GetBool(); err != nil {
		return Metadata{}, err
	}
	if m.ExpiresAt, err = d.GetUint64(); err != nil {
		return Metadata{}, err
	}
	fbHash, err := d.GetFixedBytes(32)
	if err != nil {
		return Metadata{}, err
	}
	m.FinalizedBlockHash = common.BytesToHash(fbHash)
	if m.FinalizedBlockNumber, err = d.GetUint64(); err != nil {
		return Metadata{}, err
	}

	nShards, err := d.GetCompact()
	if err != nil {
		return Metadata{}, err
	}
	for i := uint64(0); i < nShards; i++ {
		shardID, err := d.GetUint16()
		if err != nil {
			return Metadata{}, err
		}
		nOwners, err := d.GetCompact()
		if err != nil {
			return Metadata{}, err
		}
		owners := make([]Owner, nOwners)
		for j := range owners {
			vid, err := d.GetUint64()
			if err != nil {
				return Metadata{}, err
			}
			peer, err := d.GetBytes()
			if err != nil {
				return Metadata{}, err
			}
			owners[j] = Owner{ValidatorID: vid, PeerID: string(peer)}
		}
		m.Ownership[shardID] = owners
	}
	return m, nil
}

// EncodeShard SCALE-encodes a Shard for persistence or wire transfer.
func EncodeShard(s Shard) []byte {
	e := scale.NewEncoder()
	e.PutFixedBytes(s.BlobHash[:])
	e.PutUint16(s.ShardID)
	e.PutBytes(s.Data)
	e.PutUint64(s.Size)
	return e.Bytes()
}

// DecodeShard parses a SCALE-encoded Shard.
func DecodeShard(buf []byte) (Shard, error) {
	d := scale.NewDecoder(buf)
	hashBytes, err := d.GetFixedBytes(32)
	if err != nil {
		return Shard{}, err
	}
	s := Shard{BlobHash: common.BytesToHash(hashBytes)}
	if s.ShardID, err = d.GetUint16(); err != nil {
		return Shard{}, err
	}
	if s.Data, err = d.GetBytes(); err != nil {
		return Shard{}, err
	}
	if s.Size, err = d.GetUint64(); err != nil {
		return Shard{}, err
	}
	return s, nil
}
