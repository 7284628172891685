// Package store implements the shard store (spec.md §4.10): an embedded
// key-value store for blob metadata, shards, and per-blob retry counters,
// backed by Pebble. Grounded on
// vocdoni-davinci-node/db/pebbledb/pebledb.go's Pebble wrapping pattern.
package store

import (
	"encoding/binary"
	"errors"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/blob"
	"github.com/availproject/avail-da/errs"
)

// Column-family key prefixes. Pebble has no native column families, so
// each is its own byte-prefixed keyspace within one LSM tree.
var (
	prefixMetadata = []byte{0x01}
	prefixShards   = []byte{0x02}
	prefixRetry    = []byte{0x03}
)

// Store is the Pebble-backed shard store.
type Store struct {
	db *pebble.DB
}

// Open creates or opens a Pebble database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errs.Wrap(errs.WriteFailed, err, "creating store directory %s", path)
	}
	db, err := pebble.Open(path, &pebble.Options{
		Levels: []pebble.LevelOptions{{Compression: pebble.SnappyCompression}},
	})
	if err != nil {
		return nil, errs.Wrap(errs.Corrupted, err, "opening pebble store at %s", path)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func metadataKey(hash common.Hash) []byte {
	return append(append([]byte{}, prefixMetadata...), hash[:]...)
}

func shardKey(hash common.Hash, shardID uint16) []byte {
	k := append([]byte{}, prefixShards...)
	k = append(k, hash[:]...)
	var idBuf [2]byte
	binary.BigEndian.PutUint16(idBuf[:], shardID)
	return append(k, idBuf[:]...)
}

func shardPrefix(hash common.Hash) []byte {
	return append(append([]byte{}, prefixShards...), hash[:]...)
}

func retryKey(hash common.Hash) []byte {
	return append(append([]byte{}, prefixRetry...), hash[:]...)
}

// PutMetadata writes a blob's metadata.
func (s *Store) PutMetadata(meta blob.Metadata) error {
	if err := s.db.Set(metadataKey(meta.Hash), blob.EncodeMetadata(meta), pebble.Sync); err != nil {
		return errs.Wrap(errs.WriteFailed, err, "put metadata for %x", meta.Hash)
	}
	return nil
}

// GetMetadata reads a blob's metadata, or errs.NotFound if absent.
func (s *Store) GetMetadata(hash common.Hash) (blob.Metadata, error) {
	v, closer, err := s.db.Get(metadataKey(hash))
	if errors.Is(err, pebble.ErrNotFound) {
		return blob.Metadata{}, errs.New(errs.NotFound, "no metadata for blob %x", hash)
	}
	if err != nil {
		return blob.Metadata{}, errs.Wrap(errs.Corrupted, err, "reading metadata for %x", hash)
	}
	defer closer.Close()

	meta, err := blob.DecodeMetadata(v)
	if err != nil {
		return blob.Metadata{}, errs.Wrap(errs.Corrupted, err, "decoding metadata for %x", hash)
	}
	return meta, nil
}

// PutShards atomically writes a batch of shards for one blob.
func (s *Store) PutShards(shards []blob.Shard) error {
	if len(shards) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, sh := range shards {
		if err := batch.Set(shardKey(sh.BlobHash, sh.ShardID), blob.EncodeShard(sh), nil); err != nil {
			return errs.Wrap(errs.WriteFailed, err, "staging shard %d of blob %x", sh.ShardID, sh.BlobHash)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errs.Wrap(errs.WriteFailed, err, "committing shard batch")
	}
	return nil
}

// GetShard reads one shard, or errs.NotFound if absent.
func (s *Store) GetShard(hash common.Hash, shardID uint16) (blob.Shard, error) {
	v, closer, err := s.db.Get(shardKey(hash, shardID))
	if errors.Is(err, pebble.ErrNotFound) {
		return blob.Shard{}, errs.New(errs.NotFound, "no shard %d for blob %x", shardID, hash)
	}
	if err != nil {
		return blob.Shard{}, errs.Wrap(errs.Corrupted, err, "reading shard %d for %x", shardID, hash)
	}
	defer closer.Close()

	sh, err := blob.DecodeShard(v)
	if err != nil {
		return blob.Shard{}, errs.Wrap(errs.Corrupted, err, "decoding shard %d for %x", shardID, hash)
	}
	return sh, nil
}

// IncRetry increments and returns the retry counter for a blob.
func (s *Store) IncRetry(hash common.Hash) (uint16, error) {
	key := retryKey(hash)
	var count uint16
	v, closer, err := s.db.Get(key)
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		count = 0
	case err != nil:
		return 0, errs.Wrap(errs.Corrupted, err, "reading retry counter for %x", hash)
	default:
		if len(v) == 2 {
			count = binary.BigEndian.Uint16(v)
		}
		closer.Close()
	}
	count++
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], count)
	if err := s.db.Set(key, buf[:], pebble.Sync); err != nil {
		return 0, errs.Wrap(errs.WriteFailed, err, "writing retry counter for %x", hash)
	}
	return count, nil
}

// Clean atomically deletes a blob's metadata, every shard, and its retry
// counter in a single batch.
func (s *Store) Clean(hash common.Hash) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Delete(metadataKey(hash), nil); err != nil {
		return errs.Wrap(errs.WriteFailed, err, "deleting metadata for %x", hash)
	}
	if err := batch.Delete(retryKey(hash), nil); err != nil {
		return errs.Wrap(errs.WriteFailed, err, "deleting retry counter for %x", hash)
	}

	prefix := shardPrefix(hash)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return errs.Wrap(errs.Corrupted, err, "iterating shards for %x", hash)
	}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := batch.Delete(iter.Key(), nil); err != nil {
			iter.Close()
			return errs.Wrap(errs.WriteFailed, err, "deleting shard for %x", hash)
		}
	}
	if err := iter.Close(); err != nil {
		return errs.Wrap(errs.Corrupted, err, "closing shard iterator for %x", hash)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return errs.Wrap(errs.WriteFailed, err, "committing clean batch for %x", hash)
	}
	return nil
}

// CleanExpired scans METADATA for every blob with expires_at <= currentBlock
// and cleans it. Returns the hashes removed.
func (s *Store) CleanExpired(currentBlock uint64) ([]common.Hash, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixMetadata,
		UpperBound: keyUpperBound(prefixMetadata),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Corrupted, err, "iterating metadata")
	}

	var expired []common.Hash
	for iter.First(); iter.Valid(); iter.Next() {
		meta, err := blob.DecodeMetadata(iter.Value())
		if err != nil {
			continue
		}
		if meta.ExpiresAt <= currentBlock {
			expired = append(expired, meta.Hash)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, errs.Wrap(errs.Corrupted, err, "closing metadata iterator")
	}

	for _, hash := range expired {
		if err := s.Clean(hash); err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func keyUpperBound(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
