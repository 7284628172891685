package blob

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/crypto"
	"github.com/availproject/avail-da/errs"
	"github.com/availproject/avail-da/kate"
)

// MetadataCall is the decoded DataAvailability::submit_blob_metadata call
// carried by a metadata extrinsic.
type MetadataCall struct {
	BlobHash    common.Hash
	Size        uint64
	Commitments []byte
}

// RuntimeExtrinsic abstracts the signed extrinsic decoded from a metadata
// transaction, validated and dispatched by the runtime this node runs
// against. Implemented by the node's transaction-pool integration.
type RuntimeExtrinsic interface {
	// Validate checks signature, nonce and weight against the runtime.
	// Returns a non-nil error if the runtime rejects the extrinsic.
	Validate() error
	// Call returns the decoded submit_blob_metadata call, or ok=false if
	// the extrinsic carries a different call.
	Call() (call MetadataCall, ok bool)
}

// Runtime decodes raw metadata-tx bytes into a RuntimeExtrinsic and accepts
// admitted extrinsics into the transaction pool.
type Runtime interface {
	DecodeExtrinsic(raw []byte) (RuntimeExtrinsic, error)
	SubmitToPool(raw []byte) error
}

// Announcer publishes accepted blob metadata to the gossip plane.
type Announcer interface {
	AnnounceBlob(meta Metadata) error
}

// GridConfig is the runtime-configured grid shape used to recompute
// commitments during admission.
type GridConfig = kate.GridConfig

// Admitter implements the blob_submitBlob RPC boundary (spec.md §4.9).
type Admitter struct {
	Runtime  Runtime
	Backend  *crypto.KZGBackend
	GridCfg  GridConfig
	Announce Announcer
}

// SubmitBlob runs the seven-step admission protocol. On success the blob is
// persisted by the caller's store (not this function's concern), announced
// on the gossip plane, and the metadata extrinsic is enqueued into the pool.
func (a *Admitter) SubmitBlob(metadataTx, blobBytes []byte) error {
	// 1. reject empty inputs.
	if len(blobBytes) == 0 {
		return errs.New(errs.EmptyInput, "blob cannot be empty")
	}
	if len(metadataTx) == 0 {
		return errs.New(errs.EmptyInput, "metadata tx cannot be empty")
	}

	// 2. decode the signed extrinsic.
	extrinsic, err := a.Runtime.DecodeExtrinsic(metadataTx)
	if err != nil {
		return errs.Wrap(errs.MalformedMetadata, err, "failed to decode metadata extrinsic")
	}

	// 3. runtime validation (signature, nonce, weight).
	if err := extrinsic.Validate(); err != nil {
		return errs.Wrap(errs.RuntimeRejected, err, "metadata extrinsic rejected by runtime")
	}

	// 4. must be a submit_blob_metadata call.
	call, ok := extrinsic.Call()
	if !ok {
		return errs.New(errs.WrongCall, "metadata extrinsic must be DataAvailability.submit_blob_metadata")
	}

	// 5. hash and size must match the blob bytes.
	wantHash := crypto.Keccak256Hash(blobBytes)
	if call.BlobHash != wantHash {
		return errs.New(errs.HashMismatch, "blob_hash %x != keccak256(blob) %x", call.BlobHash, wantHash)
	}
	if call.Size != uint64(len(blobBytes)) {
		return errs.New(errs.SizeMismatch, "metadata size %d != blob length %d", call.Size, len(blobBytes))
	}

	// 6. recompute commitments and compare byte-for-byte.
	commitments, err := recomputeCommitments(blobBytes, a.GridCfg, a.Backend)
	if err != nil {
		return err
	}
	if !bytesEqual(commitments, call.Commitments) {
		return errs.New(errs.CommitmentMismatch, "recomputed commitments do not match metadata")
	}

	// 7. announce and enqueue.
	meta := Metadata{
		Hash:        call.BlobHash,
		Size:        call.Size,
		NbShards:    NbShardsFromSize(call.Size),
		Commitments: call.Commitments,
	}
	if a.Announce != nil {
		if err := a.Announce.AnnounceBlob(meta); err != nil {
			return errs.Wrap(errs.Timeout, err, "failed to announce blob")
		}
	}
	if err := a.Runtime.SubmitToPool(metadataTx); err != nil {
		return errs.Wrap(errs.RuntimeRejected, err, "failed to enqueue metadata extrinsic")
	}
	return nil
}

// SubmitData implements the legacy small-payload path: it performs the
// commitment check inline instead of going through blob admission, and
// returns the recomputed commitments for the caller to embed directly into
// the extrinsic it builds.
func (a *Admitter) SubmitData(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errs.New(errs.EmptyInput, "data cannot be empty")
	}
	return recomputeCommitments(data, a.GridCfg, a.Backend)
}

func recomputeCommitments(blobBytes []byte, cfg GridConfig, backend *crypto.KZGBackend) ([]byte, error) {
	scalars, err := kate.Pad(blobBytes)
	if err != nil {
		return nil, err
	}
	cg, err := kate.BuildCommittedGrid([]kate.AppScalars{{AppID: 0, Scalars: scalars}}, cfg, backend)
	if err != nil {
		return nil, err
	}
	return kate.CommitmentBytes(cg.Commitments), nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ShardSize is the fixed shard unit size (bytes) blobs are partitioned into
// for P2P dissemination and storage.
const ShardSize = 512 * 1024

// NbShardsFromSize returns ceil(size / ShardSize).
func NbShardsFromSize(size uint64) uint16 {
	n := (size + ShardSize - 1) / ShardSize
	if n > 0xFFFF {
		n = 0xFFFF
	}
	return uint16(n)
}
