package node

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/blob"
	"github.com/availproject/avail-da/scale"
)

// metadataExtrinsic is the SCALE-encoded submit_blob_metadata call this
// node's dev runtime accepts as a metadata tx: blob_hash, size, commitments.
// A production deployment decodes a real signed Substrate extrinsic here;
// this node ships a direct call-decoder so the DA pipeline is exercisable
// without a separate chain client.
type metadataExtrinsic struct {
	call blob.MetadataCall
}

func (e metadataExtrinsic) Validate() error {
	return nil
}

func (e metadataExtrinsic) Call() (blob.MetadataCall, bool) {
	return e.call, true
}

// devRuntime implements blob.Runtime by decoding metadata txs directly
// (no signature or nonce checks) and holding submitted extrinsics in a
// local pool for later retrieval.
type devRuntime struct {
	mu   sync.Mutex
	pool [][]byte
}

func newDevRuntime() *devRuntime {
	return &devRuntime{}
}

func (r *devRuntime) DecodeExtrinsic(raw []byte) (blob.RuntimeExtrinsic, error) {
	d := scale.NewDecoder(raw)
	hashBytes, err := d.GetFixedBytes(32)
	if err != nil {
		return nil, err
	}
	size, err := d.GetUint64()
	if err != nil {
		return nil, err
	}
	commitments, err := d.GetBytes()
	if err != nil {
		return nil, err
	}
	return metadataExtrinsic{call: blob.MetadataCall{
		BlobHash:    common.BytesToHash(hashBytes),
		Size:        size,
		Commitments: commitments,
	}}, nil
}

func (r *devRuntime) SubmitToPool(raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool = append(r.pool, raw)
	return nil
}

// EncodeMetadataTx SCALE-encodes a submit_blob_metadata call into the wire
// form devRuntime.DecodeExtrinsic expects.
func EncodeMetadataTx(call blob.MetadataCall) []byte {
	e := scale.NewEncoder()
	e.PutFixedBytes(call.BlobHash[:])
	e.PutUint64(call.Size)
	e.PutBytes(call.Commitments)
	return e.Bytes()
}

// Pending returns and clears the extrinsics accepted into the dev
// runtime's pool since the last call.
func (r *devRuntime) Pending() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.pool
	r.pool = nil
	return pending
}
