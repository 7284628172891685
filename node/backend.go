package node

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/blob"
	blobstore "github.com/availproject/avail-da/blob/store"
	"github.com/availproject/avail-da/crypto"
	"github.com/availproject/avail-da/errs"
	"github.com/availproject/avail-da/kate"
	"github.com/availproject/avail-da/merkle"
	"github.com/availproject/avail-da/rpc"
)

// blockGrid caches the committed grid and submitted-data leaf hashes for
// one finalized block, enough to answer kate_queryProof and
// kate_queryDataProof without recomputing the grid from scratch.
type blockGrid struct {
	grid   *kate.CommittedGrid
	cfg    kate.GridConfig
	leaves []common.Hash
}

// nodeBackend adapts the Node to the rpc.Backend interface for the four DA
// JSON-RPC methods (spec.md §6). SubmitBlob goes to the admitter; the three
// query methods read a per-block committed-grid cache that only recordBlock
// fills. Nothing in the node calls recordBlock, so those queries return
// NotFound for every block that was not recorded.
type nodeBackend struct {
	node *Node

	kzg *crypto.KZGBackend

	mu     sync.RWMutex
	blocks map[common.Hash]*blockGrid
}

func newNodeBackend(n *Node, kzg *crypto.KZGBackend) rpc.Backend {
	return &nodeBackend{
		node:   n,
		kzg:    kzg,
		blocks: make(map[common.Hash]*blockGrid),
	}
}

// recordBlock registers the committed grid and submitted-data leaves for a
// finalized block, making it available to later RPC queries.
func (b *nodeBackend) recordBlock(blockHash common.Hash, grid *kate.CommittedGrid, cfg kate.GridConfig, leaves []common.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks[blockHash] = &blockGrid{grid: grid, cfg: cfg, leaves: leaves}
}

func (b *nodeBackend) SubmitBlob(metadataTx, data []byte) error {
	return b.node.admitter.SubmitBlob(metadataTx, data)
}

func (b *nodeBackend) QueryProof(cells []rpc.CellRef, blockHash string) ([]rpc.CellProof, error) {
	hash := common.HexToHash(blockHash)
	b.mu.RLock()
	blk, ok := b.blocks[hash]
	b.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.NotFound, "no committed grid for block %s", blockHash)
	}

	out := make([]rpc.CellProof, 0, len(cells))
	for _, c := range cells {
		cell, err := blk.grid.ProveCell(int(c.Row), int(c.Col), b.kzg)
		if err != nil {
			return nil, err
		}
		out = append(out, rpc.CellProof{Scalar: [32]byte(cell.Scalar), Proof: [48]byte(cell.Proof)})
	}
	return out, nil
}

func (b *nodeBackend) QueryDataProof(txIndex uint32, blockHash string) (rpc.DataProof, error) {
	hash := common.HexToHash(blockHash)
	b.mu.RLock()
	blk, ok := b.blocks[hash]
	b.mu.RUnlock()
	if !ok {
		return rpc.DataProof{}, errs.New(errs.NotFound, "no submitted-data leaves for block %s", blockHash)
	}

	proof, err := merkle.ProveIndex(blk.leaves, int(txIndex))
	if err != nil {
		return rpc.DataProof{}, err
	}

	siblings := make([]string, len(proof.Siblings))
	for i, s := range proof.Siblings {
		siblings[i] = s.Hex()
	}

	return rpc.DataProof{
		Roots: rpc.DataProofRoots{
			DataRoot: proof.Root.Hex(),
		},
		Proof:          siblings,
		Leaf:           proof.Leaf.Hex(),
		LeafIndex:      uint32(proof.LeafIndex),
		NumberOfLeaves: uint32(proof.NumberOfLeaves),
	}, nil
}

func (b *nodeBackend) QueryBlockLength(blockHash string) (rpc.KateQueryBlockLengthResult, error) {
	hash := common.HexToHash(blockHash)
	b.mu.RLock()
	blk, ok := b.blocks[hash]
	b.mu.RUnlock()
	if !ok {
		return rpc.KateQueryBlockLengthResult{}, errs.New(errs.NotFound, "no committed grid for block %s", blockHash)
	}
	return rpc.KateQueryBlockLengthResult{
		Rows:      uint32(blk.cfg.MaxRows),
		Cols:      uint32(blk.cfg.MaxCols),
		ChunkSize: uint32(kate.PaddedLen(1)),
	}, nil
}

// shardStoreAnnouncer adapts the shard store to blob.Announcer: on a
// successful admission it persists the metadata so the sampler and
// shard-request handlers can serve it immediately.
type shardStoreAnnouncer struct {
	store *blobstore.Store
}

func (a *shardStoreAnnouncer) AnnounceBlob(meta blob.Metadata) error {
	if err := a.store.PutMetadata(meta); err != nil {
		return fmt.Errorf("persist announced blob: %w", err)
	}
	return nil
}
