// Package p2p implements the blob dissemination subsystem (spec.md §4.11):
// a gossip plane that announces blob metadata and shard-ownership receipts,
// and a request/response plane that serves shards and byte-range cells.
package p2p

import (
	"errors"
	"sync"

	"github.com/availproject/avail-da/blob"
)

// BlobGossipTopicName is the gossip topic name blob notifications are published on.
const BlobGossipTopicName = "/blob/gossip/1"

// MaxNotificationSize bounds inbound gossip messages; oversized messages
// are rejected and penalize the sending peer.
const MaxNotificationSize = 256 * 1024

// Gossip errors.
var (
	ErrGossipOversized = errors.New("blob gossip: message exceeds MaxNotificationSize")
	ErrGossipEmptyPeer = errors.New("blob gossip: empty peer ID")
)

// BlobGossipConfig configures the blob gossip handler.
type BlobGossipConfig struct {
	QueueSize int // bounded channel capacity; oldest entry is dropped on overflow
	MaxPeers  int
}

// DefaultBlobGossipConfig returns the spec's default bounded-channel size.
func DefaultBlobGossipConfig() BlobGossipConfig {
	return BlobGossipConfig{QueueSize: 1024, MaxPeers: 50}
}

// BlobGossipStats tracks blob gossip statistics.
type BlobGossipStats struct {
	Received   uint64
	Propagated uint64
	Dropped    uint64 // dropped due to queue overflow (QueueFull)
	Oversized  uint64
	Peers      int
}

// QueueFullHandler is invoked when the bounded processing queue overflows
// and the oldest pending notification is dropped.
type QueueFullHandler func(dropped blob.Notification)

// BlobGossipHandler manages the /blob/gossip/1 topic: on receipt it forwards
// to peers first, then processes locally and discards — propagation
// priority over content verification caching, per spec.md §4.11. All
// methods are safe for concurrent use.
type BlobGossipHandler struct {
	mu     sync.Mutex
	config BlobGossipConfig

	peers map[string]bool
	queue []blob.Notification

	onQueueFull QueueFullHandler
	stats       BlobGossipStats

	// Ownership observed via ShardReceived notifications: blobHash -> shardID -> owners.
	ownership map[[32]byte]map[uint16][]blob.Owner
}

// NewBlobGossipHandler creates a gossip handler with the given config.
func NewBlobGossipHandler(config BlobGossipConfig) *BlobGossipHandler {
	return &BlobGossipHandler{
		config:    config,
		peers:     make(map[string]bool),
		ownership: make(map[[32]byte]map[uint16][]blob.Owner),
	}
}

// SetQueueFullHandler registers the callback invoked when the processing
// queue overflows and an entry is dropped.
func (h *BlobGossipHandler) SetQueueFullHandler(fn QueueFullHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onQueueFull = fn
}

// HandleMessage receives a raw gossip message, enforcing the size bound,
// then enqueues it for forward-then-process handling. Returns the peers the
// message should be forwarded to.
func (h *BlobGossipHandler) HandleMessage(raw []byte) ([]string, error) {
	if len(raw) > MaxNotificationSize {
		h.mu.Lock()
		h.stats.Oversized++
		h.mu.Unlock()
		return nil, ErrGossipOversized
	}

	n, err := blob.DecodeNotification(raw)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.Received++
	targets := h.selectForwardTargetsLocked()

	// Enqueue for local processing; drop the oldest on overflow.
	if h.config.QueueSize > 0 && len(h.queue) >= h.config.QueueSize {
		dropped := h.queue[0]
		h.queue = h.queue[1:]
		h.stats.Dropped++
		if h.onQueueFull != nil {
			h.onQueueFull(dropped)
		}
	}
	h.queue = append(h.queue, n)

	return targets, nil
}

// ProcessNext processes and discards the oldest queued notification,
// merging ownership from ShardReceived messages. Returns false if the
// queue is empty.
func (h *BlobGossipHandler) ProcessNext() (blob.Notification, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.queue) == 0 {
		return blob.Notification{}, false
	}
	n := h.queue[0]
	h.queue = h.queue[1:]

	if n.Tag == blob.NotifyShardReceived && n.ShardReceived != nil {
		r := n.ShardReceived
		byShard, ok := h.ownership[r.BlobHash]
		if !ok {
			byShard = make(map[uint16][]blob.Owner)
			h.ownership[r.BlobHash] = byShard
		}
		byShard[r.ShardID] = mergeOwner(byShard[r.ShardID], r.Owner)
	}

	h.stats.Propagated++
	return n, true
}

func mergeOwner(owners []blob.Owner, o blob.Owner) []blob.Owner {
	for _, existing := range owners {
		if existing == o {
			return owners
		}
	}
	owners = append(owners, o)
	for i := 1; i < len(owners); i++ {
		for j := i; j > 0 && ownerLess(owners[j], owners[j-1]); j-- {
			owners[j], owners[j-1] = owners[j-1], owners[j]
		}
	}
	return owners
}

func ownerLess(a, b blob.Owner) bool {
	if a.ValidatorID != b.ValidatorID {
		return a.ValidatorID < b.ValidatorID
	}
	return a.PeerID < b.PeerID
}

// Ownership returns the merged ownership set observed for a shard.
func (h *BlobGossipHandler) Ownership(blobHash [32]byte, shardID uint16) []blob.Owner {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]blob.Owner(nil), h.ownership[blobHash][shardID]...)
}

// selectForwardTargetsLocked returns every connected peer; mu must be held.
func (h *BlobGossipHandler) selectForwardTargetsLocked() []string {
	targets := make([]string, 0, len(h.peers))
	for p := range h.peers {
		targets = append(targets, p)
	}
	return targets
}

// AddPeer registers a new peer for blob gossip.
func (h *BlobGossipHandler) AddPeer(peerID string) error {
	if peerID == "" {
		return ErrGossipEmptyPeer
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.config.MaxPeers > 0 && len(h.peers) >= h.config.MaxPeers {
		return nil
	}
	h.peers[peerID] = true
	h.stats.Peers = len(h.peers)
	return nil
}

// RemovePeer unregisters a peer.
func (h *BlobGossipHandler) RemovePeer(peerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, peerID)
	h.stats.Peers = len(h.peers)
}

// Stats returns a snapshot of the gossip statistics.
func (h *BlobGossipHandler) Stats() BlobGossipStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// QueueLen returns the number of notifications awaiting local processing.
func (h *BlobGossipHandler) QueueLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}
