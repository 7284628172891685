package p2p

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrPeerManagerClosed is returned when operating on a closed PeerManager.
	ErrPeerManagerClosed = errors.New("p2p: peer manager closed")
)

// PeerManager tracks connected peers and their status, providing methods
// for peer lifecycle management and message broadcasting.
type PeerManager struct {
	mu     sync.RWMutex
	peers  map[string]*managedPeer
	closed bool
}

// managedPeer wraps a Peer with its associated transport for sending messages.
type managedPeer struct {
	Peer      *Peer
	Transport Transport
}

// NewPeerManager creates a new PeerManager.
func NewPeerManager() *PeerManager {
	return &PeerManager{
		peers: make(map[string]*managedPeer),
	}
}

// AddPeer registers a peer and its transport with the manager.
// Returns ErrPeerAlreadyRegistered if the peer is already tracked.
func (pm *PeerManager) AddPeer(p *Peer, tr Transport) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.closed {
		return ErrPeerManagerClosed
	}
	if _, exists := pm.peers[p.ID()]; exists {
		return ErrPeerAlreadyRegistered
	}
	pm.peers[p.ID()] = &managedPeer{Peer: p, Transport: tr}
	return nil
}

// RemovePeer unregisters a peer from the manager.
// Returns ErrPeerNotRegistered if the peer is not tracked.
func (pm *PeerManager) RemovePeer(id string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.closed {
		return ErrPeerManagerClosed
	}
	if _, exists := pm.peers[id]; !exists {
		return ErrPeerNotRegistered
	}
	delete(pm.peers, id)
	return nil
}

// Peer returns the peer with the given ID, or nil if not found.
func (pm *PeerManager) Peer(id string) *Peer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if mp, ok := pm.peers[id]; ok {
		return mp.Peer
	}
	return nil
}

// Transport returns the transport registered for a peer, or nil if the
// peer is not tracked.
func (pm *PeerManager) Transport(id string) Transport {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if mp, ok := pm.peers[id]; ok {
		return mp.Transport
	}
	return nil
}

// Peers returns a snapshot of all managed peers.
func (pm *PeerManager) Peers() []*Peer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	list := make([]*Peer, 0, len(pm.peers))
	for _, mp := range pm.peers {
		list = append(list, mp.Peer)
	}
	return list
}

// Len returns the number of managed peers.
func (pm *PeerManager) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.peers)
}

// BestPeer returns the peer reporting the highest shard count, or nil if empty.
func (pm *PeerManager) BestPeer() *Peer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var best *Peer
	bestCount := -1

	for _, mp := range pm.peers {
		count := mp.Peer.ShardCount()
		if count > bestCount {
			best = mp.Peer
			bestCount = count
		}
	}
	return best
}

// BroadcastBlobGossip sends a raw blob notification (a SCALE-encoded
// blob.Notification) to all peers except those listed in the exclude set.
// Each forwarded-to peer's latest-blob/shard-count bookkeeping is updated to
// reflect the announcement.
func (pm *PeerManager) BroadcastBlobGossip(blobHash common.Hash, shardCount int, raw []byte, exclude map[string]bool) []error {
	msg, err := EncodeMessage(BlobGossipMsg, raw)
	if err != nil {
		return []error{err}
	}

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var errs []error
	for id, mp := range pm.peers {
		if exclude != nil && exclude[id] {
			continue
		}
		wireMsg := Msg{
			Code:    msg.Code,
			Size:    msg.Size,
			Payload: msg.Payload,
		}
		if err := mp.Transport.WriteMsg(wireMsg); err != nil {
			errs = append(errs, err)
			continue
		}
		mp.Peer.SetLatestBlob(blobHash, shardCount)
	}
	return errs
}

// ForwardRaw writes a pre-framed message code and payload to every peer
// except those listed in exclude, without touching peer bookkeeping. Used
// by the gossip Run loop to relay a notification to BlobGossipHandler's
// selected forward targets.
func (pm *PeerManager) ForwardRaw(code uint64, payload []byte, exclude map[string]bool) []error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var errs []error
	for id, mp := range pm.peers {
		if exclude != nil && exclude[id] {
			continue
		}
		msg := Msg{Code: code, Size: uint32(len(payload)), Payload: payload}
		if err := mp.Transport.WriteMsg(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Close marks the manager as closed and clears all peers.
func (pm *PeerManager) Close() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.closed = true
	for k := range pm.peers {
		delete(pm.peers, k)
	}
}
