// Package p2p implements the blob dissemination network layer: peer
// connections and gossip and request/response wire protocols for a
// data-availability node.
//
// Key interfaces for protocol handler integration:
//   - PeerHandler: per-peer protocol handler callback
//   - MsgReadWriter: per-protocol message I/O
//   - PeerInfo: read-only peer metadata
package p2p

// MsgReadWriter combines message reading and writing for a single sub-protocol.
// Protocol handlers receive this interface to exchange messages with a peer.
type MsgReadWriter interface {
	// ReadMsg reads the next message for this protocol. The message code is
	// relative to the protocol (starts at 0). Blocks until a message arrives
	// or the connection is closed.
	ReadMsg() (Msg, error)

	// WriteMsg sends a message to the remote peer. The message code should be
	// relative to the protocol.
	WriteMsg(msg Msg) error
}

// PeerHandler is a callback interface for handling one connected peer.
// Server does not accept a PeerHandler: its Config takes Protocols, and it
// calls Protocol.Run after the handshake.
type PeerHandler interface {
	// HandlePeer is called when a new peer connects with a compatible protocol.
	// The handler should exchange messages using rw and return when done.
	// Returning an error disconnects the peer.
	HandlePeer(peer *Peer, rw MsgReadWriter) error
}

// PeerHandlerFunc is an adapter to allow use of ordinary functions as PeerHandler.
type PeerHandlerFunc func(peer *Peer, rw MsgReadWriter) error

// HandlePeer calls f(peer, rw).
func (f PeerHandlerFunc) HandlePeer(peer *Peer, rw MsgReadWriter) error {
	return f(peer, rw)
}

// PeerInfo provides read-only information about a connected peer.
// Used by higher-level code (gossip, shard fetching) to query peer state.
type PeerInfo interface {
	// ID returns the peer's unique identifier.
	ID() string

	// RemoteAddr returns the peer's remote network address.
	RemoteAddr() string

	// Caps returns the peer's advertised capabilities.
	Caps() []Cap

	// Version returns the negotiated protocol version.
	Version() uint32
}

// PeerSetReader provides read-only access to the set of connected peers.
// This interface allows the blob protocol handler to iterate and query peers
// without managing the underlying connection lifecycle.
type PeerSetReader interface {
	// Peer returns the peer with the given ID, or nil.
	Peer(id string) *Peer

	// Len returns the number of connected peers.
	Len() int

	// Peers returns a snapshot of all connected peers.
	Peers() []*Peer

	// BestPeer returns the peer reporting the highest shard count.
	BestPeer() *Peer
}

// Verify interface compliance at compile time.
var _ PeerHandler = PeerHandlerFunc(nil)
var _ PeerInfo = (*Peer)(nil)
var _ PeerSetReader = (*PeerSet)(nil)
