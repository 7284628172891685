package p2p

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
)

// Config holds the configuration for a P2P Server.
type Config struct {
	// ListenAddr is the TCP address to listen on (e.g., ":30403").
	ListenAddr string

	// MaxPeers is the maximum number of connected peers.
	MaxPeers int

	// Protocols is the sub-protocol this server runs for each connected
	// peer. Only the first entry is used; additional entries are accepted
	// so callers can pass a slice literal, but a connection multiplexes a
	// single protocol since blob message codes share one namespace
	// (message.go).
	Protocols []Protocol

	// Name is the client identity string sent in the hello handshake.
	Name string

	// NodeID is the local node identifier sent during handshake.
	// If empty, a random ID is generated at start.
	NodeID string

	// ListenPort is the advertised TCP listening port. It is sent in the
	// hello packet as given; it is not derived from ListenAddr.
	ListenPort uint64

	// Dialer is the interface used for outbound connections.
	// If nil, a TCPDialer is used.
	Dialer Dialer

	// Listener is the interface for accepting inbound connections.
	// If nil, a TCPListener is created from ListenAddr.
	Listener Listener

	// DisableHandshake disables the hello handshake, for tests that
	// connect raw transports without performing a handshake exchange.
	DisableHandshake bool
}

// Protocol represents the sub-protocol that runs on top of a connection
// once the handshake completes.
type Protocol struct {
	Name    string
	Version uint
	Length  uint64 // Reserved for future per-protocol code ranges.

	// Run is called for each peer that supports this protocol. It should
	// read/write messages and return when done.
	Run func(peer *Peer, t Transport) error
}

// Server manages TCP connections and peer lifecycle.
type Server struct {
	config   Config
	listener Listener
	dialer   Dialer
	peers    *ManagedPeerSet
	scores   *ScoreMap
	localID  string // Node ID used in handshake.

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// ScoreMap tracks scores for all connected peers.
type ScoreMap struct {
	mu     sync.RWMutex
	scores map[string]*PeerScore
}

// NewScoreMap creates an empty score map.
func NewScoreMap() *ScoreMap {
	return &ScoreMap{scores: make(map[string]*PeerScore)}
}

// Get returns the score for a peer, creating one if it doesn't exist.
func (sm *ScoreMap) Get(id string) *PeerScore {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s, ok := sm.scores[id]; ok {
		return s
	}
	s := NewPeerScore()
	sm.scores[id] = s
	return s
}

// Remove deletes the score for a peer.
func (sm *ScoreMap) Remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.scores, id)
}

// All returns a snapshot of all peer IDs and their current scores.
func (sm *ScoreMap) All() map[string]float64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	result := make(map[string]float64, len(sm.scores))
	for id, s := range sm.scores {
		result[id] = s.Value()
	}
	return result
}

// NewServer creates a new P2P server with the given configuration.
func NewServer(cfg Config) *Server {
	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = 25
	}
	if cfg.Name == "" {
		cfg.Name = "avail-da"
	}
	localID := cfg.NodeID
	if localID == "" {
		localID = randomID()
	}
	return &Server{
		config:  cfg,
		dialer:  cfg.Dialer,
		peers:   NewManagedPeerSet(cfg.MaxPeers),
		scores:  NewScoreMap(),
		localID: localID,
		quit:    make(chan struct{}),
	}
}

// Start begins listening for incoming connections.
func (srv *Server) Start() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.running {
		return errors.New("p2p: server already running")
	}

	if srv.dialer == nil {
		srv.dialer = &TCPDialer{}
	}

	if srv.config.Listener != nil {
		srv.listener = srv.config.Listener
	} else {
		ln, err := net.Listen("tcp", srv.config.ListenAddr)
		if err != nil {
			return fmt.Errorf("p2p: listen error: %w", err)
		}
		srv.listener = NewTCPListener(ln)
	}

	srv.running = true

	srv.wg.Add(1)
	go srv.listenLoop()
	return nil
}

// Stop shuts down the server and disconnects all peers.
func (srv *Server) Stop() {
	srv.mu.Lock()
	if !srv.running {
		srv.mu.Unlock()
		return
	}
	srv.running = false
	close(srv.quit)
	srv.listener.Close()
	srv.mu.Unlock()

	srv.wg.Wait()
	srv.peers.Close()
}

// ListenAddr returns the actual listen address (useful when using ":0").
func (srv *Server) ListenAddr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

// AddPeer dials the given address and adds the connection as a peer.
func (srv *Server) AddPeer(addr string) error {
	ct, err := srv.dialer.Dial(addr)
	if err != nil {
		return err
	}

	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		srv.setupConn(ct, true)
	}()
	return nil
}

// PeerCount returns the number of connected peers.
func (srv *Server) PeerCount() int {
	return srv.peers.Len()
}

// PeersList returns a snapshot of connected peers.
func (srv *Server) PeersList() []*Peer {
	return srv.peers.Peers()
}

// Scores returns the server's peer score map.
func (srv *Server) Scores() *ScoreMap {
	return srv.scores
}

// PeerScore returns the score tracker for a connected peer.
func (srv *Server) PeerScore(id string) *PeerScore {
	return srv.scores.Get(id)
}

// Running returns whether the server is currently running.
func (srv *Server) Running() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.running
}

func (srv *Server) listenLoop() {
	defer srv.wg.Done()

	for {
		ct, err := srv.listener.Accept()
		if err != nil {
			select {
			case <-srv.quit:
				return
			default:
				log.Printf("p2p: accept error: %v", err)
				continue
			}
		}

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			srv.setupConn(ct, false)
		}()
	}
}

// localHello builds the local hello packet from the server's configuration.
func (srv *Server) localHello() *HelloPacket {
	caps := make([]Cap, len(srv.config.Protocols))
	for i, p := range srv.config.Protocols {
		caps[i] = Cap{Name: p.Name, Version: p.Version}
	}
	return &HelloPacket{
		Version:    baseProtocolVersion,
		Name:       srv.config.Name,
		Caps:       caps,
		ListenPort: srv.config.ListenPort,
		ID:         srv.localID,
	}
}

// setupConn handles a new connection: performs handshake, creates a peer,
// and runs the configured protocol.
func (srv *Server) setupConn(ct ConnTransport, dialed bool) {
	var tr Transport = ct

	var peerID string
	var peerCaps []Cap

	if !srv.config.DisableHandshake {
		remoteHello, err := PerformHandshake(tr, srv.localHello())
		if err != nil {
			tr.Close()
			return
		}
		peerID = remoteHello.ID
		peerCaps = remoteHello.Caps
	} else {
		peerID = randomID()
	}

	peer := NewPeer(peerID, ct.RemoteAddr(), peerCaps)
	score := srv.scores.Get(peerID)

	if err := srv.peers.Add(peer); err != nil {
		tr.Close()
		return
	}

	score.HandshakeOK()

	defer func() {
		srv.peers.Remove(peer.ID())
		srv.scores.Remove(peer.ID())
		tr.Close()
	}()

	protos := srv.config.Protocols
	if len(protos) == 0 || protos[0].Run == nil {
		// No protocol handler; wait until quit.
		<-srv.quit
		return
	}

	err := protos[0].Run(peer, tr)
	if err != nil {
		score.BadResponse()
	} else {
		score.GoodResponse()
	}
}

// randomID generates a random 32-byte hex-encoded peer ID.
func randomID() string {
	var b [32]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
