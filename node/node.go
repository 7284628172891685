package node

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/rs/zerolog"

	"github.com/availproject/avail-da/blob"
	blobstore "github.com/availproject/avail-da/blob/store"
	"github.com/availproject/avail-da/crypto"
	"github.com/availproject/avail-da/kate"
	avlog "github.com/availproject/avail-da/log"
	"github.com/availproject/avail-da/p2p"
	"github.com/availproject/avail-da/rpc"
)

// reputationDecayInterval is how often the peer reputation system's
// category scores decay toward their initial value and export metrics.
const reputationDecayInterval = 5 * time.Minute

// Node is the top-level data-availability node that manages all
// subsystems: the shard store, the blob admitter, the gossip and
// req/resp planes, and the JSON-RPC server.
type Node struct {
	config *Config

	// Subsystems.
	store       *blobstore.Store
	admitter    *blob.Admitter
	runtime     *devRuntime
	kzg         *crypto.KZGBackend
	gossip      *p2p.BlobGossipHandler
	reqresp     *p2p.ReqRespProtocol
	peers       *p2p.PeerManager
	p2pServer   *p2p.Server
	reputation  *p2p.PeerRep
	rpcServer   *http.Server
	rpcHandler  *rpc.Server

	log zerolog.Logger

	respMu     sync.Mutex
	respQueues map[string][]chan blob.Response

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// New creates a new Node with the given configuration. It initializes
// all subsystems but does not start any network services.
func New(config *Config) (*Node, error) {
	if config == nil {
		c := DefaultConfig()
		config = &c
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	n := &Node{
		config:     config,
		stop:       make(chan struct{}),
		log:        avlog.New("node"),
		respQueues: make(map[string][]chan blob.Response),
	}

	if err := config.InitDataDir(); err != nil {
		return nil, fmt.Errorf("init datadir: %w", err)
	}

	// Initialize the shard store.
	store, err := blobstore.Open(config.ResolvePath("shardstore"))
	if err != nil {
		return nil, fmt.Errorf("open shard store: %w", err)
	}
	n.store = store

	// Initialize the KZG backend from the configured SRS, or a dev SRS
	// sized to the grid when none is configured.
	var srs *kzg.SRS
	if config.SRSPath != "" {
		srs, err = crypto.LoadSRS(config.SRSPath)
	} else {
		srs, err = crypto.NewDevSRS(uint64(config.MaxCols))
	}
	if err != nil {
		return nil, fmt.Errorf("build SRS: %w", err)
	}
	n.kzg = crypto.NewKZGBackend(srs)

	// Initialize the gossip and req/resp planes.
	n.gossip = p2p.NewBlobGossipHandler(p2p.DefaultBlobGossipConfig())
	n.reqresp = p2p.NewReqRespProtocol(p2p.ReqRespConfig{
		ConcurrentRequests: config.ConcurrentRequests,
	})
	n.reqresp.HandleRequest(n.handleShardRequest)
	n.reqresp.SetSendFunc(n.sendShardRequest)

	// Initialize the connection-level P2P server. A single Run loop
	// dispatches every blob message code: gossip notifications relay
	// through the PeerManager, shard/cell requests flow through the
	// req/resp plane (spec.md §4.11).
	n.peers = p2p.NewPeerManager()
	n.reputation = p2p.NewPeerRep(p2p.DefaultRepConfig())
	n.p2pServer = p2p.NewServer(p2p.Config{
		ListenAddr: config.P2PAddr(),
		MaxPeers:   config.MaxPeers,
		Name:       config.Name,
		Protocols: []p2p.Protocol{
			{Name: "blob", Version: p2p.BlobProtocolVersion, Run: n.runBlobProtocol},
		},
	})

	// Initialize the blob admitter.
	n.runtime = newDevRuntime()
	n.admitter = &blob.Admitter{
		Runtime: n.runtime,
		Backend: n.kzg,
		GridCfg: kate.GridConfig{MaxRows: config.MaxRows, MaxCols: config.MaxCols},
		Announce: &shardStoreAnnouncer{store: n.store},
	}

	// Initialize the JSON-RPC server.
	backend := newNodeBackend(n, n.kzg)
	n.rpcHandler = rpc.NewServer(backend)

	return n, nil
}

// handleShardRequest answers an inbound /blob/req/1 request from the
// shard store: whole shards for ReqShard, byte ranges for ReqCell.
func (n *Node) handleShardRequest(peer string, req blob.Request) (blob.Response, error) {
	switch req.Tag {
	case blob.ReqShard:
		shards := make([]blob.Shard, 0, len(req.ShardRequest.ShardIDs))
		for _, id := range req.ShardRequest.ShardIDs {
			s, err := n.store.GetShard(req.ShardRequest.Hash, id)
			if err != nil {
				continue
			}
			shards = append(shards, s)
		}
		return blob.Response{Tag: blob.ReqShard, Shards: shards}, nil
	case blob.ReqCell:
		cells := make([][]byte, 0, len(req.CellRequest.Cells))
		for _, c := range req.CellRequest.Cells {
			s, err := n.store.GetShard(req.CellRequest.Hash, c.ShardID)
			if err != nil {
				cells = append(cells, nil)
				continue
			}
			end := c.End
			if end > uint64(len(s.Data)) {
				end = uint64(len(s.Data))
			}
			start := c.Start
			if start > end {
				start = end
			}
			cells = append(cells, s.Data[start:end])
		}
		return blob.Response{Tag: blob.ReqCell, Cells: cells}, nil
	default:
		return blob.Response{}, fmt.Errorf("node: unknown request tag %d", req.Tag)
	}
}

// runBlobProtocol is the p2p.Protocol.Run loop for one connected peer. It
// registers the peer with the PeerManager and the gossip handler, then
// dispatches every inbound message by code until the connection closes.
func (n *Node) runBlobProtocol(peer *p2p.Peer, t p2p.Transport) error {
	id := peer.ID()

	if n.reputation.RepIsBanned(id) {
		return fmt.Errorf("node: peer %s is banned", id)
	}

	if err := n.peers.AddPeer(peer, t); err != nil {
		return err
	}
	if err := n.gossip.AddPeer(id); err != nil {
		n.peers.RemovePeer(id)
		return err
	}

	defer func() {
		n.peers.RemovePeer(id)
		n.gossip.RemovePeer(id)
		n.drainPendingResponses(id)
	}()

	for {
		msg, err := t.ReadMsg()
		if err != nil {
			return err
		}

		switch msg.Code {
		case p2p.BlobGossipMsg:
			if _, err := n.gossip.HandleMessage(msg.Payload); err != nil {
				n.penalizeOversized(id, err)
				n.log.Warn().Err(err).Str("peer", id).Msg("rejected gossip notification")
				continue
			}
			n.peers.ForwardRaw(p2p.BlobGossipMsg, msg.Payload, map[string]bool{id: true})

		case p2p.BlobShardReqMsg:
			resp, err := n.reqresp.ProcessIncomingRequest(id, msg.Payload)
			if err != nil {
				n.penalizeOversized(id, err)
				n.log.Warn().Err(err).Str("peer", id).Msg("rejected shard request")
				continue
			}
			payload := blob.EncodeResponse(resp)
			if err := t.WriteMsg(p2p.Msg{Code: p2p.BlobShardRespMsg, Size: uint32(len(payload)), Payload: payload}); err != nil {
				return err
			}

		case p2p.BlobShardRespMsg:
			n.dispatchResponse(id, msg.Payload)

		case p2p.BlobStatusMsg:
			// Network/genesis compatibility check; nothing to validate yet
			// since this node only ever joins its own configured network.

		default:
			n.p2pServer.PeerScore(id).ProtocolMismatch()
			n.reputation.RepAdjustScore(id, p2p.RepCatProtocol, -10)
			n.log.Warn().Str("peer", id).Uint64("code", msg.Code).Msg("unknown blob message code")
		}
	}
}

// penalizeOversized docks a peer's connection score and protocol-category
// reputation when its gossip or req/resp message was rejected for
// exceeding a size bound (spec.md §4.11). Other rejection reasons
// (malformed decode, closed protocol) are logged but don't carry a
// size-specific penalty here.
func (n *Node) penalizeOversized(peer string, err error) {
	if errors.Is(err, p2p.ErrGossipOversized) || errors.Is(err, p2p.ErrReqOversized) {
		n.p2pServer.PeerScore(peer).SizeLimitViolation()
		n.reputation.RepAdjustScore(peer, p2p.RepCatProtocol, -5)
	}
}

// decayReputation periodically decays peer reputation scores toward their
// initial value and refreshes the exported reputation metrics, until the
// node is stopped.
func (n *Node) decayReputation() {
	ticker := time.NewTicker(reputationDecayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.reputation.RepDecayAll()
			n.reputation.RepUpdateMetrics()
		}
	}
}

// sendShardRequest is wired into ReqRespProtocol as its outbound send
// function: it writes req to peer's transport and waits for the matching
// BlobShardRespMsg, correlated in FIFO order per peer.
func (n *Node) sendShardRequest(peer string, req blob.Request) (blob.Response, error) {
	tr := n.peers.Transport(peer)
	if tr == nil {
		return blob.Response{}, fmt.Errorf("node: peer %s not connected", peer)
	}

	ch := make(chan blob.Response, 1)
	n.respMu.Lock()
	n.respQueues[peer] = append(n.respQueues[peer], ch)
	n.respMu.Unlock()

	payload := blob.EncodeRequest(req)
	if err := tr.WriteMsg(p2p.Msg{Code: p2p.BlobShardReqMsg, Size: uint32(len(payload)), Payload: payload}); err != nil {
		return blob.Response{}, err
	}

	resp, ok := <-ch
	if !ok {
		return blob.Response{}, fmt.Errorf("node: peer %s disconnected before responding", peer)
	}
	return resp, nil
}

// dispatchResponse hands a decoded response to the oldest pending request
// for peer. Responses arriving with no pending request are discarded.
func (n *Node) dispatchResponse(peer string, raw []byte) {
	resp, err := blob.DecodeResponse(raw)
	if err != nil {
		n.log.Warn().Err(err).Str("peer", peer).Msg("malformed shard response")
		return
	}

	n.respMu.Lock()
	q := n.respQueues[peer]
	if len(q) == 0 {
		n.respMu.Unlock()
		return
	}
	ch := q[0]
	n.respQueues[peer] = q[1:]
	n.respMu.Unlock()

	ch <- resp
}

// drainPendingResponses closes out any requests still waiting on peer when
// its connection is torn down, so sendShardRequest callers don't block
// until the req/resp timeout fires.
func (n *Node) drainPendingResponses(peer string) {
	n.respMu.Lock()
	q := n.respQueues[peer]
	delete(n.respQueues, peer)
	n.respMu.Unlock()

	for _, ch := range q {
		close(ch)
	}
}

// Start starts all node subsystems in order.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return errors.New("node already running")
	}

	n.log.Info().Str("network", n.config.Network).Msg("starting avail-da node")

	// Start the gossip/req-resp P2P server.
	if err := n.p2pServer.Start(); err != nil {
		return fmt.Errorf("start p2p server: %w", err)
	}
	go n.decayReputation()

	// Start the JSON-RPC server.
	n.rpcServer = &http.Server{
		Addr:    n.config.RPCAddr(),
		Handler: n.rpcHandler.Handler(),
	}
	go func() {
		n.log.Info().Str("addr", n.config.RPCAddr()).Msg("rpc server listening")
		if err := n.rpcServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.log.Error().Err(err).Msg("rpc server error")
		}
	}()

	n.running = true
	n.log.Info().Msg("node started successfully")
	return nil
}

// Stop gracefully shuts down all subsystems in reverse order.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.running {
		return nil
	}

	n.log.Info().Msg("stopping avail-da node")

	if n.rpcServer != nil {
		if err := n.rpcServer.Close(); err != nil {
			n.log.Error().Err(err).Msg("rpc server stop error")
		}
	}

	n.p2pServer.Stop()
	n.peers.Close()
	n.reqresp.Close()

	if err := n.store.Close(); err != nil {
		n.log.Error().Err(err).Msg("shard store close error")
	}

	n.running = false
	close(n.stop)
	n.log.Info().Msg("node stopped")
	return nil
}

// Wait blocks until the node is stopped.
func (n *Node) Wait() {
	<-n.stop
}

// Store returns the shard store.
func (n *Node) Store() *blobstore.Store {
	return n.store
}

// Admitter returns the blob admitter.
func (n *Node) Admitter() *blob.Admitter {
	return n.admitter
}

// Config returns the node configuration.
func (n *Node) Config() *Config {
	return n.config
}

// Running reports whether the node is currently running.
func (n *Node) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}
