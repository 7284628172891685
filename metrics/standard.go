package metrics

// Pre-defined metrics for the avail-da node. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around, and are served together at the node's /metrics endpoint
// via a PrometheusExporter wrapping DefaultRegistry.

var (
	// ---- Blob admission and shard store metrics ----

	// BlobsAdmitted counts blobs that passed admission (encoding, commitment,
	// sharding) and were added to the store.
	BlobsAdmitted = DefaultRegistry.Counter("blob.admitted")
	// BlobsRejected counts blobs that failed admission.
	BlobsRejected = DefaultRegistry.Counter("blob.rejected")
	// BlobAdmissionTime records end-to-end admission latency in milliseconds.
	BlobAdmissionTime = DefaultRegistry.Histogram("blob.admission_ms")
	// ShardsStored counts shards written to the local shard store.
	ShardsStored = DefaultRegistry.Counter("shard.stored")
	// ShardsServed counts shards returned to peers over req/resp.
	ShardsServed = DefaultRegistry.Counter("shard.served")

	// ---- KZG / kate metrics ----

	// CommitmentsComputed counts KZG commitments computed during admission.
	CommitmentsComputed = DefaultRegistry.Counter("kate.commitments")
	// ProofsGenerated counts cell proofs generated for sampling requests.
	ProofsGenerated = DefaultRegistry.Counter("kate.proofs_generated")
	// ProofVerifyTime records cell proof verification latency in milliseconds.
	ProofVerifyTime = DefaultRegistry.Histogram("kate.proof_verify_ms")

	// ---- P2P metrics ----

	// PeersConnected tracks the current number of connected peers.
	PeersConnected = DefaultRegistry.Gauge("p2p.peers")
	// GossipReceived counts blob gossip notifications received.
	GossipReceived = DefaultRegistry.Counter("p2p.gossip_received")
	// GossipForwarded counts blob gossip notifications relayed to other peers.
	GossipForwarded = DefaultRegistry.Counter("p2p.gossip_forwarded")
	// ReqRespRequests counts inbound shard/cell requests served.
	ReqRespRequests = DefaultRegistry.Counter("p2p.reqresp_requests")
	// ReqRespTimeouts counts outbound requests that timed out waiting for a peer.
	ReqRespTimeouts = DefaultRegistry.Counter("p2p.reqresp_timeouts")
	// PeerPenalties counts peer score penalties applied for protocol violations.
	PeerPenalties = DefaultRegistry.Counter("p2p.peer_penalties")

	// ---- Sampling metrics ----

	// SamplesRequested counts cells sampled as part of data availability sampling.
	SamplesRequested = DefaultRegistry.Counter("sampler.cells_requested")
	// SamplesFailed counts blobs whose sampling failed (unavailable data).
	SamplesFailed = DefaultRegistry.Counter("sampler.blobs_failed")

	// ---- RPC metrics ----

	// RPCRequests counts incoming JSON-RPC requests.
	RPCRequests = DefaultRegistry.Counter("rpc.requests")
	// RPCErrors counts JSON-RPC requests that returned an error.
	RPCErrors = DefaultRegistry.Counter("rpc.errors")
	// RPCLatency records JSON-RPC request latency in milliseconds.
	RPCLatency = DefaultRegistry.Histogram("rpc.latency_ms")
)
