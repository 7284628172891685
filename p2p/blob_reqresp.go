package p2p

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/availproject/avail-da/blob"
)

// ReqRespProtocolID is the request/response protocol name carrying
// ShardRequest/CellRequest bodies (spec.md §4.11).
const ReqRespProtocolID = "/blob/req/1"

// RequestTimeout is the per-request deadline; expiration increments the
// peer's retry counter and releases its concurrency slot.
const RequestTimeout = 10 * time.Second

// MaxRequestSize and MaxResponseEnvelope bound wire payloads (spec.md §4.11).
const (
	MaxRequestSize       = 1024 * 1024
	MaxResponseEnvelope  = 1024 // added on top of ShardSize for the response envelope
)

// Errors for the blob req/res protocol.
var (
	ErrReqClosed       = errors.New("blob reqresp: protocol closed")
	ErrReqNoHandler    = errors.New("blob reqresp: no handler registered")
	ErrReqTimeout      = errors.New("blob reqresp: request timeout")
	ErrReqConcurrency  = errors.New("blob reqresp: concurrent request limit exceeded")
	ErrReqOversized    = errors.New("blob reqresp: request exceeds MaxRequestSize")
)

// ReqHandler answers an incoming blob.Request with a blob.Response.
type ReqHandler func(peer string, req blob.Request) (blob.Response, error)

// ReqRespConfig configures the blob req/res protocol.
type ReqRespConfig struct {
	ConcurrentRequests int // CONCURRENT_REQUESTS: cap per peer
	Timeout            time.Duration
}

// DefaultReqRespConfig returns the spec's defaults.
func DefaultReqRespConfig() ReqRespConfig {
	return ReqRespConfig{ConcurrentRequests: 8, Timeout: RequestTimeout}
}

type pendingKey struct {
	peer string
}

// RetryTracker counts per-peer request timeouts. The count is reported by
// RetryCount; nothing in this package backs off a peer because of it.
type RetryTracker struct {
	mu      sync.Mutex
	retries map[string]int
}

// Increment bumps and returns peer's retry count.
func (t *RetryTracker) Increment(peer string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.retries == nil {
		t.retries = make(map[string]int)
	}
	t.retries[peer]++
	return t.retries[peer]
}

// Count returns peer's current retry count.
func (t *RetryTracker) Count(peer string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retries[peer]
}

// ReqRespProtocol implements the /blob/req/1 exchange: bounded per-peer
// concurrency, a 10s deadline per request, and a retry counter on timeout.
// All methods are safe for concurrent use.
type ReqRespProtocol struct {
	mu     sync.RWMutex
	config ReqRespConfig
	closed bool
	nextID atomic.Uint64

	handler ReqHandler

	pending   map[pendingKey]int
	pendingMu sync.Mutex

	retries RetryTracker

	// sendFunc performs the actual wire round-trip; swappable for testing.
	sendFunc func(peer string, req blob.Request) (blob.Response, error)
}

// NewReqRespProtocol creates a protocol instance with the given config.
func NewReqRespProtocol(config ReqRespConfig) *ReqRespProtocol {
	if config.ConcurrentRequests <= 0 {
		config.ConcurrentRequests = DefaultReqRespConfig().ConcurrentRequests
	}
	if config.Timeout <= 0 {
		config.Timeout = RequestTimeout
	}
	return &ReqRespProtocol{
		config:  config,
		pending: make(map[pendingKey]int),
	}
}

// HandleRequest registers the handler for incoming requests.
func (p *ReqRespProtocol) HandleRequest(h ReqHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// SetSendFunc sets the function used to perform outbound requests.
func (p *ReqRespProtocol) SetSendFunc(fn func(peer string, req blob.Request) (blob.Response, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendFunc = fn
}

func (p *ReqRespProtocol) acquire(peer string) error {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	key := pendingKey{peer: peer}
	if p.pending[key] >= p.config.ConcurrentRequests {
		return ErrReqConcurrency
	}
	p.pending[key]++
	return nil
}

func (p *ReqRespProtocol) release(peer string) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	key := pendingKey{peer: peer}
	if p.pending[key] > 0 {
		p.pending[key]--
	}
	if p.pending[key] == 0 {
		delete(p.pending, key)
	}
}

// SendRequest dispatches req to peer, enforcing the concurrency cap and
// request deadline. A timeout increments peer's retry counter.
func (p *ReqRespProtocol) SendRequest(peer string, req blob.Request) (blob.Response, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return blob.Response{}, ErrReqClosed
	}
	sendFn := p.sendFunc
	timeout := p.config.Timeout
	p.mu.RUnlock()

	if sendFn == nil {
		return blob.Response{}, ErrReqNoHandler
	}
	if len(blob.EncodeRequest(req)) > MaxRequestSize {
		return blob.Response{}, ErrReqOversized
	}

	if err := p.acquire(peer); err != nil {
		return blob.Response{}, err
	}
	defer p.release(peer)

	type result struct {
		resp blob.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := sendFn(peer, req)
		ch <- result{resp, err}
	}()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-time.After(timeout):
		p.retries.Increment(peer)
		return blob.Response{}, ErrReqTimeout
	}
}

// ProcessIncomingRequest dispatches an inbound request to the registered
// handler, rejecting oversized payloads before decoding.
func (p *ReqRespProtocol) ProcessIncomingRequest(peer string, raw []byte) (blob.Response, error) {
	if len(raw) > MaxRequestSize {
		return blob.Response{}, ErrReqOversized
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return blob.Response{}, ErrReqClosed
	}
	handler := p.handler
	p.mu.RUnlock()

	if handler == nil {
		return blob.Response{}, ErrReqNoHandler
	}

	req, err := blob.DecodeRequest(raw)
	if err != nil {
		return blob.Response{}, err
	}
	return handler(peer, req)
}

// RetryCount returns how many times peer has timed out.
func (p *ReqRespProtocol) RetryCount(peer string) int {
	return p.retries.Count(peer)
}

// PendingRequestCount returns the number of in-flight requests for peer.
func (p *ReqRespProtocol) PendingRequestCount(peer string) int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return p.pending[pendingKey{peer: peer}]
}

// Close shuts down the protocol; subsequent SendRequest calls fail.
func (p *ReqRespProtocol) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}
