package p2p

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Connection-level handshake message codes. These are exchanged once per
// connection, before any blob protocol messages, to agree on capabilities.
const (
	HelloMsg      = 0x80 // Capability handshake.
	DisconnectMsg = 0x81 // Graceful disconnect with reason.
	PingMsg       = 0x82
	PongMsg       = 0x83
)

// Handshake errors.
var (
	ErrHandshakeTimeout    = errors.New("p2p: handshake timeout")
	ErrIncompatibleVersion = errors.New("p2p: incompatible protocol version")
	ErrNoMatchingCaps      = errors.New("p2p: no matching capabilities")
)

// baseProtocolVersion is the connection handshake version this node speaks.
const baseProtocolVersion = 1

// HelloPacket is exchanged during the capability handshake that follows
// connection setup. Each side advertises its client identity and the
// sub-protocols it supports; the server only proceeds to a Protocol.Run
// if the two sides share at least one matching capability.
type HelloPacket struct {
	Version    uint64 // connection handshake version.
	Name       string // client identity string.
	Caps       []Cap  // supported sub-protocol capabilities.
	ListenPort uint64 // TCP listening port (0 if not listening).
	ID         string // node identifier.
}

// EncodeHello serializes a HelloPacket into a wire-format byte slice.
// Wire format: [version:8][nameLen:2][name][capCount:2]{[capNameLen:1][capName][capVersion:4]}*[listenPort:8][idLen:2][id]
func EncodeHello(h *HelloPacket) []byte {
	size := 8 + 2 + len(h.Name)
	size += 2
	for _, c := range h.Caps {
		size += 1 + len(c.Name) + 4
	}
	size += 8
	size += 2 + len(h.ID)

	buf := make([]byte, 0, size)

	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], h.Version)
	buf = append(buf, tmp[:]...)

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(h.Name)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, []byte(h.Name)...)

	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(h.Caps)))
	buf = append(buf, lenBuf[:]...)
	for _, c := range h.Caps {
		buf = append(buf, byte(len(c.Name)))
		buf = append(buf, []byte(c.Name)...)
		var vbuf [4]byte
		binary.BigEndian.PutUint32(vbuf[:], uint32(c.Version))
		buf = append(buf, vbuf[:]...)
	}

	binary.BigEndian.PutUint64(tmp[:], h.ListenPort)
	buf = append(buf, tmp[:]...)

	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(h.ID)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, []byte(h.ID)...)

	return buf
}

// DecodeHello deserializes a HelloPacket from wire-format bytes.
func DecodeHello(data []byte) (*HelloPacket, error) {
	if len(data) < 8+2 {
		return nil, fmt.Errorf("p2p: hello packet too short")
	}
	h := &HelloPacket{}
	off := 0

	h.Version = binary.BigEndian.Uint64(data[off:])
	off += 8

	if off+2 > len(data) {
		return nil, fmt.Errorf("p2p: hello packet truncated at name length")
	}
	nameLen := int(binary.BigEndian.Uint16(data[off:]))
	off += 2
	if off+nameLen > len(data) {
		return nil, fmt.Errorf("p2p: hello packet truncated at name")
	}
	h.Name = string(data[off : off+nameLen])
	off += nameLen

	if off+2 > len(data) {
		return nil, fmt.Errorf("p2p: hello packet truncated at cap count")
	}
	capCount := int(binary.BigEndian.Uint16(data[off:]))
	off += 2
	h.Caps = make([]Cap, 0, capCount)
	for i := 0; i < capCount; i++ {
		if off+1 > len(data) {
			return nil, fmt.Errorf("p2p: hello packet truncated at cap %d name length", i)
		}
		cnLen := int(data[off])
		off++
		if off+cnLen+4 > len(data) {
			return nil, fmt.Errorf("p2p: hello packet truncated at cap %d", i)
		}
		name := string(data[off : off+cnLen])
		off += cnLen
		ver := binary.BigEndian.Uint32(data[off:])
		off += 4
		h.Caps = append(h.Caps, Cap{Name: name, Version: uint(ver)})
	}

	if off+8 > len(data) {
		return nil, fmt.Errorf("p2p: hello packet truncated at listen port")
	}
	h.ListenPort = binary.BigEndian.Uint64(data[off:])
	off += 8

	if off+2 > len(data) {
		return nil, fmt.Errorf("p2p: hello packet truncated at id length")
	}
	idLen := int(binary.BigEndian.Uint16(data[off:]))
	off += 2
	if off+idLen > len(data) {
		return nil, fmt.Errorf("p2p: hello packet truncated at id")
	}
	h.ID = string(data[off : off+idLen])

	return h, nil
}

// DisconnectReason identifies why a connection was terminated.
type DisconnectReason uint8

const (
	DiscRequested        DisconnectReason = 0x00 // Peer requested disconnect.
	DiscNetworkError     DisconnectReason = 0x01 // Network error.
	DiscProtocolError    DisconnectReason = 0x02 // Protocol breach.
	DiscUselessPeer      DisconnectReason = 0x03 // No matching capabilities.
	DiscTooManyPeers     DisconnectReason = 0x04 // Too many peers.
	DiscAlreadyConnected DisconnectReason = 0x05 // Already connected.
	DiscSubprotocolError DisconnectReason = 0x10 // Sub-protocol error.
)

// String returns a human-readable disconnect reason.
func (r DisconnectReason) String() string {
	switch r {
	case DiscRequested:
		return "requested"
	case DiscNetworkError:
		return "network error"
	case DiscProtocolError:
		return "protocol error"
	case DiscUselessPeer:
		return "useless peer"
	case DiscTooManyPeers:
		return "too many peers"
	case DiscAlreadyConnected:
		return "already connected"
	case DiscSubprotocolError:
		return "sub-protocol error"
	default:
		return fmt.Sprintf("unknown(%d)", r)
	}
}

// PerformHandshake exchanges hello messages with the remote peer over the
// given transport. It sends our hello and reads the remote hello
// concurrently. On success, it returns the remote HelloPacket. On a version
// or capability mismatch it sends a disconnect message with the matching
// reason; read, write and decode failures return without one.
func PerformHandshake(tr Transport, local *HelloPacket) (*HelloPacket, error) {
	type result struct {
		hello *HelloPacket
		err   error
	}
	recvCh := make(chan result, 1)
	sendCh := make(chan error, 1)

	go func() {
		payload := EncodeHello(local)
		err := tr.WriteMsg(Msg{
			Code:    HelloMsg,
			Size:    uint32(len(payload)),
			Payload: payload,
		})
		sendCh <- err
	}()

	go func() {
		msg, err := tr.ReadMsg()
		if err != nil {
			recvCh <- result{nil, fmt.Errorf("p2p: handshake read: %w", err)}
			return
		}
		if msg.Code == DisconnectMsg {
			reason := DisconnectReason(0xFF)
			if len(msg.Payload) > 0 {
				reason = DisconnectReason(msg.Payload[0])
			}
			recvCh <- result{nil, fmt.Errorf("p2p: remote disconnected during handshake: %s", reason)}
			return
		}
		if msg.Code != HelloMsg {
			recvCh <- result{nil, fmt.Errorf("p2p: expected hello (0x%02x), got 0x%02x", HelloMsg, msg.Code)}
			return
		}
		remote, err := DecodeHello(msg.Payload)
		if err != nil {
			recvCh <- result{nil, err}
			return
		}
		recvCh <- result{remote, nil}
	}()

	if err := <-sendCh; err != nil {
		return nil, fmt.Errorf("p2p: handshake write: %w", err)
	}

	res := <-recvCh
	if res.err != nil {
		return nil, res.err
	}

	if res.hello.Version < baseProtocolVersion {
		sendDisconnect(tr, DiscProtocolError)
		return nil, fmt.Errorf("%w: remote=%d, local=%d", ErrIncompatibleVersion, res.hello.Version, baseProtocolVersion)
	}

	if !hasMatchingCap(local.Caps, res.hello.Caps) {
		sendDisconnect(tr, DiscUselessPeer)
		return nil, ErrNoMatchingCaps
	}

	return res.hello, nil
}

// sendDisconnect sends a disconnect message with the given reason. The
// write runs in a goroutine so it does not block on synchronous transports
// (e.g. net.Pipe) once the remote side has stopped reading.
func sendDisconnect(tr Transport, reason DisconnectReason) {
	go func() {
		_ = tr.WriteMsg(Msg{
			Code:    DisconnectMsg,
			Size:    1,
			Payload: []byte{byte(reason)},
		})
	}()
}

// hasMatchingCap returns true if local and remote share at least one
// capability with the same name and version.
func hasMatchingCap(local, remote []Cap) bool {
	for _, lc := range local {
		for _, rc := range remote {
			if lc.Name == rc.Name && lc.Version == rc.Version {
				return true
			}
		}
	}
	return false
}

// MatchingCaps returns the list of capabilities shared between local and remote.
func MatchingCaps(local, remote []Cap) []Cap {
	var matched []Cap
	for _, lc := range local {
		for _, rc := range remote {
			if lc.Name == rc.Name && lc.Version == rc.Version {
				matched = append(matched, lc)
			}
		}
	}
	return matched
}
