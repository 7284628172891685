package p2p

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

var (
	// ErrMessageTooLarge is returned when a message exceeds the protocol size limit.
	ErrMessageTooLarge = errors.New("p2p: message too large")

	// ErrInvalidMsgCode is returned when a message has an unrecognised code.
	ErrInvalidMsgCode = errors.New("p2p: invalid message code")

	// ErrDecode is returned when RLP decoding fails.
	ErrDecode = errors.New("p2p: decode error")
)

// MaxMessageSize is the maximum allowed size of a protocol message payload (16 MiB).
const MaxMessageSize = 16 * 1024 * 1024

// BlobProtocolVersion is the current version of the blob gossip/req-resp
// sub-protocol negotiated during peer handshake.
const BlobProtocolVersion = 1

// Blob protocol message codes, carried over the connection-level Transport
// alongside BlobGossipHandler and ReqRespProtocol's own raw-byte framing.
const (
	BlobStatusMsg      = 0x00 // handshake: network ID and genesis/data-root check
	BlobGossipMsg      = 0x01 // /blob/gossip/1 notification, forwarded to BlobGossipHandler
	BlobShardReqMsg    = 0x02 // /blob/req/1 request, forwarded to ReqRespProtocol
	BlobShardRespMsg   = 0x03 // /blob/req/1 response
)

// Message represents a protocol message exchanged over a Transport.
type Message struct {
	Code    uint64 // Protocol message code.
	Size    uint32 // Size of the RLP-encoded payload.
	Payload []byte // RLP-encoded payload bytes.
}

// ForkID is a compact network-compatibility identifier exchanged during the
// BlobStatusMsg handshake: a checksum of the data-availability chain's
// genesis and an optional next-upgrade block number.
type ForkID struct {
	Hash [4]byte // CRC32 checksum of the genesis hash and known upgrade block numbers.
	Next uint64  // Block number of the next expected upgrade, or 0 if none scheduled.
}

// EncodeMessage encodes a value into a Message with the given message code.
// The value is RLP-encoded to produce the payload.
func EncodeMessage(code uint64, val interface{}) (Message, error) {
	payload, err := rlp.EncodeToBytes(val)
	if err != nil {
		return Message{}, fmt.Errorf("p2p: failed to encode message 0x%02x: %w", code, err)
	}
	if len(payload) > MaxMessageSize {
		return Message{}, ErrMessageTooLarge
	}
	return Message{
		Code:    code,
		Size:    uint32(len(payload)),
		Payload: payload,
	}, nil
}

// DecodeMessage decodes a Message's payload into the provided value.
// The value must be a pointer to the expected type.
func DecodeMessage(msg Message, val interface{}) error {
	if err := rlp.DecodeBytes(msg.Payload, val); err != nil {
		return fmt.Errorf("%w: code 0x%02x: %v", ErrDecode, msg.Code, err)
	}
	return nil
}

// ValidateMessageCode returns an error if the message code is not a known
// blob protocol message.
func ValidateMessageCode(code uint64) error {
	switch code {
	case BlobStatusMsg, BlobGossipMsg, BlobShardReqMsg, BlobShardRespMsg:
		return nil
	default:
		return fmt.Errorf("%w: 0x%02x", ErrInvalidMsgCode, code)
	}
}

// MessageName returns a human-readable name for the given message code.
func MessageName(code uint64) string {
	switch code {
	case BlobStatusMsg:
		return "BlobStatus"
	case BlobGossipMsg:
		return "BlobGossip"
	case BlobShardReqMsg:
		return "BlobShardReq"
	case BlobShardRespMsg:
		return "BlobShardResp"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", code)
	}
}
