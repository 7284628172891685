package blob

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/scale"
)

// Notification tags carried on the /blob/gossip/1 topic.
const (
	NotifyAnnounce      uint8 = 0
	NotifyShardReceived uint8 = 1
)

// ShardReceipt is observed ownership evidence for one shard.
type ShardReceipt struct {
	BlobHash common.Hash
	ShardID  uint16
	Owner    Owner
}

// Notification is the tagged sum carried on /blob/gossip/1: either an
// Announce(Metadata) or a ShardReceived(ShardReceipt). Exactly one of
// Announce/ShardReceived is set, matching Tag.
type Notification struct {
	Tag          uint8
	Announce     *Metadata
	ShardReceived *ShardReceipt
}

// EncodeNotification SCALE-encodes a Notification for gossip transport.
func EncodeNotification(n Notification) []byte {
	e := scale.NewEncoder()
	e.PutUint8(n.Tag)
	switch n.Tag {
	case NotifyAnnounce:
		e.PutFixedBytes(EncodeMetadata(*n.Announce))
	case NotifyShardReceived:
		e.PutFixedBytes(n.ShardReceived.BlobHash[:])
		e.PutUint16(n.ShardReceived.ShardID)
		e.PutUint64(n.ShardReceived.Owner.ValidatorID)
		e.PutBytes([]byte(n.ShardReceived.Owner.PeerID))
	}
	return e.Bytes()
}

// DecodeNotification parses a SCALE-encoded Notification.
func DecodeNotification(buf []byte) (Notification, error) {
	d := scale.NewDecoder(buf)
	tag, err := d.GetUint8()
	if err != nil {
		return Notification{}, err
	}
	switch tag {
	case NotifyAnnounce:
		meta, err := DecodeMetadata(buf[1:])
		if err != nil {
			return Notification{}, err
		}
		return Notification{Tag: tag, Announce: &meta}, nil
	case NotifyShardReceived:
		hashBytes, err := d.GetFixedBytes(32)
		if err != nil {
			return Notification{}, err
		}
		shardID, err := d.GetUint16()
		if err != nil {
			return Notification{}, err
		}
		vid, err := d.GetUint64()
		if err != nil {
			return Notification{}, err
		}
		peer, err := d.GetBytes()
		if err != nil {
			return Notification{}, err
		}
		return Notification{
			Tag: tag,
			ShardReceived: &ShardReceipt{
				BlobHash: common.BytesToHash(hashBytes),
				ShardID:  shardID,
				Owner:    Owner{ValidatorID: vid, PeerID: string(peer)},
			},
		}, nil
	default:
		return Notification{}, fmt.Errorf("blob: unknown notification tag %d", tag)
	}
}

// Request tags carried on the /blob/req/1 protocol.
const (
	ReqShard uint8 = 0
	ReqCell  uint8 = 1
)

// CellRange identifies a byte range within one shard.
type CellRange struct {
	ShardID uint16
	Start   uint64
	End     uint64
}

// ShardRequest asks for whole shards of one blob.
type ShardRequest struct {
	Hash     common.Hash
	ShardIDs []uint16
}

// CellRequest asks for byte ranges within shards of one blob.
type CellRequest struct {
	Hash  common.Hash
	Cells []CellRange
}

// Request is the tagged sum carried as a /blob/req/1 request body.
type Request struct {
	Tag          uint8
	ShardRequest *ShardRequest
	CellRequest  *CellRequest
}

// EncodeRequest SCALE-encodes a Request.
func EncodeRequest(r Request) []byte {
	e := scale.NewEncoder()
	e.PutUint8(r.Tag)
	switch r.Tag {
	case ReqShard:
		e.PutFixedBytes(r.ShardRequest.Hash[:])
		e.PutCompact(uint64(len(r.ShardRequest.ShardIDs)))
		for _, id := range r.ShardRequest.ShardIDs {
			e.PutUint16(id)
		}
	case ReqCell:
		e.PutFixedBytes(r.CellRequest.Hash[:])
		e.PutCompact(uint64(len(r.CellRequest.Cells)))
		for _, c := range r.CellRequest.Cells {
			e.PutUint16(c.ShardID)
			e.PutUint64(c.Start)
			e.PutUint64(c.End)
		}
	}
	return e.Bytes()
}

// DecodeRequest parses a SCALE-encoded Request.
func DecodeRequest(buf []byte) (Request, error) {
	d := scale.NewDecoder(buf)
	tag, err := d.GetUint8()
	if err != nil {
		return Request{}, err
	}
	hashBytes, err := d.GetFixedBytes(32)
	if err != nil {
		return Request{}, err
	}
	hash := common.BytesToHash(hashBytes)
	n, err := d.GetCompact()
	if err != nil {
		return Request{}, err
	}

	switch tag {
	case ReqShard:
		ids := make([]uint16, n)
		for i := range ids {
			if ids[i], err = d.GetUint16(); err != nil {
				return Request{}, err
			}
		}
		return Request{Tag: tag, ShardRequest: &ShardRequest{Hash: hash, ShardIDs: ids}}, nil
	case ReqCell:
		cells := make([]CellRange, n)
		for i := range cells {
			shardID, err := d.GetUint16()
			if err != nil {
				return Request{}, err
			}
			start, err := d.GetUint64()
			if err != nil {
				return Request{}, err
			}
			end, err := d.GetUint64()
			if err != nil {
				return Request{}, err
			}
			cells[i] = CellRange{ShardID: shardID, Start: start, End: end}
		}
		return Request{Tag: tag, CellRequest: &CellRequest{Hash: hash, Cells: cells}}, nil
	default:
		return Request{}, fmt.Errorf("blob: unknown request tag %d", tag)
	}
}

// Response is the dual of Request: either the shards or the cell byte
// ranges that satisfied it.
type Response struct {
	Tag    uint8
	Shards []Shard
	Cells  [][]byte
}

// EncodeResponse SCALE-encodes a Response.
func EncodeResponse(r Response) []byte {
	e := scale.NewEncoder()
	e.PutUint8(r.Tag)
	switch r.Tag {
	case ReqShard:
		e.PutCompact(uint64(len(r.Shards)))
		for _, s := range r.Shards {
			e.PutFixedBytes(EncodeShard(s))
		}
	case ReqCell:
		e.PutCompact(uint64(len(r.Cells)))
		for _, c := range r.Cells {
			e.PutBytes(c)
		}
	}
	return e.Bytes()
}

// DecodeResponse parses a SCALE-encoded Response. Because EncodeShard
// embeds its own length-prefixed fields, shard entries are decoded by
// reading through the shared decoder rather than fixed-width framing.
func DecodeResponse(buf []byte) (Response, error) {
	d := scale.NewDecoder(buf)
	tag, err := d.GetUint8()
	if err != nil {
		return Response{}, err
	}
	n, err := d.GetCompact()
	if err != nil {
		return Response{}, err
	}
	switch tag {
	case ReqShard:
		shards := make([]Shard, n)
		for i := range shards {
			hashBytes, err := d.GetFixedBytes(32)
			if err != nil {
				return Response{}, err
			}
			shardID, err := d.GetUint16()
			if err != nil {
				return Response{}, err
			}
			data, err := d.GetBytes()
			if err != nil {
				return Response{}, err
			}
			size, err := d.GetUint64()
			if err != nil {
				return Response{}, err
			}
			shards[i] = Shard{BlobHash: common.BytesToHash(hashBytes), ShardID: shardID, Data: data, Size: size}
		}
		return Response{Tag: tag, Shards: shards}, nil
	case ReqCell:
		cells := make([][]byte, n)
		for i := range cells {
			c, err := d.GetBytes()
			if err != nil {
				return Response{}, err
			}
			cells[i] = c
		}
		return Response{Tag: tag, Cells: cells}, nil
	default:
		return Response{}, fmt.Errorf("blob: unknown response tag %d", tag)
	}
}
