package blob

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestEncodeDecodeAnnounceNotification(t *testing.T) {
	meta := Metadata{Hash: common.HexToHash("0x01"), Size: 10, NbShards: 1}
	n := Notification{Tag: NotifyAnnounce, Announce: &meta}
	buf := EncodeNotification(n)
	got, err := DecodeNotification(buf)
	if err != nil {
		t.Fatalf("DecodeNotification: %v", err)
	}
	if got.Tag != NotifyAnnounce || got.Announce.Hash != meta.Hash {
		t.Errorf("roundtrip mismatch: got %+v", got)
	}
}

func TestEncodeDecodeShardReceivedNotification(t *testing.T) {
	receipt := &ShardReceipt{BlobHash: common.HexToHash("0x02"), ShardID: 3, Owner: Owner{ValidatorID: 7, PeerID: "peer-x"}}
	n := Notification{Tag: NotifyShardReceived, ShardReceived: receipt}
	buf := EncodeNotification(n)
	got, err := DecodeNotification(buf)
	if err != nil {
		t.Fatalf("DecodeNotification: %v", err)
	}
	if got.ShardReceived.ShardID != 3 || got.ShardReceived.Owner.PeerID != "peer-x" {
		t.Errorf("roundtrip mismatch: got %+v", got.ShardReceived)
	}
}

func TestEncodeDecodeShardRequest(t *testing.T) {
	req := Request{Tag: ReqShard, ShardRequest: &ShardRequest{Hash: common.HexToHash("0x03"), ShardIDs: []uint16{0, 1, 2}}}
	buf := EncodeRequest(req)
	got, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if len(got.ShardRequest.ShardIDs) != 3 {
		t.Errorf("expected 3 shard ids, got %d", len(got.ShardRequest.ShardIDs))
	}
}

func TestEncodeDecodeCellRequest(t *testing.T) {
	req := Request{Tag: ReqCell, CellRequest: &CellRequest{
		Hash:  common.HexToHash("0x04"),
		Cells: []CellRange{{ShardID: 0, Start: 0, End: 100}},
	}}
	buf := EncodeRequest(req)
	got, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if len(got.CellRequest.Cells) != 1 || got.CellRequest.Cells[0].End != 100 {
		t.Errorf("roundtrip mismatch: got %+v", got.CellRequest)
	}
}

func TestEncodeDecodeShardResponse(t *testing.T) {
	resp := Response{Tag: ReqShard, Shards: []Shard{
		{BlobHash: common.HexToHash("0x05"), ShardID: 1, Data: []byte("abc"), Size: 3},
	}}
	buf := EncodeResponse(resp)
	got, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(got.Shards) != 1 || string(got.Shards[0].Data) != "abc" {
		t.Errorf("roundtrip mismatch: got %+v", got.Shards)
	}
}

func TestEncodeDecodeCellResponse(t *testing.T) {
	resp := Response{Tag: ReqCell, Cells: [][]byte{[]byte("range-bytes")}}
	buf := EncodeResponse(resp)
	got, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(got.Cells) != 1 || string(got.Cells[0]) != "range-bytes" {
		t.Errorf("roundtrip mismatch: got %+v", got.Cells)
	}
}
