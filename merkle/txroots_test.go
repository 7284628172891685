package merkle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/crypto"
)

func TestSubmittedRootSortsByTxIndex(t *testing.T) {
	h1 := crypto.Keccak256Hash([]byte("a"))
	h2 := crypto.Keccak256Hash([]byte("b"))

	inOrder := SubmittedRoot([]SubmittedData{
		{TxIndex: 0, BlobHash: h1},
		{TxIndex: 1, BlobHash: h2},
	})
	reversed := SubmittedRoot([]SubmittedData{
		{TxIndex: 1, BlobHash: h2},
		{TxIndex: 0, BlobHash: h1},
	})
	if inOrder != reversed {
		t.Error("SubmittedRoot should be invariant to input order, sorted by TxIndex")
	}
}

func TestBothEmptyRootsAreZero(t *testing.T) {
	sr := SubmittedRoot(nil)
	br := BridgedRoot(nil)
	if sr != (common.Hash{}) || br != (common.Hash{}) {
		t.Fatal("expected both roots to be zero for empty inputs")
	}
	dr := DataRoot(sr, br)
	want := crypto.Keccak256Hash(common.Hash{}.Bytes(), common.Hash{}.Bytes())
	if dr != want {
		t.Errorf("DataRoot(zero,zero) = %x, want %x", dr, want)
	}
}

func TestDataRootChangesWithEitherSubRoot(t *testing.T) {
	sr := crypto.Keccak256Hash([]byte("submitted"))
	br := crypto.Keccak256Hash([]byte("bridged"))
	d1 := DataRoot(sr, br)
	d2 := DataRoot(sr, crypto.Keccak256Hash([]byte("other")))
	if d1 == d2 {
		t.Error("DataRoot should change when bridged_root changes")
	}
}

func TestAddressedMessageEncodeDeterministic(t *testing.T) {
	m := AddressedMessage{
		Message:           []byte("payload"),
		From:              common.HexToAddress("0x1111111111111111111111111111111111111111"),
		To:                common.HexToAddress("0x2222222222222222222222222222222222222222"),
		OriginDomain:      1,
		DestinationDomain: 2,
		ID:                42,
	}
	e1 := m.Encode()
	e2 := m.Encode()
	if len(e1) == 0 {
		t.Fatal("expected non-empty encoding")
	}
	if string(e1) != string(e2) {
		t.Error("AddressedMessage.Encode() should be deterministic")
	}
}

func TestBridgedRootSortsByTxIndex(t *testing.T) {
	m1 := AddressedMessage{Message: []byte("one"), ID: 1}
	m2 := AddressedMessage{Message: []byte("two"), ID: 2}

	inOrder := BridgedRoot([]BridgedData{
		{TxIndex: 0, AddressedMessage: m1},
		{TxIndex: 1, AddressedMessage: m2},
	})
	reversed := BridgedRoot([]BridgedData{
		{TxIndex: 1, AddressedMessage: m2},
		{TxIndex: 0, AddressedMessage: m1},
	})
	if inOrder != reversed {
		t.Error("BridgedRoot should be invariant to input order, sorted by TxIndex")
	}
}
