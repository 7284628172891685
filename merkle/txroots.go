package merkle

import (
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/crypto"
)

// SubmittedData is one blob-carrying extrinsic's tx-data-root contribution.
type SubmittedData struct {
	AppID       uint32
	TxIndex     uint32
	BlobHash    common.Hash
	Size        uint64
	Commitments []byte // len == 48 * rows-after-extension
}

// AddressedMessage is an outbound bridge message; its ABI encoding forms a
// bridged_root leaf.
type AddressedMessage struct {
	Message           []byte
	From              common.Address
	To                common.Address
	OriginDomain      uint32
	DestinationDomain uint32
	ID                uint64
}

// BridgedData is one outbound-message extrinsic's bridged_root contribution.
type BridgedData struct {
	TxIndex          uint32
	AddressedMessage AddressedMessage
}

var addressedMessageArgs = mustAddressedMessageArgs()

func mustAddressedMessageArgs() abi.Arguments {
	bytesT, _ := abi.NewType("bytes", "", nil)
	addressT, _ := abi.NewType("address", "", nil)
	uint32T, _ := abi.NewType("uint32", "", nil)
	uint64T, _ := abi.NewType("uint64", "", nil)
	return abi.Arguments{
		{Type: bytesT},
		{Type: addressT},
		{Type: addressT},
		{Type: uint32T},
		{Type: uint32T},
		{Type: uint64T},
	}
}

// Encode deterministically ABI-encodes the message.
func (m AddressedMessage) Encode() []byte {
	packed, err := addressedMessageArgs.Pack(m.Message, m.From, m.To, m.OriginDomain, m.DestinationDomain, m.ID)
	if err != nil {
		// Arguments are fixed concrete Go types matching the ABI types
		// exactly; Pack cannot fail for well-formed AddressedMessage values.
		panic(err)
	}
	return packed
}

// SubmittedRoot computes submitted_root: leaves are keccak256(blob_bytes)
// (here taken directly as SubmittedData.BlobHash, already the blob's
// keccak256), sorted by TxIndex, padded to the next power of two.
func SubmittedRoot(entries []SubmittedData) common.Hash {
	sorted := make([]SubmittedData, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TxIndex < sorted[j].TxIndex })

	leaves := make([]common.Hash, len(sorted))
	for i, e := range sorted {
		leaves[i] = e.BlobHash
	}
	root, _ := BuildTree(leaves)
	return root
}

// BridgedRoot computes bridged_root: leaves are keccak256 of each message's
// ABI encoding, sorted by TxIndex, padded to the next power of two.
func BridgedRoot(entries []BridgedData) common.Hash {
	sorted := make([]BridgedData, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TxIndex < sorted[j].TxIndex })

	leaves := make([]common.Hash, len(sorted))
	for i, e := range sorted {
		leaves[i] = crypto.Keccak256Hash(e.AddressedMessage.Encode())
	}
	root, _ := BuildTree(leaves)
	return root
}

// DataRoot combines the two sub-tries: data_root = keccak256(submitted_root
// || bridged_root). Both-empty is handled naturally since SubmittedRoot and
// BridgedRoot both return common.Hash{} for no entries.
func DataRoot(submitted, bridged common.Hash) common.Hash {
	return crypto.Keccak256Hash(submitted[:], bridged[:])
}
