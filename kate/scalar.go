// Package kate implements the Kate commitment pipeline: scalar encoding,
// grid construction, row interpolation, column extension, KZG commitments,
// and cell proofs (spec components C1-C6). Grounded on
// original_source/kate/src/lib.rs and original_source/kate/grid/src/grid.rs;
// field and pairing arithmetic is delegated to gnark-crypto's bls12-381
// family rather than hand-rolled, per the corpus's general preference for a
// real curve library over ad hoc arithmetic.
package kate

import (
	"github.com/availproject/avail-da/errs"
)

// ChunkSize is the number of raw data bytes packed per Scalar. One zero byte
// is prepended so every Scalar's big-endian representation is reduction-free
// against the bls12-381 scalar field.
const ChunkSize = 31

// Scalar is a 32-byte field element: one leading zero byte (the invariant
// from spec.md §3 - "every scalar derived from user data has its high byte
// equal to zero padding") followed by 31 bytes of data.
type Scalar [32]byte

// PaddedLen computes the IEC-9797-1 method-2 padded length for an input of
// n bytes: append one 0x80 marker byte, then zero-pad to a multiple of
// ChunkSize bytes.
func PaddedLen(n int) int {
	return n + 1 + ((ChunkSize - (n+1)%ChunkSize) % ChunkSize)
}

// MaxAppDataLen bounds the size of a single application's raw extrinsic
// bytes accepted by Pad. Chosen generously so the bound is reachable only
// by a pathological caller, not ordinary blobs.
const MaxAppDataLen = 256 << 20 // 256 MiB

// Pad applies IEC-9797-1 method-2 padding to data and splits the result
// into ChunkSize-byte chunks, each prepended with a zero byte to form a
// Scalar. Fails with errs.InvalidSize if data exceeds MaxAppDataLen.
func Pad(data []byte) ([]Scalar, error) {
	if len(data) > MaxAppDataLen {
		return nil, errs.New(errs.InvalidSize, "input length %d exceeds bound %d", len(data), MaxAppDataLen)
	}
	padded := make([]byte, PaddedLen(len(data)))
	copy(padded, data)
	padded[len(data)] = 0x80

	n := len(padded) / ChunkSize
	scalars := make([]Scalar, n)
	for i := 0; i < n; i++ {
		copy(scalars[i][1:], padded[i*ChunkSize:(i+1)*ChunkSize])
	}
	return scalars, nil
}

// Unpad reverses Pad: concatenates the 31 data bytes of each Scalar, then
// strips the IEC-9797-1 padding (trailing zero bytes, then the 0x80
// marker). Returns an empty slice if no marker byte is found, which should
// not happen for data produced by Pad.
func Unpad(scalars []Scalar) []byte {
	buf := make([]byte, 0, len(scalars)*ChunkSize)
	for _, s := range scalars {
		buf = append(buf, s[1:]...)
	}
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] == 0x80 {
			return buf[:i]
		}
		if buf[i] != 0x00 {
			break
		}
	}
	return buf[:0]
}

// Bytes returns the 32-byte big-endian representation of the Scalar.
func (s Scalar) Bytes() [32]byte {
	return s
}

// ScalarFromBytes constructs a Scalar from a 32-byte big-endian slice.
func ScalarFromBytes(b []byte) Scalar {
	var s Scalar
	copy(s[:], b)
	return s
}
