// kzg_bls_adapter.go wraps gnark-crypto's native (non-circuit) bls12-381 KZG
// package behind a small Backend type, the same wrapping pattern the
// teacher used for its go-eth-kzg adapter: all ceremony-library specifics
// are contained to this one file, so a version mismatch in the upstream
// API surface is a one-file fix rather than a pipeline-wide one. Grounded
// on vocdoni-davinci-node/crypto/blobs/kzg.go's use of the bls12-381
// family and gnark's SRS/point-decoding conventions.
package crypto

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"

	"github.com/availproject/avail-da/errs"
)

// Commitment is a 48-byte compressed bls12-381 G1 point.
type Commitment [48]byte

// Proof is a 48-byte compressed bls12-381 G1 opening proof.
type Proof [48]byte

// KZGBackend wraps an SRS and exposes commit/open/verify in terms of the
// pipeline's Commitment/Proof wire types.
type KZGBackend struct {
	srs *kzg.SRS
}

// NewKZGBackend wraps a loaded SRS.
func NewKZGBackend(srs *kzg.SRS) *KZGBackend {
	return &KZGBackend{srs: srs}
}

// MaxDomainSize returns the largest polynomial degree+1 this backend's SRS
// can commit to.
func (b *KZGBackend) MaxDomainSize() int {
	return len(b.srs.Pk.G1)
}

// Commit commits to a polynomial in coefficient form. Fails SrsTooSmall if
// the polynomial's degree exceeds the SRS.
func (b *KZGBackend) Commit(poly []fr.Element) (Commitment, error) {
	if len(poly) > len(b.srs.Pk.G1) {
		return Commitment{}, errs.New(errs.SrsTooSmall, "poly degree %d exceeds srs size %d", len(poly), len(b.srs.Pk.G1))
	}
	digest, err := kzg.Commit(poly, b.srs.Pk)
	if err != nil {
		return Commitment{}, errs.Wrap(errs.BadCommitment, err, "kzg commit failed")
	}
	return commitmentFromPoint(digest), nil
}

// Open generates an opening proof of poly at point.
func (b *KZGBackend) Open(poly []fr.Element, point fr.Element) (Proof, fr.Element, error) {
	if len(poly) > len(b.srs.Pk.G1) {
		return Proof{}, fr.Element{}, errs.New(errs.SrsTooSmall, "poly degree %d exceeds srs size %d", len(poly), len(b.srs.Pk.G1))
	}
	opening, err := kzg.Open(poly, point, b.srs.Pk)
	if err != nil {
		return Proof{}, fr.Element{}, errs.Wrap(errs.BadProof, err, "kzg open failed")
	}
	return proofFromPoint(opening.H), opening.ClaimedValue, nil
}

// Verify checks a proof against a commitment at the given point and
// claimed value.
func (b *KZGBackend) Verify(commitment Commitment, proof Proof, point fr.Element, value fr.Element) bool {
	digest, err := pointFromCommitment(commitment)
	if err != nil {
		return false
	}
	h, err := pointFromProof(proof)
	if err != nil {
		return false
	}
	opening := kzg.OpeningProof{H: h, ClaimedValue: value}
	return kzg.Verify(&digest, &opening, point, b.srs.Vk) == nil
}

func commitmentFromPoint(p bls12381.G1Affine) Commitment {
	return Commitment(p.Bytes())
}

func proofFromPoint(p bls12381.G1Affine) Proof {
	return Proof(p.Bytes())
}

func pointFromCommitment(c Commitment) (bls12381.G1Affine, error) {
	var p bls12381.G1Affine
	_, err := p.SetBytes(c[:])
	return p, err
}

func pointFromProof(p Proof) (bls12381.G1Affine, error) {
	var pt bls12381.G1Affine
	_, err := pt.SetBytes(p[:])
	return pt, err
}

// srsChecksum computes the trailing integrity checksum over an SRS file's
// point data, matching the validate-on-load step spec.md §6 requires.
func srsChecksum(data []byte) [32]byte {
	var out [32]byte
	copy(out[:], Keccak256(data))
	return out
}

// EncodeSRSLength encodes a G1 power count as the 4-byte big-endian length
// prefix of the SRS file layout. LoadSRS and SaveSRS frame that prefix
// themselves and do not call it.
func EncodeSRSLength(n uint32) [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return b
}
