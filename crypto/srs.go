package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"os"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"

	"github.com/availproject/avail-da/errs"
)

// SRS file layout: [4-byte BE G1 count][count * 48-byte compressed G1][2 *
// 96-byte compressed G2][32-byte keccak256 checksum of everything before
// it]. Loaded at startup and checked against the trailing checksum, per
// spec.md §6's "SRS files" description.

// LoadSRS reads and validates an SRS file from disk.
func LoadSRS(path string) (*kzg.SRS, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.NotFound, err, "reading srs file %s", path)
	}
	if len(raw) < 4+32 {
		return nil, errs.New(errs.Corrupted, "srs file %s too short", path)
	}

	body := raw[:len(raw)-32]
	wantSum := raw[len(raw)-32:]
	gotSum := srsChecksum(body)
	if string(gotSum[:]) != string(wantSum) {
		return nil, errs.New(errs.Corrupted, "srs file %s checksum mismatch", path)
	}

	n := binary.BigEndian.Uint32(body[:4])
	body = body[4:]
	if len(body) != int(n)*48+2*96 {
		return nil, errs.New(errs.Corrupted, "srs file %s has inconsistent length", path)
	}

	g1s := make([]bls12381.G1Affine, n)
	for i := uint32(0); i < n; i++ {
		if _, err := g1s[i].SetBytes(body[i*48 : i*48+48]); err != nil {
			return nil, errs.Wrap(errs.Corrupted, err, "decoding g1 point %d", i)
		}
	}
	g2off := int(n) * 48
	var g2 [2]bls12381.G2Affine
	for i := 0; i < 2; i++ {
		off := g2off + i*96
		if _, err := g2[i].SetBytes(body[off : off+96]); err != nil {
			return nil, errs.Wrap(errs.Corrupted, err, "decoding g2 point %d", i)
		}
	}

	return &kzg.SRS{
		Pk: kzg.ProvingKey{G1: g1s},
		Vk: kzg.VerifyingKey{G1: g1s[0], G2: g2},
	}, nil
}

// SaveSRS serializes an SRS to disk in the LoadSRS layout, appending the
// integrity checksum.
func SaveSRS(path string, srs *kzg.SRS) error {
	var body []byte
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(srs.Pk.G1)))
	body = append(body, lenBuf[:]...)
	for _, p := range srs.Pk.G1 {
		b := p.Bytes()
		body = append(body, b[:]...)
	}
	for _, p := range srs.Vk.G2 {
		b := p.Bytes()
		body = append(body, b[:]...)
	}
	sum := srsChecksum(body)
	body = append(body, sum[:]...)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return errs.Wrap(errs.WriteFailed, err, "writing srs file %s", path)
	}
	return nil
}

// NewDevSRS generates a fresh, insecure SRS of the given size for local
// development and tests. The toxic waste is discarded but not verifiably
// destroyed, so this must never back a production deployment.
func NewDevSRS(size uint64) (*kzg.SRS, error) {
	alpha, err := rand.Int(rand.Reader, fr_modulus())
	if err != nil {
		return nil, fmt.Errorf("generating srs toxic waste: %w", err)
	}
	return kzg.NewSRS(size, alpha)
}

func fr_modulus() *big.Int {
	// bls12-381 scalar field modulus.
	m, _ := new(big.Int).SetString("73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001", 16)
	return m
}
