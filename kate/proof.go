package kate

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"

	"github.com/availproject/avail-da/crypto"
	"github.com/availproject/avail-da/errs"
)

// DataCell is a single opened cell of the extended grid: (row, col,
// scalar, proof). Invariant: Verify(commitment[row], point(col), scalar,
// proof) == true.
type DataCell struct {
	Row    int
	Col    int
	Scalar Scalar
	Proof  crypto.Proof
}

// domainPoint computes the i-th element of domain's multiplicative
// subgroup (domain.Generator^i).
func domainPoint(domain *fft.Domain, i int) fr.Element {
	var p fr.Element
	p.Exp(domain.Generator, big.NewInt(int64(i)))
	return p
}

// Prove generates the opening of an extended row's polynomial at the
// domain point corresponding to col. The zero-degree (constant
// polynomial) case is not special-cased: Open operates uniformly on the
// coefficient slice regardless of how many leading coefficients are zero.
func Prove(row RowPolynomial, cols int, col int, backend *crypto.KZGBackend) (DataCell, error) {
	if col < 0 || col >= cols {
		return DataCell{}, errs.New(errs.OutOfBoundsCell, "col %d out of bounds [0,%d)", col, cols)
	}
	domain := fft.NewDomain(uint64(cols))
	point := domainPoint(domain, col)

	proof, value, err := backend.Open(row.Coeffs, point)
	if err != nil {
		return DataCell{}, err
	}
	return DataCell{Col: col, Scalar: frToScalar(value), Proof: proof}, nil
}

// Verify checks a cell's proof against the row's commitment.
func Verify(commitment crypto.Commitment, cols int, col int, cell DataCell, backend *crypto.KZGBackend) bool {
	if col < 0 || col >= cols {
		return false
	}
	domain := fft.NewDomain(uint64(cols))
	point := domainPoint(domain, col)
	value := scalarToFr(cell.Scalar)
	return backend.Verify(commitment, cell.Proof, point, value)
}

// EncodeCell serializes a DataCell to the system-boundary encoding:
// content[0:48] = proof bytes, content[48:80] = scalar bytes big-endian.
func EncodeCell(cell DataCell) [80]byte {
	var out [80]byte
	copy(out[0:48], cell.Proof[:])
	copy(out[48:80], cell.Scalar[:])
	return out
}

// DecodeCell parses the system-boundary cell encoding back into a proof
// and scalar (row/col are contextual and not carried in this encoding).
func DecodeCell(buf [80]byte) (crypto.Proof, Scalar) {
	var proof crypto.Proof
	var scalar Scalar
	copy(proof[:], buf[0:48])
	copy(scalar[:], buf[48:80])
	return proof, scalar
}
