package kate

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
)

// RowPolynomial is a row's interpolating polynomial, in coefficient form
// over the column domain (size Grid.Cols).
type RowPolynomial struct {
	Coeffs []fr.Element
}

// PolyGrid holds one interpolated polynomial per original (non-extended)
// row. Grounded on spec.md §4.3: each row is treated as evaluations on the
// column domain and IFFT'd to monomial-basis coefficients.
type PolyGrid struct {
	Rows []RowPolynomial
}

// InterpolateRows computes the IFFT of every row of g over a domain of
// size g.Cols (the "column domain").
func InterpolateRows(g *Grid) (*PolyGrid, error) {
	domain := fft.NewDomain(uint64(g.Cols))
	rows := make([]RowPolynomial, g.Rows)
	for r := 0; r < g.Rows; r++ {
		evals := rowToFr(g.Row(r))
		coeffs := ifft(domain, evals)
		rows[r] = RowPolynomial{Coeffs: coeffs}
	}
	return &PolyGrid{Rows: rows}, nil
}

// Evaluate evaluates the row polynomial at an arbitrary point by Horner's
// rule. The cell prover does not call it; Prove takes the opening value
// from the KZG backend's Open.
func (p RowPolynomial) Evaluate(point fr.Element) fr.Element {
	var result fr.Element
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		result.Mul(&result, &point)
		result.Add(&result, &p.Coeffs[i])
	}
	return result
}
