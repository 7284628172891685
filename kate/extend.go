package kate

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
)

// ExtendColumns doubles the number of rows by interpolating each column
// over the row domain (size g.Rows) and evaluating the result on the
// extended domain (size 2*g.Rows). Grounded on spec.md §4.4; the even rows
// of the result equal the original rows bit-for-bit, since the extended
// domain's generator squares to the row domain's generator.
func ExtendColumns(g *Grid) (*Grid, error) {
	rowDomain := fft.NewDomain(uint64(g.Rows))
	extDomain := fft.NewDomain(uint64(2 * g.Rows))

	extended := &Grid{Rows: 2 * g.Rows, Cols: g.Cols, Data: make([]Scalar, 2*g.Rows*g.Cols)}

	col := make([]fr.Element, g.Rows)
	padded := make([]fr.Element, 2*g.Rows)
	for c := 0; c < g.Cols; c++ {
		for r := 0; r < g.Rows; r++ {
			col[r] = scalarToFr(g.At(r, c))
		}
		coeffs := ifft(rowDomain, col)

		for i := range padded {
			padded[i] = fr.Element{}
		}
		copy(padded, coeffs)

		evals := fftEval(extDomain, padded)
		for r := 0; r < 2*g.Rows; r++ {
			extended.Data[r*extended.Cols+c] = frToScalar(evals[r])
		}
	}
	return extended, nil
}
