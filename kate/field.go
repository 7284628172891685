package kate

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
)

// scalarToFr converts a wire Scalar (32-byte big-endian, leading byte
// zero) into a field element.
func scalarToFr(s Scalar) fr.Element {
	var e fr.Element
	e.SetBytes(s[:])
	return e
}

// frToScalar converts a field element back to its 32-byte big-endian wire
// representation.
func frToScalar(e fr.Element) Scalar {
	b := e.Bytes()
	return Scalar(b)
}

// rowToFr converts a grid row of Scalars to field elements.
func rowToFr(row []Scalar) []fr.Element {
	out := make([]fr.Element, len(row))
	for i, s := range row {
		out[i] = scalarToFr(s)
	}
	return out
}

// ifft interpolates evaluations on domain's subgroup into coefficient form.
func ifft(domain *fft.Domain, evals []fr.Element) []fr.Element {
	coeffs := make([]fr.Element, len(evals))
	copy(coeffs, evals)
	domain.FFTInverse(coeffs, fft.DIF)
	fft.BitReverse(coeffs)
	return coeffs
}

// fftEval evaluates a coefficient-form polynomial on domain's subgroup.
func fftEval(domain *fft.Domain, coeffs []fr.Element) []fr.Element {
	evals := make([]fr.Element, len(coeffs))
	copy(evals, coeffs)
	fft.BitReverse(evals)
	domain.FFT(evals, fft.DIT)
	return evals
}
