package kate

import (
	"github.com/availproject/avail-da/crypto"
)

// CommitExtendedGrid re-interpolates each row of the extended grid (2R
// rows, each C evaluations over the column domain) into coefficient form,
// then commits each row polynomial. The committed-row sequence length
// equals 2R, matching spec.md §4.5.
func CommitExtendedGrid(extended *Grid, backend *crypto.KZGBackend) ([]crypto.Commitment, error) {
	polyGrid, err := InterpolateRows(extended)
	if err != nil {
		return nil, err
	}
	commitments := make([]crypto.Commitment, len(polyGrid.Rows))
	for i, row := range polyGrid.Rows {
		c, err := backend.Commit(row.Coeffs)
		if err != nil {
			return nil, err
		}
		commitments[i] = c
	}
	return commitments, nil
}

// CommitmentBytes flattens a commitment sequence into the concatenated
// 48-byte-per-row wire form used by SubmittedData.commitments and the
// header extension.
func CommitmentBytes(commitments []crypto.Commitment) []byte {
	out := make([]byte, 0, len(commitments)*48)
	for _, c := range commitments {
		out = append(out, c[:]...)
	}
	return out
}

// ParseCommitments splits a flat 48-byte-per-row buffer back into
// individual commitments.
func ParseCommitments(buf []byte) []crypto.Commitment {
	n := len(buf) / 48
	out := make([]crypto.Commitment, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], buf[i*48:(i+1)*48])
	}
	return out
}
