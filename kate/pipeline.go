package kate

import (
	"github.com/availproject/avail-da/crypto"
	"github.com/availproject/avail-da/errs"
)

func errRowOutOfBounds(row, n int) error {
	return errs.New(errs.OutOfBoundsCell, "row %d out of bounds [0,%d)", row, n)
}

// CommittedGrid is the full output of the C1-C6 pipeline for one block's
// worth of app data: the extended grid, its app lookup, per-row
// commitments, and the re-interpolated polynomials needed to answer
// kate_queryProof without redoing the FFT extension.
type CommittedGrid struct {
	Extended    *Grid
	Lookup      AppLookup
	Commitments []crypto.Commitment
	Polys       *PolyGrid
}

// BuildCommittedGrid runs the full pipeline: pad+chunk is assumed already
// done by the caller (apps carry pre-padded Scalars), grid-build (C2),
// column extension (C4), row re-interpolation, and KZG commitment (C5).
func BuildCommittedGrid(apps []AppScalars, cfg GridConfig, backend *crypto.KZGBackend) (*CommittedGrid, error) {
	grid, lookup, err := BuildGrid(apps, cfg)
	if err != nil {
		return nil, err
	}
	extended, err := ExtendColumns(grid)
	if err != nil {
		return nil, err
	}
	polys, err := InterpolateRows(extended)
	if err != nil {
		return nil, err
	}
	commitments := make([]crypto.Commitment, len(polys.Rows))
	for i, row := range polys.Rows {
		c, err := backend.Commit(row.Coeffs)
		if err != nil {
			return nil, err
		}
		commitments[i] = c
	}
	return &CommittedGrid{Extended: extended, Lookup: lookup, Commitments: commitments, Polys: polys}, nil
}

// ProveCell produces the opening proof for (row, col) on the extended
// grid.
func (cg *CommittedGrid) ProveCell(row, col int, backend *crypto.KZGBackend) (DataCell, error) {
	if row < 0 || row >= len(cg.Polys.Rows) {
		return DataCell{}, errRowOutOfBounds(row, len(cg.Polys.Rows))
	}
	cell, err := Prove(cg.Polys.Rows[row], cg.Extended.Cols, col, backend)
	if err != nil {
		return DataCell{}, err
	}
	cell.Row = row
	return cell, nil
}

// VerifyCell checks a previously produced cell's proof.
func (cg *CommittedGrid) VerifyCell(cell DataCell, backend *crypto.KZGBackend) bool {
	if cell.Row < 0 || cell.Row >= len(cg.Commitments) {
		return false
	}
	return Verify(cg.Commitments[cell.Row], cg.Extended.Cols, cell.Col, cell, backend)
}
