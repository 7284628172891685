package kate

import (
	"encoding/binary"
	"sort"

	"github.com/availproject/avail-da/crypto"
	"github.com/availproject/avail-da/errs"
)

// AppEntry records the scalar offset at which an app_id's data begins
// within the grid's row-major scalar sequence.
type AppEntry struct {
	AppID uint32
	Start uint32
}

// AppLookup maps app_id to its contiguous scalar range within the original
// (pre-extension) grid. Invariant: Start is strictly increasing across
// Index, every Start < Size, and Size <= rows*cols.
type AppLookup struct {
	Size  uint32
	Index []AppEntry
}

// Grid is an R x C row-major matrix of Scalars.
type Grid struct {
	Rows int
	Cols int
	Data []Scalar // len == Rows*Cols, row-major
}

// At returns the scalar at (row, col).
func (g *Grid) At(row, col int) Scalar {
	return g.Data[row*g.Cols+col]
}

// Row returns the scalars of row r.
func (g *Grid) Row(r int) []Scalar {
	return g.Data[r*g.Cols : (r+1)*g.Cols]
}

// AppScalars pairs an app_id with its padded scalars, the input unit to
// BuildGrid.
type AppScalars struct {
	AppID   uint32
	Scalars []Scalar
}

// GridConfig bounds grid dimensions and supplies the deterministic-fill
// seed used to pad the grid out to R*C scalars.
type GridConfig struct {
	MaxRows   int
	MaxCols   int
	MinCols   int // smallest C considered; defaults to 4 if zero
	BlockSeed [32]byte
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// BuildGrid sorts apps by app_id (stable), concatenates their scalars,
// records AppLookup boundaries, rounds the total up to R*C by growing C
// (starting from MinCols, doubling) and then R within MaxRows, and fills
// the remainder deterministically. Grounded on
// original_source/kate/grid/src/grid.rs.
func BuildGrid(apps []AppScalars, cfg GridConfig) (*Grid, AppLookup, error) {
	minCols := cfg.MinCols
	if minCols == 0 {
		minCols = 4
	}

	sorted := make([]AppScalars, len(apps))
	copy(sorted, apps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AppID < sorted[j].AppID
	})

	lookup := AppLookup{}
	var concat []Scalar
	for _, a := range sorted {
		lookup.Index = append(lookup.Index, AppEntry{AppID: a.AppID, Start: uint32(len(concat))})
		concat = append(concat, a.Scalars...)
	}
	total := len(concat)
	lookup.Size = uint32(total)

	rows, cols, err := fitDimensions(total, minCols, cfg.MaxCols, cfg.MaxRows)
	if err != nil {
		return nil, AppLookup{}, err
	}

	data := make([]Scalar, rows*cols)
	copy(data, concat)
	for i := total; i < len(data); i++ {
		data[i] = fillScalar(cfg.BlockSeed, i)
	}

	return &Grid{Rows: rows, Cols: cols, Data: data}, lookup, nil
}

// fitDimensions finds the smallest (rows, cols) pair, powers of two, with
// minCols <= cols <= maxCols and rows <= maxRows, such that rows*cols >=
// total. Fails CapacityExceeded if no such pair exists even at cols =
// maxCols.
func fitDimensions(total, minCols, maxCols, maxRows int) (int, int, error) {
	if !isPow2(minCols) {
		minCols = nextPow2(minCols)
	}
	for cols := minCols; cols <= maxCols; cols *= 2 {
		rows := nextPow2((total + cols - 1) / cols)
		if rows < 1 {
			rows = 1
		}
		if rows <= maxRows {
			return rows, cols, nil
		}
	}
	return 0, 0, errs.New(errs.CapacityExceeded, "total scalars %d exceeds capacity at maxCols=%d maxRows=%d", total, maxCols, maxRows)
}

// fillScalar deterministically derives a fill Scalar for slot index from
// the block seed: keccak256(seed || index_be), high byte zeroed to
// preserve the reduction-free invariant.
func fillScalar(seed [32]byte, index int) Scalar {
	var idxBuf [8]byte
	binary.BigEndian.PutUint64(idxBuf[:], uint64(index))
	h := crypto.Keccak256(seed[:], idxBuf[:])
	var s Scalar
	copy(s[1:], h[:31])
	return s
}
