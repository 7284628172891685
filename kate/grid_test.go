package kate

import (
	"testing"
)

func makeScalars(n int, fill byte) []Scalar {
	out := make([]Scalar, n)
	for i := range out {
		out[i][1] = fill
	}
	return out
}

func TestBuildGridSortsByAppID(t *testing.T) {
	apps := []AppScalars{
		{AppID: 5, Scalars: makeScalars(2, 0xAA)},
		{AppID: 1, Scalars: makeScalars(2, 0xBB)},
	}
	_, lookup, err := BuildGrid(apps, GridConfig{MaxRows: 64, MaxCols: 16})
	if err != nil {
		t.Fatal(err)
	}
	if len(lookup.Index) != 2 {
		t.Fatalf("expected 2 app-lookup entries, got %d", len(lookup.Index))
	}
	if lookup.Index[0].AppID != 1 || lookup.Index[1].AppID != 5 {
		t.Errorf("app lookup not sorted: got %+v", lookup.Index)
	}
	if lookup.Index[0].Start != 0 {
		t.Errorf("first entry start = %d, want 0", lookup.Index[0].Start)
	}
	if lookup.Index[1].Start != 2 {
		t.Errorf("second entry start = %d, want 2", lookup.Index[1].Start)
	}
}

func TestBuildGridDimensionsArePowersOfTwo(t *testing.T) {
	apps := []AppScalars{{AppID: 0, Scalars: makeScalars(100, 0x01)}}
	grid, _, err := BuildGrid(apps, GridConfig{MaxRows: 1024, MaxCols: 64})
	if err != nil {
		t.Fatal(err)
	}
	if !isPow2(grid.Rows) {
		t.Errorf("rows %d not a power of two", grid.Rows)
	}
	if !isPow2(grid.Cols) {
		t.Errorf("cols %d not a power of two", grid.Cols)
	}
	if grid.Rows*grid.Cols < 100 {
		t.Errorf("grid capacity %d < total scalars 100", grid.Rows*grid.Cols)
	}
}

func TestBuildGridFillIsDeterministic(t *testing.T) {
	apps := []AppScalars{{AppID: 0, Scalars: makeScalars(3, 0x01)}}
	cfg := GridConfig{MaxRows: 64, MaxCols: 4, BlockSeed: [32]byte{1, 2, 3}}
	g1, _, err := BuildGrid(apps, cfg)
	if err != nil {
		t.Fatal(err)
	}
	g2, _, err := BuildGrid(apps, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := range g1.Data {
		if g1.Data[i] != g2.Data[i] {
			t.Fatalf("fill scalar at %d differs between runs", i)
		}
	}
	// Fill scalars must not all be zero (distinguishing them from unfilled rounding).
	total := 3
	allZero := true
	for i := total; i < len(g1.Data); i++ {
		if g1.Data[i] != (Scalar{}) {
			allZero = false
		}
	}
	if len(g1.Data) > total && allZero {
		t.Error("fill scalars should not be all-zero")
	}
}

func TestBuildGridCapacityExceeded(t *testing.T) {
	apps := []AppScalars{{AppID: 0, Scalars: makeScalars(1000, 0x01)}}
	_, _, err := BuildGrid(apps, GridConfig{MaxRows: 4, MaxCols: 4})
	if err == nil {
		t.Error("expected CapacityExceeded error")
	}
}

func TestBuildGridAllZeroRowStillValid(t *testing.T) {
	// An all-zero row (e.g. a single app of zero-valued scalars) must still
	// build without error; it is committed as a zero polynomial downstream.
	apps := []AppScalars{{AppID: 0, Scalars: make([]Scalar, 4)}}
	grid, _, err := BuildGrid(apps, GridConfig{MaxRows: 64, MaxCols: 4})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range grid.Row(0) {
		if s != (Scalar{}) {
			t.Error("expected an all-zero first row")
			break
		}
	}
}
