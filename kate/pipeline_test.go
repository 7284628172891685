package kate

import (
	"testing"

	"github.com/availproject/avail-da/crypto"
)

func testBackend(t *testing.T, size uint64) *crypto.KZGBackend {
	t.Helper()
	srs, err := crypto.NewDevSRS(size)
	if err != nil {
		t.Fatalf("NewDevSRS(%d): %v", size, err)
	}
	return crypto.NewKZGBackend(srs)
}

func TestExtendColumnsPreservesEvenRows(t *testing.T) {
	apps := []AppScalars{{AppID: 1, Scalars: makeScalars(4, 0x07)}}
	grid, _, err := BuildGrid(apps, GridConfig{MaxRows: 4, MaxCols: 4})
	if err != nil {
		t.Fatal(err)
	}
	extended, err := ExtendColumns(grid)
	if err != nil {
		t.Fatal(err)
	}
	if extended.Rows != 2*grid.Rows {
		t.Fatalf("extended rows = %d, want %d", extended.Rows, 2*grid.Rows)
	}
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			if extended.At(2*r, c) != grid.At(r, c) {
				t.Errorf("extended[%d,%d] != original[%d,%d]", 2*r, c, r, c)
			}
		}
	}
}

func TestCommitProveVerifyRoundTrip(t *testing.T) {
	backend := testBackend(t, 8)
	apps := []AppScalars{{AppID: 1, Scalars: makeScalars(4, 0x11)}}
	cg, err := BuildCommittedGrid(apps, GridConfig{MaxRows: 4, MaxCols: 4}, backend)
	if err != nil {
		t.Fatal(err)
	}
	cell, err := cg.ProveCell(0, 1, backend)
	if err != nil {
		t.Fatalf("ProveCell: %v", err)
	}
	if !cg.VerifyCell(cell, backend) {
		t.Error("expected verification to succeed for an honest cell")
	}
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	backend := testBackend(t, 8)
	apps := []AppScalars{{AppID: 1, Scalars: makeScalars(4, 0x22)}}
	cg, err := BuildCommittedGrid(apps, GridConfig{MaxRows: 4, MaxCols: 4}, backend)
	if err != nil {
		t.Fatal(err)
	}
	cell, err := cg.ProveCell(0, 2, backend)
	if err != nil {
		t.Fatal(err)
	}
	cell.Proof[0] ^= 0x80
	if cg.VerifyCell(cell, backend) {
		t.Error("expected verification to fail after flipping the high bit of proof[0]")
	}
}

func TestVerifyRejectsTamperedScalar(t *testing.T) {
	backend := testBackend(t, 8)
	apps := []AppScalars{{AppID: 1, Scalars: makeScalars(4, 0x33)}}
	cg, err := BuildCommittedGrid(apps, GridConfig{MaxRows: 4, MaxCols: 4}, backend)
	if err != nil {
		t.Fatal(err)
	}
	cell, err := cg.ProveCell(1, 0, backend)
	if err != nil {
		t.Fatal(err)
	}
	cell.Scalar[31] ^= 0x01
	if cg.VerifyCell(cell, backend) {
		t.Error("expected verification to fail after tampering with the scalar")
	}
}

func TestConstantRowProvesAndVerifies(t *testing.T) {
	// Edge case: a row of identical non-zero scalars interpolates to a
	// constant (zero-degree) polynomial; prove/verify must not special-case it.
	backend := testBackend(t, 8)
	apps := []AppScalars{{AppID: 1, Scalars: makeScalars(4, 0x55)}}
	cg, err := BuildCommittedGrid(apps, GridConfig{MaxRows: 4, MaxCols: 4}, backend)
	if err != nil {
		t.Fatal(err)
	}
	for col := 0; col < cg.Extended.Cols; col++ {
		cell, err := cg.ProveCell(0, col, backend)
		if err != nil {
			t.Fatalf("ProveCell(0,%d): %v", col, err)
		}
		if !cg.VerifyCell(cell, backend) {
			t.Errorf("VerifyCell(0,%d) failed for constant row", col)
		}
	}
}

func TestEncodeDecodeCellRoundTrip(t *testing.T) {
	cell := DataCell{Row: 1, Col: 2, Scalar: Scalar{1, 2, 3}, Proof: crypto.Proof{9, 8, 7}}
	buf := EncodeCell(cell)
	proof, scalar := DecodeCell(buf)
	if proof != cell.Proof {
		t.Error("decoded proof mismatch")
	}
	if scalar != cell.Scalar {
		t.Error("decoded scalar mismatch")
	}
}
