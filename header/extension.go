// Package header implements the block header extension that binds the
// Kate commitment pipeline's and tx-data-root layer's outputs into the
// block header (spec.md §4.8). Versioned; this package implements V3,
// which adds app_lookup over V2's {rows, cols, data_root, commitment}.
package header

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/availproject/avail-da/errs"
	"github.com/availproject/avail-da/kate"
	"github.com/availproject/avail-da/scale"
)

// Version identifies the wire layout of an Extension.
type Version uint8

const (
	// V3 is the only version this package encodes or decodes.
	V3 Version = 3
)

// Extension binds {rows, cols, commitments[], app_lookup, data_root} into
// the block header extension. Immutable once sealed.
type Extension struct {
	Rows        uint16
	Cols        uint16
	DataRoot    common.Hash
	Commitment  []byte // len == 48 * rows
	AppLookup   kate.AppLookup
}

// Encode serializes the extension in the V3 SCALE layout.
func Encode(ext Extension) []byte {
	e := scale.NewEncoder()
	e.PutUint8(uint8(V3))
	e.PutUint16(ext.Rows)
	e.PutUint16(ext.Cols)
	e.PutFixedBytes(ext.DataRoot[:])
	e.PutBytes(ext.Commitment)

	e.PutUint32(ext.AppLookup.Size)
	e.PutCompact(uint64(len(ext.AppLookup.Index)))
	for _, entry := range ext.AppLookup.Index {
		e.PutUint32(entry.AppID)
		e.PutUint32(entry.Start)
	}
	return e.Bytes()
}

// Decode parses a header extension, rejecting any version other than V3
// with errs.UnsupportedExtensionVersion.
func Decode(buf []byte) (Extension, error) {
	d := scale.NewDecoder(buf)

	v, err := d.GetUint8()
	if err != nil {
		return Extension{}, errs.Wrap(errs.UnsupportedExtensionVersion, err, "reading extension version")
	}
	if Version(v) != V3 {
		return Extension{}, errs.New(errs.UnsupportedExtensionVersion, "unsupported header extension version %d", v)
	}

	rows, err := d.GetUint16()
	if err != nil {
		return Extension{}, err
	}
	cols, err := d.GetUint16()
	if err != nil {
		return Extension{}, err
	}
	rootBytes, err := d.GetFixedBytes(32)
	if err != nil {
		return Extension{}, err
	}
	commitment, err := d.GetBytes()
	if err != nil {
		return Extension{}, err
	}
	size, err := d.GetUint32()
	if err != nil {
		return Extension{}, err
	}
	n, err := d.GetCompact()
	if err != nil {
		return Extension{}, err
	}
	index := make([]kate.AppEntry, n)
	for i := range index {
		appID, err := d.GetUint32()
		if err != nil {
			return Extension{}, err
		}
		start, err := d.GetUint32()
		if err != nil {
			return Extension{}, err
		}
		index[i] = kate.AppEntry{AppID: appID, Start: start}
	}

	return Extension{
		Rows:       rows,
		Cols:       cols,
		DataRoot:   common.BytesToHash(rootBytes),
		Commitment: commitment,
		AppLookup:  kate.AppLookup{Size: size, Index: index},
	}, nil
}
