// Package tile models one rectangular block of a plane — the unit the
// engine reads, decodes, encodes and writes (spec §4.E, §9). A tiled image's
// blocks map directly onto tiles; a stripped image is modelled as tiles one
// strip tall and as wide as the image, so the rest of the engine never has
// to special-case strips.
package tile

import "fmt"

// Index locates one tile within an image: which plane (0 for chunky images,
// sample index for planar-separated images), and its column/row within that
// plane's grid.
type Index struct {
	Plane int
	Col   int
	Row   int
}

func (i Index) String() string {
	return fmt.Sprintf("tile(plane=%d,col=%d,row=%d)", i.Plane, i.Col, i.Row)
}

// State tracks where a Tile sits in its created → decoded/encoded → written
// lifecycle (spec §9).
type State int

const (
	// Created marks a tile that exists only as an index entry: no bytes
	// loaded or produced yet.
	Created State = iota

	// Decoded marks a tile holding raw, uncompressed, transform-reversed
	// pixel bytes ready for direct pixel access.
	Decoded

	// Encoded marks a tile holding compressed, on-disk-ready bytes, not yet
	// flushed to a stream.
	Encoded

	// Written marks a tile whose encoded bytes have been committed to the
	// underlying stream at StoredOffset.
	Written
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Decoded:
		return "Decoded"
	case Encoded:
		return "Encoded"
	case Written:
		return "Written"
	default:
		return "Unknown"
	}
}

// Tile is one block of image data at a point in its lifecycle. Width and
// Height are this tile's own pixel extent; Height may be smaller than the
// nominal strip height for the bottom strip of a stripped image (spec
// §4.F).
type Tile struct {
	Index Index

	Width  int
	Height int

	// Interleaved reports whether Decoded holds chunky-interleaved samples
	// (true) or plane-major samples (false): a single plane for
	// PlanarConfig==Separate tiles, or the writer's auto-interleave staging
	// buffer with each channel's plane stored one after another.
	Interleaved bool

	State State

	// Decoded holds uncompressed pixel bytes once SetDecoded has installed
	// them; a tile that goes straight from Created to Encoded has none.
	Decoded []byte

	// Encoded holds compressed, on-disk-ready bytes once State >= Encoded.
	Encoded []byte

	// StoredOffset and StoredLength record this tile's position once
	// State == Written, mirroring one element of the TileOffsets/
	// TileByteCounts (or StripOffsets/StripByteCounts) arrays.
	StoredOffset uint64
	StoredLength uint64
}

// New returns a tile at the Created state for the given index and nominal
// pixel extent.
func New(idx Index, width, height int) *Tile {
	return &Tile{Index: idx, Width: width, Height: height, State: Created}
}

// SetDecoded installs decoded pixel bytes and advances the tile to the
// Decoded state, discarding any previously encoded bytes (they no longer
// correspond to this data).
func (t *Tile) SetDecoded(data []byte, interleaved bool) {
	t.Decoded = data
	t.Interleaved = interleaved
	t.Encoded = nil
	t.State = Decoded
}

// SetEncoded installs compressed bytes and advances the tile to the Encoded
// state.
func (t *Tile) SetEncoded(data []byte) {
	t.Encoded = data
	t.State = Encoded
}

// MarkWritten records this tile's final position in the stream and advances
// it to the Written state.
func (t *Tile) MarkWritten(offset, length uint64) {
	t.StoredOffset = offset
	t.StoredLength = length
	t.State = Written
}
