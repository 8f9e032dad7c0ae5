// Package tilemap implements the grid of tiles belonging to one IFD (spec
// §4.F). A Map owns a flat vector of tiles and an index from (plane, col,
// row) to a position in that vector — the arena-plus-index shape that
// replaces the cyclic ifd↔tile↔map references the engine would otherwise
// need (spec §9). The IFD itself is owned by the Map; tiles borrow it
// read-only for the duration of one encode or decode call.
package tilemap

import (
	"fmt"

	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/tile"
)

// Map is the grid {(plane, col, row)} of tiles for one image, plus the
// sizing state needed to resolve new tiles on demand and, in resizable
// mode, to grow the grid as tiles are written (spec §4.F).
type Map struct {
	d *ifd.IFD

	tiles []*tile.Tile
	index map[tile.Index]int

	tileSizeX, tileSizeY         int
	tilesPerRow, tilesPerColumn  int
	planeCount                   int
	bytesPerSample               int

	// resizable maps start with no known extent and grow to cover every
	// tile actually written; CompleteImageGrid rounds the extent up to whole
	// tiles (spec §4.F).
	resizable  bool
	maxColSeen int
	maxRowSeen int
	haveAny    bool
}

// New builds a Map over d's existing tile/strip geometry. Use NewResizable
// when the final image extent isn't known up front (the writer's
// incremental-write path).
func New(d *ifd.IFD, bytesPerSample int) (*Map, error) {
	m, err := newMap(d, bytesPerSample, false)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewResizable builds a Map whose grid extent is unknown until
// CompleteImageGrid is called, used while writing an image incrementally
// without knowing its final size ahead of time (spec §4.F, §4.H).
func NewResizable(d *ifd.IFD, tileSizeX, tileSizeY, planeCount, bytesPerSample int) (*Map, error) {
	if tileSizeX <= 0 || tileSizeY <= 0 {
		return nil, fmt.Errorf("tilemap: invalid tile size %dx%d", tileSizeX, tileSizeY)
	}
	return &Map{
		d:              d,
		index:          make(map[tile.Index]int),
		tileSizeX:      tileSizeX,
		tileSizeY:      tileSizeY,
		planeCount:     planeCount,
		bytesPerSample: bytesPerSample,
		resizable:      true,
	}, nil
}

func newMap(d *ifd.IFD, bytesPerSample int, resizable bool) (*Map, error) {
	tx, err := d.TileSizeX()
	if err != nil {
		return nil, err
	}
	ty, err := d.TileSizeY()
	if err != nil {
		return nil, err
	}
	tpr, err := d.TilesPerRow()
	if err != nil {
		return nil, err
	}
	tpc, err := d.TilesPerColumn()
	if err != nil {
		return nil, err
	}
	return &Map{
		d:               d,
		index:           make(map[tile.Index]int),
		tileSizeX:       tx,
		tileSizeY:       ty,
		tilesPerRow:     tpr,
		tilesPerColumn:  tpc,
		planeCount:      d.PlaneCount(),
		bytesPerSample:  bytesPerSample,
		resizable:       resizable,
	}, nil
}

// IFD returns the directory this map belongs to. Callers must treat it as
// read-only while tiles are being encoded or decoded through the map.
func (m *Map) IFD() *ifd.IFD { return m.d }

// NumberOfGridTiles returns tilesPerRow * tilesPerColumn * planeCount (spec
// §4.F).
func (m *Map) NumberOfGridTiles() int {
	return m.tilesPerRow * m.tilesPerColumn * m.planeCount
}

// GetOrNew returns the tile at idx, creating an empty one at the nominal
// grid size on first access.
func (m *Map) GetOrNew(idx tile.Index) (*tile.Tile, error) {
	if pos, ok := m.index[idx]; ok {
		return m.tiles[pos], nil
	}
	if err := m.checkIndex(idx); err != nil {
		return nil, err
	}
	t := tile.New(idx, m.tileSizeX, m.tileSizeY)
	m.tiles = append(m.tiles, t)
	m.index[idx] = len(m.tiles) - 1

	if m.resizable {
		if idx.Col > m.maxColSeen || !m.haveAny {
			m.maxColSeen = idx.Col
		}
		if idx.Row > m.maxRowSeen || !m.haveAny {
			m.maxRowSeen = idx.Row
		}
		m.haveAny = true
	}
	return t, nil
}

// Get returns the tile at idx without creating it.
func (m *Map) Get(idx tile.Index) (*tile.Tile, bool) {
	pos, ok := m.index[idx]
	if !ok {
		return nil, false
	}
	return m.tiles[pos], true
}

func (m *Map) checkIndex(idx tile.Index) error {
	if idx.Plane < 0 || idx.Plane >= m.planeCount {
		return fmt.Errorf("tilemap: plane %d out of range [0,%d)", idx.Plane, m.planeCount)
	}
	if m.resizable {
		if idx.Col < 0 || idx.Row < 0 {
			return fmt.Errorf("tilemap: negative tile coordinate %v", idx)
		}
		return nil
	}
	if idx.Col < 0 || idx.Col >= m.tilesPerRow {
		return fmt.Errorf("tilemap: column %d out of range [0,%d)", idx.Col, m.tilesPerRow)
	}
	if idx.Row < 0 || idx.Row >= m.tilesPerColumn {
		return fmt.Errorf("tilemap: row %d out of range [0,%d)", idx.Row, m.tilesPerColumn)
	}
	return nil
}

// Resizable reports whether this map's grid extent is still open, i.e.
// CompleteImageGrid has not yet been called on it.
func (m *Map) Resizable() bool { return m.resizable }

// TileSize returns the nominal tile pixel extent.
func (m *Map) TileSize() (int, int) { return m.tileSizeX, m.tileSizeY }

// Grid returns the current tilesPerRow, tilesPerColumn, planeCount.
func (m *Map) Grid() (int, int, int) { return m.tilesPerRow, m.tilesPerColumn, m.planeCount }

// CropAll truncates the height of every bottom-row tile to the remaining
// image rows, for stripped images whose height isn't a multiple of the
// strip height (spec §4.E). Truncation never applies to a genuinely tiled
// image: libtiff-style readers reject non-nominal tile dimensions, so
// truncateEdges has no effect unless the directory is untiled.
//
// channels and bytesPerSample describe the layout already packed into each
// tile's Decoded buffer (the caller's own values, since the map itself only
// tracks bytesPerSample for sizing a fresh tile): a cropped tile's buffer is
// repacked down to its new height right here, before Encode ever sees it, so
// a plane-major multi-channel tile's per-channel stride stays consistent
// with its shrunk Height instead of Encode slicing planes at the stale
// nominal stride.
func (m *Map) CropAll(truncateEdges bool, channels, bytesPerSample int) error {
	if !truncateEdges || m.d.IsTiled() {
		return nil
	}
	h, err := m.d.ImageHeight()
	if err != nil {
		return err
	}
	for _, t := range m.tiles {
		rowStart := t.Index.Row * m.tileSizeY
		remaining := h - rowStart
		if remaining < 0 {
			remaining = 0
		}
		if remaining < t.Height {
			if t.Decoded != nil {
				t.Decoded = cropDecoded(t.Decoded, t.Width, t.Height, remaining, channels, bytesPerSample, t.Interleaved)
			}
			t.Height = remaining
		}
	}
	return nil
}

// cropDecoded repacks a tile's decoded buffer from its nominal height down
// to newHeight. Row-major data (chunky-interleaved, or a single channel,
// where every row is already contiguous across the whole pixel) just gets
// truncated. Plane-major data (auto-interleave's separated-planes staging
// buffer, channels>1) must be repacked per channel, since each plane's
// stride is nominalHeight-sized and simply slicing the tail would read the
// next channel's rows instead of nothing.
func cropDecoded(data []byte, width, nominalHeight, newHeight, channels, bytesPerSample int, interleaved bool) []byte {
	if interleaved || channels <= 1 {
		n := width * newHeight * channels * bytesPerSample
		if n > len(data) {
			n = len(data)
		}
		return data[:n]
	}
	oldPlaneSize := width * nominalHeight * bytesPerSample
	newPlaneSize := width * newHeight * bytesPerSample
	out := make([]byte, newPlaneSize*channels)
	for c := 0; c < channels; c++ {
		srcStart := c * oldPlaneSize
		copy(out[c*newPlaneSize:(c+1)*newPlaneSize], data[srcStart:srcStart+newPlaneSize])
	}
	return out
}

// CompleteImageGrid finalises dimX/dimY for a resizable map from the union
// of tiles actually written, and fixes tilesPerRow/tilesPerColumn
// accordingly. It must be called exactly once, before the map's tiles are
// flushed by a writer's complete-image step (spec §4.F, §4.H).
func (m *Map) CompleteImageGrid() (dimX, dimY int, err error) {
	if !m.resizable {
		return 0, 0, fmt.Errorf("tilemap: CompleteImageGrid called on a non-resizable map")
	}
	if !m.haveAny {
		return 0, 0, nil
	}
	m.tilesPerRow = m.maxColSeen + 1
	m.tilesPerColumn = m.maxRowSeen + 1
	dimX = m.tilesPerRow * m.tileSizeX
	dimY = m.tilesPerColumn * m.tileSizeY
	m.resizable = false
	return dimX, dimY, nil
}

// Tiles returns every tile currently in the map, in plane-major,
// row-major, column-major order — the ordering guarantee a writer's
// complete-image step relies on to produce monotonically increasing file
// offsets for the common chunky case (spec §9).
func (m *Map) Tiles() []*tile.Tile {
	out := make([]*tile.Tile, len(m.tiles))
	copy(out, m.tiles)
	orderTiles(out)
	return out
}

func orderTiles(tiles []*tile.Tile) {
	less := func(i, j int) bool {
		a, b := tiles[i].Index, tiles[j].Index
		if a.Plane != b.Plane {
			return a.Plane < b.Plane
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	}
	// Small grids in practice; an insertion sort keeps this package free of
	// a sort.Interface adapter type.
	for i := 1; i < len(tiles); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			tiles[j], tiles[j-1] = tiles[j-1], tiles[j]
		}
	}
}
