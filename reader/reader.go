// Package reader implements the read path: parsing the header and IFD
// chain, fetching and decoding tiles, and assembling arbitrary pixel
// subregions from the overlapping tiles (spec §4.G).
package reader

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/echoflaresat/gotiff/codec"
	"github.com/echoflaresat/gotiff/compression"
	"github.com/echoflaresat/gotiff/directory"
	"github.com/echoflaresat/gotiff/fillorder"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/photometric"
	"github.com/echoflaresat/gotiff/pixelops"
	"github.com/echoflaresat/gotiff/planarconfig"
	"github.com/echoflaresat/gotiff/predictor"
	"github.com/echoflaresat/gotiff/stream"
	"github.com/echoflaresat/gotiff/tifftag"
	"github.com/echoflaresat/gotiff/tile"
)

// tileCacheSize bounds the decoded-tile LRU cache, mirroring the per-row/
// per-tile cache size the teacher implementation used for decoded pixel
// data (spec §4.G: tile caching is left to the reader).
const tileCacheSize = 256

// tileCacheKey identifies one decoded tile within one directory. A Reader
// may serve tiles from several IFDs (overviews, masks), so the directory
// pointer itself is part of the key alongside the tile index.
type tileCacheKey struct {
	d   *ifd.IFD
	idx tile.Index
}

// Reader parses one TIFF stream's header and IFD chain and serves tile and
// region reads against it. Not safe for concurrent use from more than one
// goroutine; callers wanting concurrent decode should drive multiple tiles
// through a Codec themselves and only use a Reader's I/O methods under
// their own serialisation (spec §9 scheduling model).
type Reader struct {
	s       stream.Stream
	hdr     directory.Header
	codecs  *codec.Registry
	opts    directory.ReadOptions
	filler  byte

	mu        sync.Mutex
	tileCache *lru.Cache // tileCacheKey -> *tile.Tile, decoded pixel data

	loaded  bool
	allIFDs []*ifd.IFD
}

// Option configures a Reader at Open time.
type Option func(*Reader)

// WithCodecs overrides the default codec registry.
func WithCodecs(r *codec.Registry) Option { return func(rd *Reader) { rd.codecs = r } }

// WithRequireValid makes directory parsing strict: malformed entries become
// hard errors instead of being skipped or truncated (spec §7).
func WithRequireValid() Option { return func(rd *Reader) { rd.opts.RequireValid = true } }

// WithFiller sets the byte ReadRegion uses to pre-fill output buffers
// before copying tile data over it (default 0).
func WithFiller(b byte) Option { return func(rd *Reader) { rd.filler = b } }

// Open parses s's header and returns a Reader ready to serve IFDs and
// tiles. It does not yet walk the IFD chain; call AllIFDs for that.
func Open(s stream.Stream, opts ...Option) (*Reader, error) {
	hdr, err := directory.ReadHeader(s)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New(tileCacheSize)
	if err != nil {
		return nil, fmt.Errorf("reader: could not create tile cache: %w", err)
	}
	r := &Reader{s: s, hdr: hdr, codecs: codec.Default(), tileCache: cache}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Header returns the parsed file header.
func (r *Reader) Header() directory.Header { return r.hdr }

// AllIFDs returns every top-level IFD in the file's chain, each followed
// immediately by any directories it references through SubIFD, in the
// order encountered. The result is cached after the first call.
func (r *Reader) AllIFDs() ([]*ifd.IFD, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.allIFDs, nil
	}

	chain, err := directory.WalkChain(r.s, r.hdr, r.opts)
	if err != nil {
		return nil, err
	}

	var all []*ifd.IFD
	for _, d := range chain {
		all = append(all, d)
		subs, err := directory.WalkSubIFDs(r.s, r.hdr, d, r.opts)
		if err != nil {
			return nil, err
		}
		all = append(all, subs...)
	}

	r.allIFDs = all
	r.loaded = true
	return all, nil
}

// Thumbnails returns the subset of AllIFDs whose NewSubfileType marks them
// as a reduced-resolution image (spec §4.G).
func (r *Reader) Thumbnails() ([]*ifd.IFD, error) {
	return filterByThumbnail(r, true)
}

// NonThumbnails returns the subset of AllIFDs that are not thumbnails.
func (r *Reader) NonThumbnails() ([]*ifd.IFD, error) {
	return filterByThumbnail(r, false)
}

func filterByThumbnail(r *Reader, want bool) ([]*ifd.IFD, error) {
	all, err := r.AllIFDs()
	if err != nil {
		return nil, err
	}
	var out []*ifd.IFD
	for _, d := range all {
		if d.IsThumbnail() == want {
			out = append(out, d)
		}
	}
	return out, nil
}

// ReadEncodedTile fetches one tile's raw, still-compressed bytes from the
// stream, splicing in JPEGTables for JPEG tiles. A tile index pointing at
// an offset of 0 (or the grid cell simply being absent) is legal under
// missing-tiles-allowed mode: ReadEncodedTile returns a tile at the Created
// state with no Encoded bytes rather than an error (spec §4.G).
func (r *Reader) ReadEncodedTile(d *ifd.IFD, idx tile.Index) (*tile.Tile, error) {
	width, height, err := r.tileDims(d, idx)
	if err != nil {
		return nil, err
	}
	t := tile.New(idx, width, height)

	linear, err := linearTileIndex(d, idx)
	if err != nil {
		return nil, err
	}

	offsets, byteCounts, err := d.DataPositioning()
	if err != nil {
		return nil, err
	}
	if linear >= len(offsets) || linear >= len(byteCounts) {
		return nil, fmt.Errorf("reader: tile %s index %d outside offset/byte-count arrays (len %d)", idx, linear, len(offsets))
	}

	offset, byteCount := offsets[linear], byteCounts[linear]
	if offset == 0 {
		return t, nil
	}

	raw := make([]byte, byteCount)
	if byteCount > 0 {
		if err := r.s.ReadAt(raw, int64(offset)); err != nil {
			return nil, fmt.Errorf("reader: tile %s: %w", idx, err)
		}
	}

	if d.Compression() == compression.JPEG {
		if tables, ok := d.Get(tifftag.JPEGTables); ok && len(tables.Raw) >= 2 {
			raw = spliceJPEGTables(tables.Raw, raw)
		}
	}

	t.SetEncoded(raw)
	return t, nil
}

// spliceJPEGTables concatenates a shared JPEGTables stream with one tile's
// compressed bytes, dropping the tables' trailing EOI marker and the
// tile's leading SOI marker so the two halves form one valid JPEG stream
// (spec §4.G, §6).
func spliceJPEGTables(tables, tileData []byte) []byte {
	if len(tileData) < 2 {
		return tileData
	}
	head := tables[:len(tables)-2]
	tail := tileData[2:]
	out := make([]byte, 0, len(head)+len(tail))
	out = append(out, head...)
	out = append(out, tail...)
	return out
}

// ReadTile returns one tile fully decoded to uncompressed, un-predicted,
// fill-order-corrected pixel data: samples narrower than 8 bits are
// expanded to one byte each, wider samples keep their on-disk byte width. A missing tile
// (offset 0) is returned unchanged from ReadEncodedTile, still at the
// Created state with nil Decoded bytes; callers gathering a region treat
// that as "leave the filler value in place" (spec §4.G).
func (r *Reader) ReadTile(d *ifd.IFD, idx tile.Index) (*tile.Tile, error) {
	key := tileCacheKey{d: d, idx: idx}
	if cached, ok := r.tileCache.Get(key); ok {
		return cached.(*tile.Tile), nil
	}

	t, err := r.ReadEncodedTile(d, idx)
	if err != nil {
		return nil, err
	}
	if t.State != tile.Encoded {
		return t, nil
	}

	bps, err := d.BitsPerSample()
	if err != nil {
		return nil, err
	}
	bits := bps[0]
	bytesPerSample := bits / 8
	if bits%8 != 0 {
		bytesPerSample = 0
	}

	channels := d.SamplesPerPixel()
	if d.PlanarConfig() == planarconfig.Separate {
		channels = 1
	}

	onDiskBytes := bytesPerSample
	if onDiskBytes == 0 {
		onDiskBytes = 1 // packed sub-byte samples are handled as a raw byte stream below
	}

	c, err := r.codecs.Get(d.Compression())
	if err != nil {
		return nil, fmt.Errorf("reader: tile %s: %w", idx, err)
	}
	decoded, err := c.Decompress(t.Encoded, codec.Options{
		Width:          t.Width,
		Height:         t.Height,
		Channels:       channels,
		BytesPerSample: onDiskBytes,
		LittleEndian:   d.LittleEndian,
		Interleaved:    d.PlanarConfig() == planarconfig.Contig,
		MaxBytes:       t.Width * t.Height * channels * onDiskBytes * 4,
		YCbCr:          d.Photometric() == photometric.YCbCr,
	})
	if err != nil {
		return nil, fmt.Errorf("reader: tile %s: %w", idx, err)
	}

	if d.FillOrder() == fillorder.LSB2MSB {
		decoded = pixelops.ReverseFillOrder(decoded)
	}

	if bytesPerSample > 0 {
		switch d.Predictor() {
		case predictor.Horizontal:
			if err := pixelops.HorizontalPredictorDecode(decoded, t.Width, channels, bytesPerSample); err != nil {
				return nil, fmt.Errorf("reader: tile %s: %w", idx, err)
			}
		case predictor.FloatingPoint:
			if err := pixelops.FloatingPointPredictorDecode(decoded, t.Width, channels, bytesPerSample); err != nil {
				return nil, fmt.Errorf("reader: tile %s: %w", idx, err)
			}
		}
	}

	if d.FillOrder() == fillorder.LSB2MSB {
		decoded = pixelops.ReverseFillOrder(decoded)
	}

	if bytesPerSample == 0 {
		decoded = pixelops.UnpackPrecision(decoded, bits, t.Width*t.Height*channels)
	}

	t.SetDecoded(decoded, d.PlanarConfig() == planarconfig.Contig)
	r.tileCache.Add(key, t)
	return t, nil
}

func (r *Reader) tileDims(d *ifd.IFD, idx tile.Index) (int, int, error) {
	tx, err := d.TileSizeX()
	if err != nil {
		return 0, 0, err
	}
	ty, err := d.TileSizeY()
	if err != nil {
		return 0, 0, err
	}
	width, height := tx, ty
	if !d.IsTiled() {
		imgHeight, err := d.ImageHeight()
		if err != nil {
			return 0, 0, err
		}
		remaining := imgHeight - idx.Row*ty
		if remaining < height {
			if remaining < 0 {
				remaining = 0
			}
			height = remaining
		}
	}
	return width, height, nil
}

// linearTileIndex maps a (plane, col, row) index onto the flat
// TileOffsets/StripOffsets array position, iterating planes in the outer
// loop as the spec's region-assembly algorithm requires (spec §4.G,
// §testable-scenario 7).
func linearTileIndex(d *ifd.IFD, idx tile.Index) (int, error) {
	tpr, err := d.TilesPerRow()
	if err != nil {
		return 0, err
	}
	tpc, err := d.TilesPerColumn()
	if err != nil {
		return 0, err
	}
	if idx.Col < 0 || idx.Col >= tpr {
		return 0, fmt.Errorf("reader: tile column %d outside [0,%d)", idx.Col, tpr)
	}
	if idx.Row < 0 || idx.Row >= tpc {
		return 0, fmt.Errorf("reader: tile row %d outside [0,%d)", idx.Row, tpc)
	}
	effectiveRow := idx.Plane*tpc + idx.Row
	return effectiveRow*tpr + idx.Col, nil
}
