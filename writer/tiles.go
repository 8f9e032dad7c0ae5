package writer

import (
	"fmt"

	"github.com/echoflaresat/gotiff/codec"
	"github.com/echoflaresat/gotiff/fillorder"
	"github.com/echoflaresat/gotiff/photometric"
	"github.com/echoflaresat/gotiff/pixelops"
	"github.com/echoflaresat/gotiff/planarconfig"
	"github.com/echoflaresat/gotiff/predictor"
	"github.com/echoflaresat/gotiff/tile"
	"github.com/echoflaresat/gotiff/tilemap"
)

// SourceLayout selects how UpdateTiles interprets the caller's source
// buffer relative to the tile map's output layout (spec §4.H).
type SourceLayout int

const (
	// SourceChunkyAutoInterleave is the default: the output image is
	// chunky (PlanarConfiguration==1) and the caller's buffer holds
	// separated planes (RRR...GGG...BBB...). Tiles store the planes
	// separated internally; Encode interleaves them at encode time.
	SourceChunkyAutoInterleave SourceLayout = iota

	// SourceChunkyInterleaved means the output image is chunky and the
	// caller's buffer is already interleaved (RGBRGB...); tiles copy whole
	// pixel rows directly, with no interleave step at encode time.
	SourceChunkyInterleaved

	// SourceSeparated means the output image is PlanarConfiguration==2 and
	// the caller's buffer holds separated planes; one tile is allocated
	// per plane per grid cell.
	SourceSeparated
)

// UpdateTiles copies src[fromX:fromX+sizeX, fromY:fromY+sizeY] into the
// tiles it overlaps, allocating each tile on first touch via
// tilemap.Map.GetOrNew and initialising it with the writer's filler byte
// before the partial-rectangle copy (spec §4.H).
func (w *Writer) UpdateTiles(m *tilemap.Map, src []byte, fromX, fromY, sizeX, sizeY int, layout SourceLayout) error {
	d := m.IFD()
	bytesPerSample, err := d.BytesPerSample()
	if err != nil {
		return err
	}
	samplesPerPixel := d.SamplesPerPixel()
	tileW, tileH := m.TileSize()

	minCol := fromX / tileW
	maxCol := (fromX + sizeX - 1) / tileW
	minRow := fromY / tileH
	maxRow := (fromY + sizeY - 1) / tileH

	switch layout {
	case SourceSeparated:
		planeSize := sizeX * sizeY * bytesPerSample
		for plane := 0; plane < samplesPerPixel; plane++ {
			if err := w.copyIntoTiles(m, src[plane*planeSize:(plane+1)*planeSize], plane, 1, bytesPerSample,
				fromX, fromY, sizeX, sizeY, minCol, maxCol, minRow, maxRow, tileW, tileH); err != nil {
				return err
			}
		}
	case SourceChunkyAutoInterleave:
		planeSize := sizeX * sizeY * bytesPerSample
		if err := w.copyPlanesIntoChunkyTiles(m, src, planeSize, samplesPerPixel, bytesPerSample,
			fromX, fromY, sizeX, sizeY, minCol, maxCol, minRow, maxRow, tileW, tileH); err != nil {
			return err
		}
	case SourceChunkyInterleaved:
		if err := w.copyIntoTiles(m, src, 0, samplesPerPixel, bytesPerSample,
			fromX, fromY, sizeX, sizeY, minCol, maxCol, minRow, maxRow, tileW, tileH); err != nil {
			return err
		}
	default:
		return fmt.Errorf("writer: unknown source layout %d", layout)
	}
	return nil
}

// copyIntoTiles handles the two single-buffer-per-tile cases: one channel
// per plane (SourceSeparated, channels==1) or a fully chunky buffer
// (SourceChunkyInterleaved, channels==samplesPerPixel).
func (w *Writer) copyIntoTiles(m *tilemap.Map, src []byte, plane, channels, bytesPerSample,
	fromX, fromY, sizeX, sizeY, minCol, maxCol, minRow, maxRow, tileW, tileH int) error {
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			t, err := m.GetOrNew(tile.Index{Plane: plane, Col: col, Row: row})
			if err != nil {
				return err
			}
			w.ensureAllocated(t, channels, bytesPerSample)

			tileOriginX, tileOriginY := col*tileW, row*tileH
			x0 := maxInt(fromX, tileOriginX)
			y0 := maxInt(fromY, tileOriginY)
			x1 := minInt(fromX+sizeX, tileOriginX+t.Width)
			y1 := minInt(fromY+sizeY, tileOriginY+t.Height)
			if x0 >= x1 || y0 >= y1 {
				continue
			}
			stride := channels * bytesPerSample
			for y := y0; y < y1; y++ {
				n := (x1 - x0) * stride
				srcOff := ((y-fromY)*sizeX + (x0 - fromX)) * stride
				dstOff := ((y-tileOriginY)*t.Width + (x0 - tileOriginX)) * stride
				copy(t.Decoded[dstOff:dstOff+n], src[srcOff:srcOff+n])
			}
			// channels>1 here only happens for SourceChunkyInterleaved, whose
			// buffer is already RGBRGB...; Encode must not interleave it again.
			t.Interleaved = channels > 1
			t.State = tile.Decoded
		}
	}
	return nil
}

// copyPlanesIntoChunkyTiles handles SourceChunkyAutoInterleave: one tile
// per grid cell holds every channel's data concatenated plane-major,
// ready for Encode to interleave.
func (w *Writer) copyPlanesIntoChunkyTiles(m *tilemap.Map, src []byte, planeSize, channels, bytesPerSample,
	fromX, fromY, sizeX, sizeY, minCol, maxCol, minRow, maxRow, tileW, tileH int) error {
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			t, err := m.GetOrNew(tile.Index{Plane: 0, Col: col, Row: row})
			if err != nil {
				return err
			}
			w.ensureAllocated(t, channels, bytesPerSample)

			tileOriginX, tileOriginY := col*tileW, row*tileH
			x0 := maxInt(fromX, tileOriginX)
			y0 := maxInt(fromY, tileOriginY)
			x1 := minInt(fromX+sizeX, tileOriginX+t.Width)
			y1 := minInt(fromY+sizeY, tileOriginY+t.Height)
			if x0 >= x1 || y0 >= y1 {
				continue
			}
			tilePlaneSize := t.Width * t.Height * bytesPerSample
			for c := 0; c < channels; c++ {
				for y := y0; y < y1; y++ {
					n := (x1 - x0) * bytesPerSample
					srcOff := c*planeSize + ((y-fromY)*sizeX+(x0-fromX))*bytesPerSample
					dstOff := c*tilePlaneSize + ((y-tileOriginY)*t.Width+(x0-tileOriginX))*bytesPerSample
					copy(t.Decoded[dstOff:dstOff+n], src[srcOff:srcOff+n])
				}
			}
			// stored plane-major; Encode interleaves it before compression.
			t.Interleaved = false
			t.State = tile.Decoded
		}
	}
	return nil
}

func (w *Writer) ensureAllocated(t *tile.Tile, channels, bytesPerSample int) {
	if t.Decoded != nil {
		return
	}
	buf := make([]byte, t.Width*t.Height*channels*bytesPerSample)
	for i := range buf {
		buf[i] = w.filler
	}
	t.Decoded = buf
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Encode compresses every tile in m that has decoded data but is not yet
// encoded: fill-order inversion, then sample interleaving (for
// SourceChunkyAutoInterleave tiles), then predictor differencing, then the
// codec's own Compress call, in that order (spec §4.H).
func (w *Writer) Encode(m *tilemap.Map) error {
	d := m.IFD()
	bytesPerSample, err := d.BytesPerSample()
	if err != nil {
		return err
	}
	samplesPerPixel := d.SamplesPerPixel()
	separated := d.PlanarConfig() == planarconfig.Separate
	channelsPerTile := samplesPerPixel
	if separated {
		channelsPerTile = 1
	}

	c, err := w.codecs.Get(d.Compression())
	if err != nil {
		return err
	}

	for _, t := range m.Tiles() {
		if t.State != tile.Decoded {
			continue
		}

		data := t.Decoded
		if d.FillOrder() == fillorder.LSB2MSB {
			data = pixelops.ReverseFillOrder(data)
		}

		if !separated && channelsPerTile > 1 && !t.Interleaved {
			planes := make([][]byte, channelsPerTile)
			planeSize := t.Width * t.Height * bytesPerSample
			for i := range planes {
				planes[i] = data[i*planeSize : (i+1)*planeSize]
			}
			data = pixelops.InterleaveFromPlanes(planes, t.Width, t.Height)
		}

		switch d.Predictor() {
		case predictor.Horizontal:
			if err := pixelops.HorizontalPredictorEncode(data, t.Width, channelsPerTile, bytesPerSample); err != nil {
				return fmt.Errorf("writer: tile %s: %w", t.Index, err)
			}
		case predictor.FloatingPoint:
			if err := pixelops.FloatingPointPredictorEncode(data, t.Width, channelsPerTile, bytesPerSample); err != nil {
				return fmt.Errorf("writer: tile %s: %w", t.Index, err)
			}
		}

		encoded, err := c.Compress(data, codec.Options{
			Width:          t.Width,
			Height:         t.Height,
			Channels:       channelsPerTile,
			BytesPerSample: bytesPerSample,
			LittleEndian:   d.LittleEndian,
			Interleaved:    !separated,
			YCbCr:          d.Photometric() == photometric.YCbCr,
		})
		if err != nil {
			return fmt.Errorf("writer: tile %s: %w", t.Index, err)
		}
		t.SetEncoded(encoded)
	}
	return nil
}
