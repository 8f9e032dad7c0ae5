package reader

import (
	"fmt"

	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/planarconfig"
	"github.com/echoflaresat/gotiff/tile"
)

// RegionOptions controls how ReadRegion lays out its output buffer.
type RegionOptions struct {
	// Reinterleave requests chunky (RGBRGB...) output even when the source
	// is PlanarConfiguration==Separate. Ignored (always true in effect) for
	// chunky sources.
	Reinterleave bool
}

// ReadRegion assembles the pixel rectangle [fromX, fromX+sizeX) x [fromY,
// fromY+sizeY) from d's tiles into one buffer. The destination is
// pre-filled with the reader's configured filler byte so that any area not
// covered by a present tile — whether truly outside the image or sitting
// over a missing tile — reads back as a well-defined value (spec §4.G).
func (r *Reader) ReadRegion(d *ifd.IFD, fromX, fromY, sizeX, sizeY int, opts RegionOptions) ([]byte, error) {
	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("reader: invalid region size %dx%d", sizeX, sizeY)
	}

	bytesPerSample, err := byteAlignedBytesPerSample(d)
	if err != nil {
		return nil, err
	}
	samplesPerPixel := d.SamplesPerPixel()
	planeCount := d.PlaneCount()
	separated := d.PlanarConfig() == planarconfig.Separate
	chunky := !separated || opts.Reinterleave

	var out []byte
	if chunky {
		out = make([]byte, sizeX*sizeY*samplesPerPixel*bytesPerSample)
	} else {
		out = make([]byte, sizeX*sizeY*bytesPerSample*planeCount)
	}
	for i := range out {
		out[i] = r.filler
	}

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

	minCol, maxCol := clampRange(fromX, sizeX, tx, tpr)
	minRow, maxRow := clampRange(fromY, sizeY, ty, tpc)

	channelsInTile := samplesPerPixel
	if separated {
		channelsInTile = 1
	}

	for plane := 0; plane < planeCount; plane++ {
		for row := minRow; row <= maxRow; row++ {
			for col := minCol; col <= maxCol; col++ {
				idx := tile.Index{Plane: plane, Col: col, Row: row}
				t, err := r.ReadTile(d, idx)
				if err != nil {
					return nil, fmt.Errorf("reader: region tile %s: %w", idx, err)
				}
				if t.Decoded == nil {
					continue
				}

				tileOriginX, tileOriginY := col*tx, row*ty
				x0 := maxInt(fromX, tileOriginX)
				y0 := maxInt(fromY, tileOriginY)
				x1 := minInt(fromX+sizeX, tileOriginX+t.Width)
				y1 := minInt(fromY+sizeY, tileOriginY+t.Height)
				if x0 >= x1 || y0 >= y1 {
					continue
				}

				for y := y0; y < y1; y++ {
					srcRowOff := (y - tileOriginY) * t.Width * channelsInTile * bytesPerSample
					dstY := y - fromY

					switch {
					case chunky && !separated:
						n := (x1 - x0) * samplesPerPixel * bytesPerSample
						srcOff := srcRowOff + (x0-tileOriginX)*samplesPerPixel*bytesPerSample
						dstOff := (dstY*sizeX+(x0-fromX))*samplesPerPixel*bytesPerSample
						copy(out[dstOff:dstOff+n], t.Decoded[srcOff:srcOff+n])
					case chunky && separated:
						for x := x0; x < x1; x++ {
							srcOff := srcRowOff + (x-tileOriginX)*bytesPerSample
							dstOff := (dstY*sizeX+(x-fromX))*samplesPerPixel*bytesPerSample + plane*bytesPerSample
							copy(out[dstOff:dstOff+bytesPerSample], t.Decoded[srcOff:srcOff+bytesPerSample])
						}
					default: // plane-major destination
						n := (x1 - x0) * bytesPerSample
						planeOffset := plane * sizeX * sizeY * bytesPerSample
						srcOff := srcRowOff + (x0-tileOriginX)*bytesPerSample
						dstOff := planeOffset + (dstY*sizeX+(x0-fromX))*bytesPerSample
						copy(out[dstOff:dstOff+n], t.Decoded[srcOff:srcOff+n])
					}
				}
			}
		}
	}

	return out, nil
}

// byteAlignedBytesPerSample returns BytesPerSample, treating any
// non-byte-aligned precision as already unpacked to one byte per sample by
// ReadTile (spec §4.G: "unpack unusual precisions").
func byteAlignedBytesPerSample(d *ifd.IFD) (int, error) {
	bps, err := d.BitsPerSample()
	if err != nil {
		return 0, err
	}
	if bps[0]%8 != 0 {
		return 1, nil
	}
	return bps[0] / 8, nil
}

func clampRange(from, size, tileDim, tilesAcross int) (int, int) {
	min := from / tileDim
	max := (from + size - 1) / tileDim
	if min < 0 {
		min = 0
	}
	if max >= tilesAcross {
		max = tilesAcross - 1
	}
	return min, max
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
