package writer

import (
	"fmt"

	"github.com/echoflaresat/gotiff/codec"
	"github.com/echoflaresat/gotiff/directory"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/planarconfig"
	"github.com/echoflaresat/gotiff/tile"
	"github.com/echoflaresat/gotiff/tilemap"
)

// CompleteImage finishes writing one image: it finalises a resizable map's
// grid extent, fills or skips any never-written cell according to the
// writer's missing-tile policy, flushes every tile's encoded bytes to the
// stream, patches the IFD's data-positioning tags, freezes and writes the
// IFD itself, and links it into the file's IFD chain (spec §4.H).
//
// Tiles not yet passed through Encode are encoded here using the default
// codec options, so a caller may call UpdateTiles followed directly by
// CompleteImage for simple single-shot writes.
func (w *Writer) CompleteImage(m *tilemap.Map) error {
	d := m.IFD()

	if _, _, err := completeGridIfResizable(m); err != nil {
		return err
	}

	if err := w.fillMissingTiles(m); err != nil {
		return err
	}

	if err := w.Encode(m); err != nil {
		return err
	}

	offsets, byteCounts, err := w.flushTiles(m)
	if err != nil {
		return err
	}

	if reservation, ok := w.forward[d]; ok {
		return w.completeForwardImage(d, reservation, offsets, byteCounts)
	}

	if err := d.UpdateDataPositioning(offsets, byteCounts); err != nil {
		return err
	}

	d.FreezeForWriting()

	end, err := w.s.Len()
	if err != nil {
		return err
	}
	if err := w.s.Seek(end); err != nil {
		return err
	}
	if err := directory.PadToEven(w.s); err != nil {
		return err
	}
	ifdOffset, nextSlot, err := directory.WriteIFD(w.s, w.hdr, d)
	if err != nil {
		return err
	}

	if !w.hdr.BigTIFF && ifdOffset > maxClassicOffset {
		if w.autoPromoteBigTIFF {
			return ErrNeedsBigTIFF
		}
		return ErrOffsetOverflow
	}

	if err := directory.PatchNextOffset(w.s, w.hdr, w.lastTrailerSlot, ifdOffset); err != nil {
		return err
	}
	w.lastTrailerSlot = nextSlot

	return nil
}

// completeForwardImage finishes an image whose IFD was already written by
// WriteForward: the real TileOffsets/TileByteCounts (or strip equivalents)
// are patched into the space reserved back then, the directory is frozen,
// and the previous image's trailer slot is linked to the already-known IFD
// offset — nothing about the IFD's on-disk position or size changes here
// (spec §4.H point 3).
func (w *Writer) completeForwardImage(d *ifd.IFD, reservation forwardReservation, offsets, byteCounts []uint64) error {
	if err := d.UpdateDataPositioningTyped(offsets, byteCounts, reservation.arrayType); err != nil {
		return err
	}
	d.FreezeForWriting()
	delete(w.forward, d)

	if !w.hdr.BigTIFF && reservation.ifdOffset > maxClassicOffset {
		if w.autoPromoteBigTIFF {
			return ErrNeedsBigTIFF
		}
		return ErrOffsetOverflow
	}

	if err := directory.PatchArrayValue(w.s, w.hdr, reservation.offSlot, reservation.arrayType, offsets); err != nil {
		return err
	}
	if err := directory.PatchArrayValue(w.s, w.hdr, reservation.cntSlot, reservation.arrayType, byteCounts); err != nil {
		return err
	}

	if err := directory.PatchNextOffset(w.s, w.hdr, w.lastTrailerSlot, reservation.ifdOffset); err != nil {
		return err
	}
	w.lastTrailerSlot = reservation.nextSlot
	return nil
}

// completeGridIfResizable finalises m's grid extent and the directory's
// ImageWidth/ImageLength, a no-op for maps built over a fixed geometry.
func completeGridIfResizable(m *tilemap.Map) (int, int, error) {
	if !m.Resizable() {
		return 0, 0, nil
	}
	dimX, dimY, err := m.CompleteImageGrid()
	if err != nil {
		return 0, 0, err
	}
	if dimX == 0 && dimY == 0 {
		return 0, 0, nil
	}
	if err := m.IFD().UpdateImageDimensions(dimX, dimY); err != nil {
		return 0, 0, err
	}
	return dimX, dimY, nil
}

// fillMissingTiles addresses every grid cell the caller never touched. When
// missing tiles are allowed, those cells are simply left out of the tile
// vector and end up with (offset=0, byteCount=0) in flushTiles. Otherwise, a
// single filler tile's encoded bytes are shared by every cell at the
// nominal tile size; any (necessarily non-nominal) cropped edge cell is
// still given its own correctly sized filler (spec §4.H).
func (w *Writer) fillMissingTiles(m *tilemap.Map) error {
	if w.missingTilesAllowed {
		return nil
	}
	channels := m.IFD().SamplesPerPixel()
	if m.IFD().PlanarConfig() == planarconfig.Separate {
		channels = 1
	}
	bytesPerSample, err := m.IFD().BytesPerSample()
	if err != nil {
		return err
	}

	if err := m.CropAll(!m.IFD().IsTiled(), channels, bytesPerSample); err != nil {
		return err
	}

	tpr, tpc, planes := m.Grid()
	tw, th := m.TileSize()

	nominalFiller := w.makeFiller(tw, th, channels, bytesPerSample)
	c, err := w.codecs.Get(m.IFD().Compression())
	if err != nil {
		return err
	}
	nominalEncoded, err := c.Compress(nominalFiller, codec.Options{
		Width: tw, Height: th, Channels: channels, BytesPerSample: bytesPerSample,
		LittleEndian: m.IFD().LittleEndian, Interleaved: true,
	})
	if err != nil {
		return err
	}

	for plane := 0; plane < planes; plane++ {
		for row := 0; row < tpc; row++ {
			for col := 0; col < tpr; col++ {
				idx := tile.Index{Plane: plane, Col: col, Row: row}
				if _, ok := m.Get(idx); ok {
					continue
				}
				t, err := m.GetOrNew(idx)
				if err != nil {
					return err
				}
				if !m.IFD().IsTiled() {
					if h, err := m.IFD().ImageHeight(); err == nil && h-row*th < t.Height {
						t.Height = h - row*th
					}
				}
				if t.Width == tw && t.Height == th {
					t.SetEncoded(nominalEncoded)
					continue
				}
				cropped := w.makeFiller(t.Width, t.Height, channels, bytesPerSample)
				encoded, err := c.Compress(cropped, codec.Options{
					Width: t.Width, Height: t.Height, Channels: channels, BytesPerSample: bytesPerSample,
					LittleEndian: m.IFD().LittleEndian, Interleaved: true,
				})
				if err != nil {
					return err
				}
				t.SetEncoded(encoded)
			}
		}
	}
	return nil
}

func (w *Writer) makeFiller(width, height, channels, bytesPerSample int) []byte {
	buf := make([]byte, width*height*channels*bytesPerSample)
	for i := range buf {
		buf[i] = w.filler
	}
	return buf
}

// flushTiles appends every tile's encoded bytes to the end of the stream in
// m.Tiles() order — plane-major, row-major, column-major — which gives
// monotonically increasing file offsets for the common single-plane chunky
// case, and builds the linear offsets/byteCounts arrays the IFD's
// TileOffsets/StripOffsets tags expect, indexed the same way
// reader.linearTileIndex computes them. Tiles sharing one encoded buffer,
// such as the filler tile, are stored once and all point at that copy.
func (w *Writer) flushTiles(m *tilemap.Map) (offsets, byteCounts []uint64, err error) {
	n := m.NumberOfGridTiles()
	offsets = make([]uint64, n)
	byteCounts = make([]uint64, n)
	tpr, tpc, _ := m.Grid()
	stored := make(map[*byte]uint64)

	end, err := w.s.Len()
	if err != nil {
		return nil, nil, err
	}

	for _, t := range m.Tiles() {
		if t.State != tile.Encoded {
			if t.State == tile.Created {
				// never touched and missing tiles are allowed: leave as 0/0.
				continue
			}
			return nil, nil, fmt.Errorf("writer: tile %s was never encoded", t.Index)
		}

		if len(t.Encoded) > 0 {
			if off, ok := stored[&t.Encoded[0]]; ok {
				t.MarkWritten(off, uint64(len(t.Encoded)))
				linear := (t.Index.Plane*tpc+t.Index.Row)*tpr + t.Index.Col
				offsets[linear] = t.StoredOffset
				byteCounts[linear] = t.StoredLength
				continue
			}
			stored[&t.Encoded[0]] = uint64(end)
		}

		if err := w.s.Seek(end); err != nil {
			return nil, nil, err
		}
		if err := w.s.WriteAll(t.Encoded); err != nil {
			return nil, nil, err
		}
		t.MarkWritten(uint64(end), uint64(len(t.Encoded)))

		linear := (t.Index.Plane*tpc+t.Index.Row)*tpr + t.Index.Col
		offsets[linear] = t.StoredOffset
		byteCounts[linear] = t.StoredLength

		end += int64(len(t.Encoded))
	}

	return offsets, byteCounts, nil
}
