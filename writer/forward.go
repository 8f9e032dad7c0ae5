package writer

import (
	"fmt"

	"github.com/echoflaresat/gotiff/directory"
	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/tilemap"
)

// forwardReservation records where WriteForward reserved space for one
// image's data-positioning arrays, so CompleteImage can patch the real
// offsets in without moving or rewriting the already-written IFD.
type forwardReservation struct {
	ifdOffset uint64
	nextSlot  int64
	offSlot   int64
	cntSlot   int64
	arrayType fieldtype.Type
}

// WriteForward writes m's IFD now, at the current end of the stream, with
// zero-filled TileOffsets/TileByteCounts (or the strip equivalents), so a
// sequential reader encounters the directory before the pixel data that
// follows it. Only usable on a non-resizable map, since the final tile grid
// — and therefore the exact on-disk size of those arrays — must already be
// known. CompleteImage later detects that this image was written forward
// and patches the real offsets in place instead of emitting a fresh IFD at
// end-of-file (spec §4.H point 3, only for non-resizable maps when
// forward-writing is wanted).
func (w *Writer) WriteForward(m *tilemap.Map) error {
	if m.Resizable() {
		return fmt.Errorf("writer: WriteForward requires a non-resizable tile map")
	}
	d := m.IFD()
	n := m.NumberOfGridTiles()
	if err := d.ReserveDataPositioning(n, w.hdr.BigTIFF); err != nil {
		return err
	}

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
	ifdOffset, nextSlot, valueOffsets, err := directory.WriteIFDTracked(w.s, w.hdr, d)
	if err != nil {
		return err
	}
	if err := d.SetFileOffsetForWriting(ifdOffset); err != nil {
		return err
	}

	offTag, cntTag := d.DataPositioningTags()
	typ := fieldtype.Long
	if w.hdr.BigTIFF {
		typ = fieldtype.Long8
	}
	if w.forward == nil {
		w.forward = make(map[*ifd.IFD]forwardReservation)
	}
	w.forward[d] = forwardReservation{
		ifdOffset: ifdOffset,
		nextSlot:  nextSlot,
		offSlot:   valueOffsets[offTag],
		cntSlot:   valueOffsets[cntTag],
		arrayType: typ,
	}
	return nil
}
