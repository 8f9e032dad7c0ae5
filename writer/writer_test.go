package writer

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/pixeltype"
	"github.com/echoflaresat/gotiff/reader"
	"github.com/echoflaresat/gotiff/stream"
	"github.com/echoflaresat/gotiff/tifftag"
)

func TestGrayscaleRoundTrip(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	w, err := StartNewFile(s, false)
	if err != nil {
		t.Fatalf("StartNewFile: %v", err)
	}

	d := ifd.New()
	const width, height = 4, 3
	if err := d.UpdateImageDimensions(width, height); err != nil {
		t.Fatalf("UpdateImageDimensions: %v", err)
	}

	m, err := w.StartNewImage(d, 1, pixeltype.Uint8, false)
	if err != nil {
		t.Fatalf("StartNewImage: %v", err)
	}

	src := []byte{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}
	if err := w.UpdateTiles(m, src, 0, 0, width, height, SourceChunkyInterleaved); err != nil {
		t.Fatalf("UpdateTiles: %v", err)
	}
	if err := w.CompleteImage(m); err != nil {
		t.Fatalf("CompleteImage: %v", err)
	}

	rd, err := reader.Open(s)
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	ifds, err := rd.AllIFDs()
	if err != nil {
		t.Fatalf("AllIFDs: %v", err)
	}
	if len(ifds) != 1 {
		t.Fatalf("len(ifds) = %d, want 1", len(ifds))
	}

	got, err := rd.ReadRegion(ifds[0], 0, 0, width, height, reader.RegionOptions{})
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("round-tripped pixels = %v, want %v", got, src)
	}
}

func TestTwoImageChain(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	w, err := StartNewFile(s, false)
	if err != nil {
		t.Fatalf("StartNewFile: %v", err)
	}

	write := func(width, height int, fill byte) {
		d := ifd.New()
		if err := d.UpdateImageDimensions(width, height); err != nil {
			t.Fatalf("UpdateImageDimensions: %v", err)
		}
		m, err := w.StartNewImage(d, 1, pixeltype.Uint8, false)
		if err != nil {
			t.Fatalf("StartNewImage: %v", err)
		}
		src := bytes.Repeat([]byte{fill}, width*height)
		if err := w.UpdateTiles(m, src, 0, 0, width, height, SourceChunkyInterleaved); err != nil {
			t.Fatalf("UpdateTiles: %v", err)
		}
		if err := w.CompleteImage(m); err != nil {
			t.Fatalf("CompleteImage: %v", err)
		}
	}
	write(2, 2, 0xAA)
	write(3, 3, 0xBB)

	rd, err := reader.Open(s)
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	ifds, err := rd.AllIFDs()
	if err != nil {
		t.Fatalf("AllIFDs: %v", err)
	}
	if len(ifds) != 2 {
		t.Fatalf("len(ifds) = %d, want 2", len(ifds))
	}
	w1, _ := ifds[0].ImageWidth()
	w2, _ := ifds[1].ImageWidth()
	if w1 != 2 || w2 != 3 {
		t.Errorf("chain widths = %d, %d, want 2, 3", w1, w2)
	}
}

// TestWriteForwardPlacesIFDBeforePixelData verifies that WriteForward
// commits the IFD's file offset before any tile bytes are appended, and
// that CompleteImage still produces a correctly readable image afterwards.
func TestWriteForwardPlacesIFDBeforePixelData(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	w, err := StartNewFile(s, false)
	if err != nil {
		t.Fatalf("StartNewFile: %v", err)
	}

	d := ifd.New()
	const width, height = 2, 2
	if err := d.UpdateImageDimensions(width, height); err != nil {
		t.Fatalf("UpdateImageDimensions: %v", err)
	}
	m, err := w.StartNewImage(d, 1, pixeltype.Uint8, false)
	if err != nil {
		t.Fatalf("StartNewImage: %v", err)
	}

	if err := w.WriteForward(m); err != nil {
		t.Fatalf("WriteForward: %v", err)
	}
	ifdOffset, ok := d.FileOffsetForWriting()
	if !ok {
		t.Fatal("FileOffsetForWriting not set after WriteForward")
	}

	preDataLen, err := s.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}

	src := []byte{10, 20, 30, 40}
	if err := w.UpdateTiles(m, src, 0, 0, width, height, SourceChunkyInterleaved); err != nil {
		t.Fatalf("UpdateTiles: %v", err)
	}
	if err := w.CompleteImage(m); err != nil {
		t.Fatalf("CompleteImage: %v", err)
	}

	if _, ok := w.forward[d]; ok {
		t.Error("forward reservation not cleared after CompleteImage")
	}

	offsets, _, err := d.DataPositioning()
	if err != nil {
		t.Fatalf("DataPositioning: %v", err)
	}
	for _, off := range offsets {
		if int64(off) < preDataLen {
			t.Errorf("tile offset %d precedes the IFD written at %d..%d", off, ifdOffset, preDataLen)
		}
	}

	rd, err := reader.Open(s)
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	ifds, err := rd.AllIFDs()
	if err != nil {
		t.Fatalf("AllIFDs: %v", err)
	}
	if len(ifds) != 1 {
		t.Fatalf("len(ifds) = %d, want 1", len(ifds))
	}
	got, err := rd.ReadRegion(ifds[0], 0, 0, width, height, reader.RegionOptions{})
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("round-tripped pixels = %v, want %v", got, src)
	}
}

func TestStartNewImageRejectsBadCombinations(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	w, err := StartNewFile(s, false)
	if err != nil {
		t.Fatalf("StartNewFile: %v", err)
	}

	d := ifd.New()
	if err := d.Set(ifd.NewIntEntry(tifftag.Compression, fieldtype.Short, []int64{int64(7)})); err != nil {
		t.Fatalf("Set Compression: %v", err)
	}
	if err := d.UpdateImageDimensions(4, 4); err != nil {
		t.Fatalf("UpdateImageDimensions: %v", err)
	}
	if _, err := w.StartNewImage(d, 1, pixeltype.Int16, false); err == nil {
		t.Error("StartNewImage should reject JPEG with signed 16-bit samples")
	}
}

func TestWriteForwardRejectsResizableMap(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	w, err := StartNewFile(s, false)
	if err != nil {
		t.Fatalf("StartNewFile: %v", err)
	}
	d := ifd.New()
	if err := d.Set(ifd.NewIntEntry(tifftag.TileWidth, fieldtype.Long, []int64{16})); err != nil {
		t.Fatalf("Set TileWidth: %v", err)
	}
	if err := d.Set(ifd.NewIntEntry(tifftag.TileLength, fieldtype.Long, []int64{16})); err != nil {
		t.Fatalf("Set TileLength: %v", err)
	}
	m, err := w.StartNewImage(d, 1, pixeltype.Uint8, true)
	if err != nil {
		t.Fatalf("StartNewImage: %v", err)
	}
	if err := w.WriteForward(m); err == nil {
		t.Error("WriteForward should reject a resizable tile map")
	}
}
