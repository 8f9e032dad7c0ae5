package reader_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/echoflaresat/gotiff/compression"
	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/fillorder"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/pixeltype"
	"github.com/echoflaresat/gotiff/reader"
	"github.com/echoflaresat/gotiff/stream"
	"github.com/echoflaresat/gotiff/tifftag"
	"github.com/echoflaresat/gotiff/writer"
)

// TestBigTIFFPackBitsFillOrderRoundTrip exercises a BigTIFF file with
// PackBits compression and a reversed FillOrder, the combination the
// classic 32-bit-offset path never has to deal with.
func TestBigTIFFPackBitsFillOrderRoundTrip(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	w, err := writer.StartNewFile(s, true)
	if err != nil {
		t.Fatalf("StartNewFile: %v", err)
	}

	d := ifd.New()
	const width, height = 8, 4
	if err := d.UpdateImageDimensions(width, height); err != nil {
		t.Fatalf("UpdateImageDimensions: %v", err)
	}
	if err := d.Set(ifd.NewIntEntry(tifftag.Compression, fieldtype.Short, []int64{int64(compression.PackBits)})); err != nil {
		t.Fatalf("Set Compression: %v", err)
	}
	if err := d.Set(ifd.NewIntEntry(tifftag.FillOrder, fieldtype.Short, []int64{int64(fillorder.LSB2MSB)})); err != nil {
		t.Fatalf("Set FillOrder: %v", err)
	}

	m, err := w.StartNewImage(d, 1, pixeltype.Uint8, false)
	if err != nil {
		t.Fatalf("StartNewImage: %v", err)
	}

	src := make([]byte, width*height)
	for i := range src {
		src[i] = byte(i * 7)
	}
	if err := w.UpdateTiles(m, src, 0, 0, width, height, writer.SourceChunkyInterleaved); err != nil {
		t.Fatalf("UpdateTiles: %v", err)
	}
	if err := w.CompleteImage(m); err != nil {
		t.Fatalf("CompleteImage: %v", err)
	}

	rd, err := reader.Open(s)
	if err != nil {
		t.Fatalf("reader.Open: %v", err)
	}
	if !rd.Header().BigTIFF {
		t.Fatal("Header().BigTIFF = false, want true")
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

// TestMissingTileFilledWithConfiguredByte verifies that a grid cell never
// touched by UpdateTiles is filled with the writer's configured filler byte
// rather than left undefined, when missing tiles aren't explicitly allowed.
func TestMissingTileFilledWithConfiguredByte(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	w, err := writer.StartNewFile(s, false, writer.WithFiller(0x7F))
	if err != nil {
		t.Fatalf("StartNewFile: %v", err)
	}

	d := ifd.New()
	if err := d.Set(ifd.NewIntEntry(tifftag.TileWidth, fieldtype.Long, []int64{4})); err != nil {
		t.Fatalf("Set TileWidth: %v", err)
	}
	if err := d.Set(ifd.NewIntEntry(tifftag.TileLength, fieldtype.Long, []int64{4})); err != nil {
		t.Fatalf("Set TileLength: %v", err)
	}
	if err := d.UpdateImageDimensions(8, 4); err != nil {
		t.Fatalf("UpdateImageDimensions: %v", err)
	}

	m, err := w.StartNewImage(d, 1, pixeltype.Uint8, false)
	if err != nil {
		t.Fatalf("StartNewImage: %v", err)
	}

	// Only populate the left-hand tile column; the right-hand tile is
	// never touched and should be filled on CompleteImage.
	left := bytes.Repeat([]byte{1}, 4*4)
	if err := w.UpdateTiles(m, left, 0, 0, 4, 4, writer.SourceChunkyInterleaved); err != nil {
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
	got, err := rd.ReadRegion(ifds[0], 4, 0, 4, 4, reader.RegionOptions{})
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	for _, b := range got {
		if b != 0x7F {
			t.Fatalf("missing-tile region = %v, want all 0x7F", got)
		}
	}
}
