package tilemap

import (
	"testing"

	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/tifftag"
	"github.com/echoflaresat/gotiff/tile"
)

func newIdx(plane, col, row int) tile.Index {
	return tile.Index{Plane: plane, Col: col, Row: row}
}

func newStrippedIFD(t *testing.T, width, height, tileHeight int) *ifd.IFD {
	t.Helper()
	d := ifd.New()
	set := func(tag tifftag.Tag, v int64) {
		if err := d.Set(ifd.NewIntEntry(tag, fieldtype.Long, []int64{v})); err != nil {
			t.Fatalf("Set(%s): %v", tag, err)
		}
	}
	set(tifftag.ImageWidth, int64(width))
	set(tifftag.ImageLength, int64(height))
	set(tifftag.RowsPerStrip, int64(tileHeight))
	return d
}

func TestFixedGridIndexing(t *testing.T) {
	d := newStrippedIFD(t, 100, 45, 16)
	m, err := New(d, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tpr, tpc, planes := m.Grid()
	if tpr != 1 || tpc != 3 || planes != 1 {
		t.Fatalf("Grid() = %d,%d,%d, want 1,3,1", tpr, tpc, planes)
	}
	if got, want := m.NumberOfGridTiles(), 3; got != want {
		t.Fatalf("NumberOfGridTiles() = %d, want %d", got, want)
	}

	tl, err := m.GetOrNew(newIdx(0, 0, 0))
	if err != nil {
		t.Fatalf("GetOrNew: %v", err)
	}
	if tl.Width != 100 || tl.Height != 16 {
		t.Errorf("tile size = %dx%d, want 100x16", tl.Width, tl.Height)
	}

	if _, err := m.GetOrNew(newIdx(0, 0, 5)); err == nil {
		t.Error("expected out-of-range row to error on a fixed-grid map")
	}

	if _, ok := m.Get(newIdx(0, 0, 1)); ok {
		t.Error("Get should not materialize a tile that was never requested")
	}
}

func TestCropAllTruncatesLastStrip(t *testing.T) {
	d := newStrippedIFD(t, 100, 45, 16)
	m, err := New(d, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for row := 0; row < 3; row++ {
		if _, err := m.GetOrNew(newIdx(0, 0, row)); err != nil {
			t.Fatalf("GetOrNew(row=%d): %v", row, err)
		}
	}
	if err := m.CropAll(true, 1, 1); err != nil {
		t.Fatalf("CropAll: %v", err)
	}

	last, _ := m.Get(newIdx(0, 0, 2))
	if last.Height != 13 {
		t.Errorf("last strip height = %d, want 13 (45 - 2*16)", last.Height)
	}
	first, _ := m.Get(newIdx(0, 0, 0))
	if first.Height != 16 {
		t.Errorf("first strip height = %d, want unchanged 16", first.Height)
	}
}

func TestCropAllRepacksPlaneMajorDecoded(t *testing.T) {
	// 2-channel chunky image, strip height 16, image height 20: the last
	// strip (row 1) crops from nominal height 16 down to 4 rows. Its
	// Decoded buffer is staged plane-major (auto-interleave), so CropAll
	// must repack each channel's plane down to the new stride rather than
	// just shrinking Height, or Encode later slices channel 1's plane
	// starting in the middle of channel 0's data.
	d := newStrippedIFD(t, 4, 20, 16)
	m, err := New(d, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const channels, bytesPerSample = 2, 1
	nominalHeight := 16
	for row := 0; row < 2; row++ {
		tl, err := m.GetOrNew(newIdx(0, 0, row))
		if err != nil {
			t.Fatalf("GetOrNew(row=%d): %v", row, err)
		}
		// Plane-major staging buffer: channel 0 is all 0x01, channel 1 is
		// all 0x02, each plane nominalHeight rows tall regardless of how
		// many of those rows are actually valid image data.
		buf := make([]byte, tl.Width*nominalHeight*channels*bytesPerSample)
		planeSize := tl.Width * nominalHeight * bytesPerSample
		for i := 0; i < planeSize; i++ {
			buf[i] = 0x01
			buf[planeSize+i] = 0x02
		}
		tl.SetDecoded(buf, false)
	}

	if err := m.CropAll(true, channels, bytesPerSample); err != nil {
		t.Fatalf("CropAll: %v", err)
	}

	last, _ := m.Get(newIdx(0, 0, 1))
	if last.Height != 4 {
		t.Fatalf("last strip height = %d, want 4 (20 - 1*16)", last.Height)
	}
	wantPlaneSize := last.Width * last.Height * bytesPerSample
	if len(last.Decoded) != wantPlaneSize*channels {
		t.Fatalf("last.Decoded length = %d, want %d", len(last.Decoded), wantPlaneSize*channels)
	}
	for i := 0; i < wantPlaneSize; i++ {
		if last.Decoded[i] != 0x01 {
			t.Errorf("last.Decoded channel 0 byte %d = %#x, want 0x01", i, last.Decoded[i])
		}
		if last.Decoded[wantPlaneSize+i] != 0x02 {
			t.Errorf("last.Decoded channel 1 byte %d = %#x, want 0x02 (corrupted by stale plane stride)", i, last.Decoded[wantPlaneSize+i])
		}
	}

	first, _ := m.Get(newIdx(0, 0, 0))
	if first.Height != 16 || len(first.Decoded) != 4*16*channels*bytesPerSample {
		t.Errorf("first strip should stay at its nominal size, got height=%d len=%d", first.Height, len(first.Decoded))
	}
}

func TestResizableGridGrowsThenFreezes(t *testing.T) {
	d := ifd.New()
	m, err := NewResizable(d, 16, 16, 1, 1)
	if err != nil {
		t.Fatalf("NewResizable: %v", err)
	}
	if !m.Resizable() {
		t.Fatal("freshly constructed resizable map should report Resizable() == true")
	}

	for _, idx := range []indexTriple{{0, 0, 0}, {0, 2, 1}, {0, 1, 0}} {
		if _, err := m.GetOrNew(newIdx(idx.plane, idx.col, idx.row)); err != nil {
			t.Fatalf("GetOrNew(%v): %v", idx, err)
		}
	}

	dimX, dimY, err := m.CompleteImageGrid()
	if err != nil {
		t.Fatalf("CompleteImageGrid: %v", err)
	}
	if dimX != 48 || dimY != 32 {
		t.Errorf("dims = %d,%d, want 48,32", dimX, dimY)
	}
	if m.Resizable() {
		t.Error("Resizable() should be false after CompleteImageGrid")
	}

	tpr, tpc, _ := m.Grid()
	if tpr != 3 || tpc != 2 {
		t.Errorf("Grid() = %d,%d, want 3,2", tpr, tpc)
	}

	if _, _, err := m.CompleteImageGrid(); err == nil {
		t.Error("expected second CompleteImageGrid call on a now-fixed map to error")
	}
}

func TestTilesOrderingIsPlaneRowColMajor(t *testing.T) {
	d := ifd.New()
	m, err := NewResizable(d, 8, 8, 2, 1)
	if err != nil {
		t.Fatalf("NewResizable: %v", err)
	}
	for _, idx := range []indexTriple{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0, 0, 0}, {1, 0, 1},
	} {
		if _, err := m.GetOrNew(newIdx(idx.plane, idx.col, idx.row)); err != nil {
			t.Fatalf("GetOrNew(%v): %v", idx, err)
		}
	}

	ordered := m.Tiles()
	want := []indexTriple{{0, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 0}, {1, 0, 1}}
	if len(ordered) != len(want) {
		t.Fatalf("len(Tiles()) = %d, want %d", len(ordered), len(want))
	}
	for i, tl := range ordered {
		if tl.Index.Plane != want[i].plane || tl.Index.Row != want[i].row || tl.Index.Col != want[i].col {
			t.Errorf("Tiles()[%d] = %v, want plane=%d,col=%d,row=%d", i, tl.Index, want[i].plane, want[i].col, want[i].row)
		}
	}
}

type indexTriple struct{ plane, col, row int }
