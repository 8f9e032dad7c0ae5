package directory

import (
	"encoding/binary"
	"testing"

	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/stream"
	"github.com/echoflaresat/gotiff/tifftag"
)

func TestHeaderRoundTrip(t *testing.T) {
	for _, bigtiff := range []bool{false, true} {
		s := stream.NewMemoryStream(nil, binary.LittleEndian)
		hdr, slot, err := WriteHeader(s, bigtiff)
		if err != nil {
			t.Fatalf("WriteHeader(bigtiff=%v): %v", bigtiff, err)
		}
		if err := PatchNextOffset(s, hdr, slot, 0xabcd); err != nil {
			t.Fatalf("PatchNextOffset: %v", err)
		}

		got, err := ReadHeader(s)
		if err != nil {
			t.Fatalf("ReadHeader(bigtiff=%v): %v", bigtiff, err)
		}
		if got.BigTIFF != bigtiff {
			t.Errorf("BigTIFF = %v, want %v", got.BigTIFF, bigtiff)
		}
		if got.FirstIFDOffset != 0xabcd {
			t.Errorf("FirstIFDOffset = %d, want %d", got.FirstIFDOffset, 0xabcd)
		}
	}
}

func TestWriteReadIFDRoundTrip(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	hdr, _, err := WriteHeader(s, false)
	if err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	d := ifd.New()
	mustSet(t, d, ifd.NewIntEntry(tifftag.ImageWidth, fieldtype.Long, []int64{640}))
	mustSet(t, d, ifd.NewIntEntry(tifftag.ImageLength, fieldtype.Long, []int64{480}))
	mustSet(t, d, ifd.NewIntEntry(tifftag.BitsPerSample, fieldtype.Short, []int64{8, 8, 8}))
	const softwareTag = tifftag.Tag(305)
	mustSet(t, d, ifd.NewASCIIEntry(softwareTag, "gotiff-test-suite-with-a-long-enough-string-to-overflow-inline"))

	ifdOffset, _, err := WriteIFD(s, hdr, d)
	if err != nil {
		t.Fatalf("WriteIFD: %v", err)
	}

	got, next, err := ReadIFD(s, hdr, ifdOffset, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadIFD: %v", err)
	}
	if next != 0 {
		t.Errorf("next = %d, want 0", next)
	}

	w, err := got.ImageWidth()
	if err != nil || w != 640 {
		t.Errorf("ImageWidth = %d, %v, want 640", w, err)
	}
	h, err := got.ImageHeight()
	if err != nil || h != 480 {
		t.Errorf("ImageHeight = %d, %v, want 480", h, err)
	}
	bps, err := got.BitsPerSample()
	if err != nil || len(bps) != 3 || bps[0] != 8 {
		t.Errorf("BitsPerSample = %v, %v, want [8 8 8]", bps, err)
	}
	sw, ok := got.Get(softwareTag)
	if !ok || sw.ASCIIString() != "gotiff-test-suite-with-a-long-enough-string-to-overflow-inline" {
		t.Errorf("Software entry round-trip failed: %v", sw)
	}
}

func TestWalkChainTwoIFDs(t *testing.T) {
	s := stream.NewMemoryStream(nil, binary.LittleEndian)
	hdr, firstSlot, err := WriteHeader(s, false)
	if err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	d1 := ifd.New()
	mustSet(t, d1, ifd.NewIntEntry(tifftag.ImageWidth, fieldtype.Long, []int64{10}))
	off1, nextSlot1, err := WriteIFD(s, hdr, d1)
	if err != nil {
		t.Fatalf("WriteIFD d1: %v", err)
	}
	if err := PatchNextOffset(s, hdr, firstSlot, off1); err != nil {
		t.Fatalf("PatchNextOffset first: %v", err)
	}

	d2 := ifd.New()
	mustSet(t, d2, ifd.NewIntEntry(tifftag.ImageWidth, fieldtype.Long, []int64{20}))
	// PatchNextOffset left the cursor inside the header; append d2 at EOF.
	end, err := s.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if err := s.Seek(end); err != nil {
		t.Fatalf("Seek to end: %v", err)
	}
	if err := PadToEven(s); err != nil {
		t.Fatalf("PadToEven: %v", err)
	}
	off2, _, err := WriteIFD(s, hdr, d2)
	if err != nil {
		t.Fatalf("WriteIFD d2: %v", err)
	}
	if err := PatchNextOffset(s, hdr, nextSlot1, off2); err != nil {
		t.Fatalf("PatchNextOffset second: %v", err)
	}

	hdr2, err := ReadHeader(s)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	chain, err := WalkChain(s, hdr2, ReadOptions{})
	if err != nil {
		t.Fatalf("WalkChain: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("len(chain) = %d, want 2", len(chain))
	}
	w1, _ := chain[0].ImageWidth()
	w2, _ := chain[1].ImageWidth()
	if w1 != 10 || w2 != 20 {
		t.Errorf("chain widths = %d, %d, want 10, 20", w1, w2)
	}
}

func mustSet(t *testing.T, d *ifd.IFD, e *ifd.Entry) {
	t.Helper()
	if err := d.Set(e); err != nil {
		t.Fatalf("Set(%s): %v", e.Tag, err)
	}
}
