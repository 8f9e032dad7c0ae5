package ifd

import (
	"testing"

	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/tifftag"
)

func TestDataPositioningTagsSelectsStripVsTile(t *testing.T) {
	d := New()
	offTag, cntTag := d.DataPositioningTags()
	if offTag != tifftag.StripOffsets || cntTag != tifftag.StripByteCounts {
		t.Fatalf("untiled DataPositioningTags = %s/%s, want Strip*", offTag, cntTag)
	}

	if err := d.Set(NewIntEntry(tifftag.TileWidth, fieldtype.Long, []int64{16})); err != nil {
		t.Fatalf("Set TileWidth: %v", err)
	}
	if err := d.Set(NewIntEntry(tifftag.TileLength, fieldtype.Long, []int64{16})); err != nil {
		t.Fatalf("Set TileLength: %v", err)
	}
	offTag, cntTag = d.DataPositioningTags()
	if offTag != tifftag.TileOffsets || cntTag != tifftag.TileByteCounts {
		t.Fatalf("tiled DataPositioningTags = %s/%s, want Tile*", offTag, cntTag)
	}
}

func TestReserveThenUpdateDataPositioningTypedKeepsType(t *testing.T) {
	d := New()
	if err := d.ReserveDataPositioning(3, true); err != nil {
		t.Fatalf("ReserveDataPositioning: %v", err)
	}
	offsets, byteCounts, err := d.DataPositioning()
	if err != nil {
		t.Fatalf("DataPositioning after reserve: %v", err)
	}
	if len(offsets) != 3 || offsets[0] != 0 || byteCounts[1] != 0 {
		t.Fatalf("reserved arrays = %v / %v, want 3 zeroed entries each", offsets, byteCounts)
	}

	e, ok := d.Get(tifftag.StripOffsets)
	if !ok || e.Type != fieldtype.Long8 {
		t.Fatalf("reserved StripOffsets type = %v, want Long8 (wide=true)", e)
	}

	if err := d.UpdateDataPositioningTyped([]uint64{10, 20, 30}, []uint64{1, 2, 3}, fieldtype.Long8); err != nil {
		t.Fatalf("UpdateDataPositioningTyped: %v", err)
	}
	e, ok = d.Get(tifftag.StripOffsets)
	if !ok || e.Type != fieldtype.Long8 {
		t.Fatalf("patched StripOffsets type = %v, want unchanged Long8", e)
	}
	offsets, byteCounts, err = d.DataPositioning()
	if err != nil {
		t.Fatalf("DataPositioning after update: %v", err)
	}
	if offsets[2] != 30 || byteCounts[2] != 3 {
		t.Errorf("patched arrays = %v / %v, want [.. 30] / [.. 3]", offsets, byteCounts)
	}
}

func TestReserveDataPositioningRejectsFrozen(t *testing.T) {
	d := New()
	d.FreezeForWriting()
	if err := d.ReserveDataPositioning(1, false); err != ErrFrozen {
		t.Errorf("ReserveDataPositioning on frozen IFD = %v, want ErrFrozen", err)
	}
}

func TestValidateEqualBitsPerSampleRejectsMismatch(t *testing.T) {
	d := New()
	if err := d.Set(NewIntEntry(tifftag.BitsPerSample, fieldtype.Short, []int64{8, 16})); err != nil {
		t.Fatalf("Set BitsPerSample: %v", err)
	}
	if err := d.ValidateEqualBitsPerSample(); err == nil {
		t.Error("ValidateEqualBitsPerSample should reject unequal depths")
	}
}
