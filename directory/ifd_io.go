package directory

import (
	"fmt"
	"sort"

	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/stream"
	"github.com/echoflaresat/gotiff/tifftag"
)

// ReadOptions controls how tolerant ReadIFD is of malformed input.
type ReadOptions struct {
	// RequireValid turns the reader's normally-tolerant recovery behaviour
	// (skip unknown field types, truncate out-of-range value arrays) into
	// hard errors (spec §7, §9).
	RequireValid bool
}

// ReadIFD parses one directory at offset and returns it along with the raw
// next-IFD offset recorded in its trailer (0 marks the chain's end).
func ReadIFD(s stream.Stream, hdr Header, offset uint64, opts ReadOptions) (*ifd.IFD, uint64, error) {
	fileLen, err := s.Len()
	if err != nil {
		return nil, 0, err
	}
	if offset == 0 || int64(offset) >= fileLen {
		return nil, 0, fmt.Errorf("directory: IFD offset %d out of range (file length %d)", offset, fileLen)
	}

	if err := s.Seek(int64(offset)); err != nil {
		return nil, 0, err
	}

	var numEntries uint64
	if hdr.BigTIFF {
		v, err := stream.Uint64(s)
		if err != nil {
			return nil, 0, err
		}
		numEntries = v
	} else {
		v, err := stream.Uint16(s)
		if err != nil {
			return nil, 0, err
		}
		numEntries = uint64(v)
	}

	maxEntries := uint64(maxClassicEntries)
	if hdr.BigTIFF {
		maxEntries = maxBigTIFFEntries
	}
	if numEntries > maxEntries {
		return nil, 0, fmt.Errorf("directory: IFD at %d declares %d entries, exceeding the %d cap", offset, numEntries, maxEntries)
	}

	d := ifd.New()
	d.SetFileOffsetOrigin(offset)
	d.LittleEndian = isLittleEndian(hdr)
	d.BigTIFF = hdr.BigTIFF

	entryStart := offset + uint64(hdr.CountSize())
	for i := uint64(0); i < numEntries; i++ {
		if err := s.Seek(int64(entryStart + i*uint64(hdr.EntrySize()))); err != nil {
			return nil, 0, err
		}
		entry, ok, err := readOneEntry(s, hdr, fileLen, opts)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			d.Set(entry) //nolint:errcheck // d is never frozen while parsing
		}
	}

	if err := s.Seek(int64(entryStart + numEntries*uint64(hdr.EntrySize()))); err != nil {
		return nil, 0, err
	}
	var next uint64
	if hdr.BigTIFF {
		next, err = stream.Uint64(s)
	} else {
		var v uint32
		v, err = stream.Uint32(s)
		next = uint64(v)
	}
	if err != nil {
		return nil, 0, err
	}

	return d, next, nil
}

// readOneEntry reads the entry at the stream's current position, returning
// ok=false when the entry should be silently skipped (unknown field type,
// non-RequireValid mode).
func readOneEntry(s stream.Stream, hdr Header, fileLen int64, opts ReadOptions) (*ifd.Entry, bool, error) {
	tagNum, err := stream.Uint16(s)
	if err != nil {
		return nil, false, err
	}
	tag := tifftag.Tag(tagNum)

	typeNum, err := stream.Uint16(s)
	if err != nil {
		return nil, false, err
	}
	typ := fieldtype.Type(typeNum)

	var count uint64
	if hdr.BigTIFF {
		count, err = stream.Uint64(s)
	} else {
		var v uint32
		v, err = stream.Uint32(s)
		count = uint64(v)
	}
	if err != nil {
		return nil, false, err
	}

	if typ.Size() == 0 {
		if opts.RequireValid {
			return nil, false, fmt.Errorf("directory: tag %s has unrecognised field type %d", tag, typeNum)
		}
		return nil, false, nil
	}

	valueSize := count * uint64(typ.Size())
	inlineSlot := uint64(hdr.InlineSlotSize())

	var raw []byte
	var valueOffset uint64
	if valueSize <= inlineSlot {
		raw = make([]byte, valueSize)
		slot := make([]byte, inlineSlot)
		if err := s.ReadExact(slot); err != nil {
			return nil, false, err
		}
		copy(raw, slot)
	} else {
		var off uint64
		if hdr.BigTIFF {
			off, err = stream.Uint64(s)
		} else {
			var v uint32
			v, err = stream.Uint32(s)
			off = uint64(v)
		}
		if err != nil {
			return nil, false, err
		}
		valueOffset = off

		available := int64(0)
		if int64(off) < fileLen {
			available = fileLen - int64(off)
		}
		want := valueSize
		if int64(want) > available {
			if opts.RequireValid {
				return nil, false, fmt.Errorf("directory: tag %s value array truncated by end of file", tag)
			}
			// Truncate the count to fit the remaining file length (spec §7).
			elemSize := uint64(typ.Size())
			if available < 0 {
				available = 0
			}
			count = uint64(available) / elemSize
			valueSize = count * elemSize
		}
		raw = make([]byte, valueSize)
		if valueSize > 0 {
			if err := s.ReadAt(raw, int64(off)); err != nil {
				return nil, false, err
			}
		}
	}

	entry := decodeValue(hdr.Order, typ, count, raw)
	entry.Tag = tag
	entry.ValueOffset = valueOffset
	return entry, true, nil
}

func isLittleEndian(hdr Header) bool {
	var probe [2]byte
	hdr.Order.PutUint16(probe[:], 1)
	return probe[0] == 1
}

// WriteIFD serialises d at the stream's current position, which must
// already be even (callers pad beforehand — see PadToEven). Entries are
// written in ascending tag order; any in-memory pseudo-tag state on d
// (LittleEndian/BigTIFF/Reuse) is never serialised, since it lives outside
// the entry map entirely. The next-IFD trailer is written as 0 and its
// absolute offset is returned so the caller can patch it once the
// following directory's location is known.
func WriteIFD(s stream.Stream, hdr Header, d *ifd.IFD) (ifdOffset uint64, nextSlotOffset int64, err error) {
	ifdOffset, nextSlotOffset, _, err = WriteIFDTracked(s, hdr, d)
	return ifdOffset, nextSlotOffset, err
}

// WriteIFDTracked behaves exactly like WriteIFD, but additionally returns the
// absolute file offset of each tag's value bytes — the entry's inline slot
// when the value fits there, or its overflow location otherwise. The writer
// package's WriteForward uses this to reserve space for TileOffsets/
// TileByteCounts (or the strip equivalents) and patch the real arrays in
// once tile data has been flushed, without rewriting or relocating the IFD
// (spec §4.H point 3).
func WriteIFDTracked(s stream.Stream, hdr Header, d *ifd.IFD) (ifdOffset uint64, nextSlotOffset int64, valueOffsets map[tifftag.Tag]int64, err error) {
	pos, err := s.Position()
	if err != nil {
		return 0, 0, nil, err
	}
	if pos%2 != 0 {
		return 0, 0, nil, fmt.Errorf("directory: IFD must start at an even offset, got %d", pos)
	}
	ifdOffset = uint64(pos)

	tags := d.Tags()
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	headerSize := hdr.CountSize() + int64(len(tags))*hdr.EntrySize() + hdr.OffsetSize()
	overflowStart := pos + headerSize

	type planned struct {
		entry    *ifd.Entry
		diskType fieldtype.Type
		value    []byte
	}
	plans := make([]planned, 0, len(tags))
	overflowSize := int64(0)
	for _, tag := range tags {
		e, _ := d.Get(tag)
		diskType := chooseDiskType(hdr.BigTIFF, e, tifftag.IsWellKnownSizeTag(tag))
		if !hdr.BigTIFF && diskType.IsBigTIFFOnly() {
			return 0, 0, nil, fmt.Errorf("directory: tag %s cannot use BigTIFF-only type %s in a classic TIFF", tag, diskType)
		}
		value := encodeValue(hdr.Order, e, diskType)
		p := planned{entry: e, diskType: diskType, value: value}
		if int64(len(value)) > hdr.InlineSlotSize() {
			overflowSize += int64(len(value))
		}
		plans = append(plans, p)
	}

	if hdr.BigTIFF {
		if err := stream.PutUint64(s, uint64(len(tags))); err != nil {
			return 0, 0, nil, err
		}
	} else {
		if err := stream.PutUint16(s, uint16(len(tags))); err != nil {
			return 0, 0, nil, err
		}
	}

	valueOffsets = make(map[tifftag.Tag]int64, len(tags))
	overflowCursor := overflowStart
	overflow := make([]byte, 0, overflowSize)
	for i, tag := range tags {
		p := plans[i]
		if err := stream.PutUint16(s, uint16(tag)); err != nil {
			return 0, 0, nil, err
		}
		if err := stream.PutUint16(s, uint16(p.diskType)); err != nil {
			return 0, 0, nil, err
		}
		count := p.entry.Count
		if p.entry.Type == fieldtype.ASCII || p.entry.Type == fieldtype.Undefined {
			count = uint64(len(p.entry.Raw))
		}
		if hdr.BigTIFF {
			if err := stream.PutUint64(s, count); err != nil {
				return 0, 0, nil, err
			}
		} else {
			if err := stream.PutUint32(s, uint32(count)); err != nil {
				return 0, 0, nil, err
			}
		}

		slotPos, err := s.Position()
		if err != nil {
			return 0, 0, nil, err
		}

		if int64(len(p.value)) <= hdr.InlineSlotSize() {
			valueOffsets[tag] = slotPos
			slot := make([]byte, hdr.InlineSlotSize())
			copy(slot, p.value)
			if err := s.WriteAll(slot); err != nil {
				return 0, 0, nil, err
			}
		} else {
			valueOffsets[tag] = overflowCursor
			if hdr.BigTIFF {
				if err := stream.PutUint64(s, uint64(overflowCursor)); err != nil {
					return 0, 0, nil, err
				}
			} else {
				if err := stream.PutUint32(s, uint32(overflowCursor)); err != nil {
					return 0, 0, nil, err
				}
			}
			overflow = append(overflow, p.value...)
			overflowCursor += int64(len(p.value))
		}
	}

	nextSlotOffset, err = s.Position()
	if err != nil {
		return 0, 0, nil, err
	}
	if hdr.BigTIFF {
		if err := stream.PutUint64(s, 0); err != nil {
			return 0, 0, nil, err
		}
	} else {
		if err := stream.PutUint32(s, 0); err != nil {
			return 0, 0, nil, err
		}
	}

	if len(overflow) > 0 {
		if err := s.WriteAll(overflow); err != nil {
			return 0, 0, nil, err
		}
	}

	return ifdOffset, nextSlotOffset, valueOffsets, nil
}

// PatchArrayValue overwrites a previously-reserved fixed-width array value
// in place, used to fill in TileOffsets/TileByteCounts (or the strip
// equivalents) after WriteForward reserved zero-filled space for them and
// tile data has since been flushed to the stream (spec §4.H point 3). typ
// must be the same field type the array was originally reserved with, so
// the patched region is exactly as wide as the space already allocated.
func PatchArrayValue(s stream.Stream, hdr Header, slotOffset int64, typ fieldtype.Type, values []uint64) error {
	if err := s.Seek(slotOffset); err != nil {
		return err
	}
	ints := make([]int64, len(values))
	for i, v := range values {
		ints[i] = int64(v)
	}
	e := &ifd.Entry{Type: typ, Count: uint64(len(values)), Ints: ints}
	return s.WriteAll(encodeValue(hdr.Order, e, typ))
}

// PadToEven appends a single zero byte if the stream's current position is
// odd, guaranteeing the next write begins at an even offset (spec §4.H).
func PadToEven(s stream.Stream) error {
	pos, err := s.Position()
	if err != nil {
		return err
	}
	if pos%2 == 0 {
		return nil
	}
	return s.WriteAll([]byte{0})
}

// PatchNextOffset writes value into the next-IFD slot at absolute position
// slotOffset, used by the writer to link one directory to the next once
// both are known.
func PatchNextOffset(s stream.Stream, hdr Header, slotOffset int64, value uint64) error {
	if err := s.Seek(slotOffset); err != nil {
		return err
	}
	if hdr.BigTIFF {
		return stream.PutUint64(s, value)
	}
	return stream.PutUint32(s, uint32(value))
}
