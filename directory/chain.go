package directory

import (
	"fmt"

	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/stream"
	"github.com/echoflaresat/gotiff/tifftag"
)

// carryOverBound32 is the point past which a classic (32-bit-offset) file's
// next-IFD pointer can wrap and appear to go backward; beyond it readers add
// back 1<<32 to compensate (spec §4.D).
const carryOverBound32 = uint64(1) << 32

// compensateCarryOver reproduces the 32-bit offset wrap quirk some classic
// TIFF writers exhibit once a file grows past 2^31 bytes: a next-IFD offset
// that appears to go backward relative to the directory it terminates is
// assumed to have wrapped past 2^32 and is corrected by adding it back. This
// is deliberately not "fixed" at the writer side — some files in the wild
// were produced this way and must still round-trip.
func compensateCarryOver(bigtiff bool, fileLen int64, previousOffset, next uint64) uint64 {
	if bigtiff || next == 0 {
		return next
	}
	if fileLen <= (1 << 31) {
		return next
	}
	if next < previousOffset {
		return next + carryOverBound32
	}
	return next
}

// WalkChain follows the singly-linked list of top-level IFDs starting at
// hdr.FirstIFDOffset, stopping at offset 0. An offset that has already been
// visited (a cycle) is reported as an error. It does not descend into SubIFDs; callers
// wanting those call WalkSubIFDs per directory.
func WalkChain(s stream.Stream, hdr Header, opts ReadOptions) ([]*ifd.IFD, error) {
	fileLen, err := s.Len()
	if err != nil {
		return nil, err
	}

	var out []*ifd.IFD
	seen := make(map[uint64]bool)
	offset := hdr.FirstIFDOffset
	prev := offset
	for offset != 0 {
		if seen[offset] {
			return nil, fmt.Errorf("directory: IFD chain contains a cycle at offset %d", offset)
		}
		seen[offset] = true

		d, next, err := ReadIFD(s, hdr, offset, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, d)

		next = compensateCarryOver(hdr.BigTIFF, fileLen, prev, next)
		prev = offset
		offset = next
	}
	return out, nil
}

// IFDTrailerSlot returns the absolute file offset of the next-IFD pointer
// trailing the directory at ifdOffset, without fully parsing its entries.
// Used by a writer appending to an existing file, which must patch that
// slot once it knows where the new directory will land.
func IFDTrailerSlot(s stream.Stream, hdr Header, ifdOffset uint64) (int64, error) {
	if err := s.Seek(int64(ifdOffset)); err != nil {
		return 0, err
	}
	var numEntries uint64
	if hdr.BigTIFF {
		v, err := stream.Uint64(s)
		if err != nil {
			return 0, err
		}
		numEntries = v
	} else {
		v, err := stream.Uint16(s)
		if err != nil {
			return 0, err
		}
		numEntries = uint64(v)
	}
	entryStart := int64(ifdOffset) + hdr.CountSize()
	return entryStart + int64(numEntries)*hdr.EntrySize(), nil
}

// LastIFDTrailerSlot walks the chain starting at hdr.FirstIFDOffset and
// returns the trailer slot offset of the final directory — the position a
// writer appending new images must patch to link them in. If the chain is
// empty (first-IFD offset 0), it returns an error; the header does not
// retain the position of its own first-IFD slot once parsed.
func LastIFDTrailerSlot(s stream.Stream, hdr Header, opts ReadOptions) (int64, error) {
	fileLen, err := s.Len()
	if err != nil {
		return 0, err
	}
	offset := hdr.FirstIFDOffset
	if offset == 0 {
		return 0, fmt.Errorf("directory: chain is empty; no trailer slot to find")
	}
	prev := offset
	for {
		slot, err := IFDTrailerSlot(s, hdr, offset)
		if err != nil {
			return 0, err
		}
		if err := s.Seek(slot); err != nil {
			return 0, err
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
			return 0, err
		}
		next = compensateCarryOver(hdr.BigTIFF, fileLen, prev, next)
		if next == 0 {
			return slot, nil
		}
		prev = offset
		offset = next
		_ = opts
	}
}

// WalkSubIFDs reads every directory pointed to by d's SubIFD tag, if
// present. A SubIFD entry holds one or more absolute file offsets, each the
// head of its own (typically single-entry) chain; this generalises the
// overview/mask linkage pattern into a uniform nested-directory walk (spec
// §4.G).
func WalkSubIFDs(s stream.Stream, hdr Header, d *ifd.IFD, opts ReadOptions) ([]*ifd.IFD, error) {
	e, ok := d.Get(tifftag.SubIFD)
	if !ok {
		return nil, nil
	}

	var out []*ifd.IFD
	for _, off := range e.Ints {
		sub, next, err := ReadIFD(s, hdr, uint64(off), opts)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
		// A SubIFD entry's target directory may itself chain onward via its
		// own next-IFD trailer; that chain is nested under this same
		// parent, not a sibling of the top-level image sequence.
		fileLen, lerr := s.Len()
		if lerr != nil {
			return nil, lerr
		}
		next = compensateCarryOver(hdr.BigTIFF, fileLen, uint64(off), next)
		for next != 0 {
			chained, n2, err := ReadIFD(s, hdr, next, opts)
			if err != nil {
				return nil, err
			}
			out = append(out, chained)
			next = compensateCarryOver(hdr.BigTIFF, fileLen, next, n2)
		}
	}
	return out, nil
}
