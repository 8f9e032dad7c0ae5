// Package directory implements the TIFF header, the offset chain linking
// successive IFDs, and the binary serialisation/parsing of IFD entries
// themselves — the byte-exact container format at the heart of this module
// (spec §4.D, §6).
package directory

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/echoflaresat/gotiff/stream"
)

// ErrNotTIFF is returned when the first two bytes of the stream are not a
// recognised byte-order marker. Soft error: callers not running in
// RequireValid mode may treat this as "no image here" rather than aborting.
var ErrNotTIFF = errors.New("directory: not a TIFF file")

// ErrBadMagic is returned when the 16-bit magic number following the byte
// order marker is neither 42 (classic) nor 43 (BigTIFF).
var ErrBadMagic = errors.New("directory: unrecognised TIFF magic number")

// ErrBadBigTIFFHeader is returned when a BigTIFF header's offset-size or
// reserved fields don't hold their mandated constant values.
var ErrBadBigTIFFHeader = errors.New("directory: malformed BigTIFF header")

// Header is the parsed (or about-to-be-written) fixed preamble of a TIFF
// file: byte order, classic vs BigTIFF, and the offset of the first IFD.
type Header struct {
	Order          binary.ByteOrder
	BigTIFF        bool
	FirstIFDOffset uint64

	// Size is the on-disk size of the header itself: 8 bytes classic, 16
	// bytes BigTIFF.
	Size int64
}

// EntrySize returns the on-disk size of one IFD entry under this header:
// 12 bytes classic, 20 bytes BigTIFF.
func (h Header) EntrySize() int64 {
	if h.BigTIFF {
		return 20
	}
	return 12
}

// InlineSlotSize returns the width of the value-or-offset slot within one
// IFD entry: 4 bytes classic, 8 bytes BigTIFF.
func (h Header) InlineSlotSize() int64 {
	if h.BigTIFF {
		return 8
	}
	return 4
}

// OffsetSize returns the width of a bare file offset (entry count prefix,
// next-IFD pointer): 4 bytes classic (well, 2 for the entry count — see
// CountSize), 8 bytes BigTIFF.
func (h Header) OffsetSize() int64 {
	if h.BigTIFF {
		return 8
	}
	return 4
}

// CountSize returns the width of the IFD entry-count prefix: 2 bytes
// classic, 8 bytes BigTIFF.
func (h Header) CountSize() int64 {
	if h.BigTIFF {
		return 8
	}
	return 2
}

// maxClassicEntries and maxBigTIFFEntries cap the number of entries this
// parser will accept in one directory, as a defence against corrupt or
// adversarial files (spec §4.D: "~178 million classic, much smaller limits
// enforced in practice").
const (
	maxClassicEntries = 65535
	maxBigTIFFEntries = 10_000_000
)

// ReadHeader parses the 8- or 16-byte TIFF header at the start of s,
// determining byte order and classic-vs-BigTIFF along the way. s's byte
// order is updated in place via stream.OrderSetter once detected.
func ReadHeader(s stream.Stream) (Header, error) {
	length, err := s.Len()
	if err != nil {
		return Header{}, err
	}
	if length < 8 {
		return Header{}, fmt.Errorf("%w: file shorter than 8 bytes", ErrNotTIFF)
	}

	var marker [2]byte
	if err := s.ReadAt(marker[:], 0); err != nil {
		return Header{}, err
	}

	var order binary.ByteOrder
	switch {
	case marker[0] == 'I' && marker[1] == 'I':
		order = binary.LittleEndian
	case marker[0] == 'M' && marker[1] == 'M':
		order = binary.BigEndian
	default:
		return Header{}, fmt.Errorf("%w: bad byte-order marker %q", ErrNotTIFF, marker[:])
	}

	if setter, ok := s.(stream.OrderSetter); ok {
		setter.SetOrder(order)
	}
	if err := s.Seek(2); err != nil {
		return Header{}, err
	}

	magic, err := stream.Uint16(s)
	if err != nil {
		return Header{}, err
	}

	switch magic {
	case 42:
		if length < 8 {
			return Header{}, fmt.Errorf("%w: classic header truncated", ErrNotTIFF)
		}
		firstIFD, err := stream.Uint32(s)
		if err != nil {
			return Header{}, err
		}
		return Header{Order: order, BigTIFF: false, FirstIFDOffset: uint64(firstIFD), Size: 8}, nil
	case 43:
		if length < 16 {
			return Header{}, fmt.Errorf("%w: BigTIFF header truncated", ErrBadBigTIFFHeader)
		}
		offsetSize, err := stream.Uint16(s)
		if err != nil {
			return Header{}, err
		}
		if offsetSize != 8 {
			return Header{}, fmt.Errorf("%w: offset size %d, want 8", ErrBadBigTIFFHeader, offsetSize)
		}
		reserved, err := stream.Uint16(s)
		if err != nil {
			return Header{}, err
		}
		if reserved != 0 {
			return Header{}, fmt.Errorf("%w: reserved word %d, want 0", ErrBadBigTIFFHeader, reserved)
		}
		firstIFD, err := stream.Uint64(s)
		if err != nil {
			return Header{}, err
		}
		return Header{Order: order, BigTIFF: true, FirstIFDOffset: firstIFD, Size: 16}, nil
	default:
		return Header{}, fmt.Errorf("%w: %d", ErrBadMagic, magic)
	}
}

// WriteHeader writes the fixed preamble for a new file at the stream's
// current position (which must be 0) using s.Order() as the byte order, and
// returns the header along with the absolute offset of the first-IFD slot
// so the caller (the writer package) can track it as the position of the
// most recent "next IFD" pointer.
func WriteHeader(s stream.Stream, bigtiff bool) (hdr Header, firstIFDSlotOffset int64, err error) {
	pos, err := s.Position()
	if err != nil {
		return Header{}, 0, err
	}
	if pos != 0 {
		return Header{}, 0, fmt.Errorf("directory: header must be written at offset 0, got %d", pos)
	}

	order := s.Order()
	var marker [2]byte
	if order == binary.LittleEndian {
		marker = [2]byte{'I', 'I'}
	} else {
		marker = [2]byte{'M', 'M'}
	}
	if err := s.WriteAll(marker[:]); err != nil {
		return Header{}, 0, err
	}

	if bigtiff {
		if err := stream.PutUint16(s, 43); err != nil {
			return Header{}, 0, err
		}
		if err := stream.PutUint16(s, 8); err != nil {
			return Header{}, 0, err
		}
		if err := stream.PutUint16(s, 0); err != nil {
			return Header{}, 0, err
		}
		slot, _ := s.Position()
		if err := stream.PutUint64(s, 0); err != nil {
			return Header{}, 0, err
		}
		return Header{Order: order, BigTIFF: true, Size: 16}, slot, nil
	}

	if err := stream.PutUint16(s, 42); err != nil {
		return Header{}, 0, err
	}
	slot, _ := s.Position()
	if err := stream.PutUint32(s, 0); err != nil {
		return Header{}, 0, err
	}
	return Header{Order: order, BigTIFF: false, Size: 8}, slot, nil
}
