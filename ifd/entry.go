// Package ifd implements the TIFF Image File Directory: a typed tag→value
// map with the file-offset bookkeeping needed to read an existing directory
// and to stage a new one for writing (spec §3, §4.C).
package ifd

import (
	"fmt"

	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/tifftag"
)

// Entry is one typed tag→value association within an IFD. Only one of
// Ints, Rationals, Floats or Raw is populated, selected by Type.
type Entry struct {
	Tag   tifftag.Tag
	Type  fieldtype.Type
	Count uint64

	// Ints holds decoded values for every integer-family field type (Byte,
	// SByte, Short, SShort, Long, SLong, Long8, SLong8, IFD, IFD8),
	// sign-extended into int64. len(Ints) == Count.
	Ints []int64

	// Rationals holds decoded Rational/SRational values as interleaved
	// (numerator, denominator) pairs. len(Rationals) == 2*Count.
	Rationals []int64

	// Floats holds decoded Float/Double values. len(Floats) == Count.
	Floats []float64

	// Raw holds ASCII/Undefined byte payloads verbatim. len(Raw) == Count,
	// except ASCII strings may carry their own NUL terminator.
	Raw []byte

	// ValueOffset is the file offset this entry's value was read from, or 0
	// if the value fitted inline in the directory entry's value-or-offset
	// slot or the entry was built in memory. Writing does not set it;
	// directory.WriteIFDTracked reports the written value offsets instead.
	ValueOffset uint64
}

// NewIntEntry builds an entry for an integer-family field type.
func NewIntEntry(tag tifftag.Tag, typ fieldtype.Type, values []int64) *Entry {
	return &Entry{Tag: tag, Type: typ, Count: uint64(len(values)), Ints: append([]int64(nil), values...)}
}

// NewRationalEntry builds a Rational/SRational entry from (numerator,
// denominator) pairs.
func NewRationalEntry(tag tifftag.Tag, signed bool, pairs [][2]int64) *Entry {
	typ := fieldtype.Rational
	if signed {
		typ = fieldtype.SRational
	}
	flat := make([]int64, 0, len(pairs)*2)
	for _, p := range pairs {
		flat = append(flat, p[0], p[1])
	}
	return &Entry{Tag: tag, Type: typ, Count: uint64(len(pairs)), Rationals: flat}
}

// NewFloatEntry builds a Float/Double entry.
func NewFloatEntry(tag tifftag.Tag, double bool, values []float64) *Entry {
	typ := fieldtype.Float
	if double {
		typ = fieldtype.Double
	}
	return &Entry{Tag: tag, Type: typ, Count: uint64(len(values)), Floats: append([]float64(nil), values...)}
}

// NewASCIIEntry builds an ASCII entry, appending a NUL terminator if absent.
func NewASCIIEntry(tag tifftag.Tag, s string) *Entry {
	raw := []byte(s)
	if len(raw) == 0 || raw[len(raw)-1] != 0 {
		raw = append(raw, 0)
	}
	return &Entry{Tag: tag, Type: fieldtype.ASCII, Count: uint64(len(raw)), Raw: raw}
}

// NewRawEntry builds an Undefined entry from raw bytes.
func NewRawEntry(tag tifftag.Tag, raw []byte) *Entry {
	return &Entry{Tag: tag, Type: fieldtype.Undefined, Count: uint64(len(raw)), Raw: append([]byte(nil), raw...)}
}

// Int returns the first integer value, or an error if the entry carries no
// integer values.
func (e *Entry) Int() (int64, error) {
	if len(e.Ints) == 0 {
		return 0, fmt.Errorf("ifd: tag %s has no integer value", e.Tag)
	}
	return e.Ints[0], nil
}

// ASCIIString returns the entry's Raw payload as a Go string, trimming a
// single trailing NUL terminator if present.
func (e *Entry) ASCIIString() string {
	r := e.Raw
	if len(r) > 0 && r[len(r)-1] == 0 {
		r = r[:len(r)-1]
	}
	return string(r)
}

// ValueSize returns the total on-disk size in bytes of this entry's value
// (not including the 12/20-byte entry header itself).
func (e *Entry) ValueSize() uint64 {
	return e.Count * uint64(e.Type.Size())
}
