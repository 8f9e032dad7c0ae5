// Package sampleformat defines TIFF SampleFormat tag values (tag 339),
// which specify how the bits in a sample should be interpreted numerically.
//
// Reference: https://www.awaresystems.be/imaging/tiff/tifftags/sampleformat.html
package sampleformat

import "fmt"

// Type represents a TIFF SampleFormat value.
type Type int

const (
	// Unknown indicates an unrecognized or missing sample format; absence
	// of the tag implies Uint per the TIFF 6.0 default.
	Unknown Type = -1

	// Uint means unsigned integer data (the default when the tag is absent).
	Uint Type = 1

	// Int means two's-complement signed integer data.
	Int Type = 2

	// IEEEFP means IEEE floating point data.
	IEEEFP Type = 3

	// Void means undefined data format, interpreted bit-for-bit.
	Void Type = 4

	// ComplexInt means complex integer data.
	ComplexInt Type = 5

	// ComplexIEEEFP means complex IEEE floating point data.
	ComplexIEEEFP Type = 6
)

// String returns a human-readable name for the sample format.
func (s Type) String() string {
	switch s {
	case Unknown:
		return "Unknown"
	case Uint:
		return "Uint"
	case Int:
		return "Int"
	case IEEEFP:
		return "IEEEFP"
	case Void:
		return "Void"
	case ComplexInt:
		return "ComplexInt"
	case ComplexIEEEFP:
		return "ComplexIEEEFP"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(s))
	}
}
