// Package pixeltype names the concrete in-memory element type of a decoded
// sample, derived from a TIFF entry's (SampleFormat, BitsPerSample) pair.
// It is used by the codec and pixel-transform interfaces to describe the
// shape of the buffers they exchange.
package pixeltype

import (
	"fmt"

	"github.com/echoflaresat/gotiff/sampleformat"
)

// Type represents the concrete element type of a decoded pixel sample.
type Type int

const (
	Unknown Type = iota
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
)

// String returns a human-readable name for the pixel type.
func (t Type) String() string {
	switch t {
	case Uint8:
		return "Uint8"
	case Int8:
		return "Int8"
	case Uint16:
		return "Uint16"
	case Int16:
		return "Int16"
	case Uint32:
		return "Uint32"
	case Int32:
		return "Int32"
	case Uint64:
		return "Uint64"
	case Int64:
		return "Int64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	default:
		return "Unknown"
	}
}

// ByteWidth returns the number of bytes one sample of this type occupies.
func (t Type) ByteWidth() int {
	switch t {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	default:
		return 0
	}
}

// From derives the PixelType for a given SampleFormat and bits-per-sample.
// An absent (Unknown) SampleFormat is treated as Uint, matching the TIFF 6.0
// default. Unrecognised (bits, format) combinations return Unknown.
func From(format sampleformat.Type, bits int) Type {
	if format == sampleformat.Unknown {
		format = sampleformat.Uint
	}
	switch format {
	case sampleformat.Uint, sampleformat.Void:
		switch bits {
		case 8:
			return Uint8
		case 16:
			return Uint16
		case 32:
			return Uint32
		case 64:
			return Uint64
		}
	case sampleformat.Int:
		switch bits {
		case 8:
			return Int8
		case 16:
			return Int16
		case 32:
			return Int32
		case 64:
			return Int64
		}
	case sampleformat.IEEEFP:
		switch bits {
		case 32:
			return Float32
		case 64:
			return Float64
		}
	}
	return Unknown
}

// SampleFormat returns the TIFF SampleFormat value this pixel type should
// be tagged with when written out.
func (t Type) SampleFormat() sampleformat.Type {
	switch t {
	case Int8, Int16, Int32, Int64:
		return sampleformat.Int
	case Float32, Float64:
		return sampleformat.IEEEFP
	default:
		return sampleformat.Uint
	}
}

// Err formats a descriptive error for an unsupported (format, bits) pair.
func Err(format sampleformat.Type, bits int) error {
	return fmt.Errorf("pixeltype: unsupported sample format %s with %d bits per sample", format, bits)
}
