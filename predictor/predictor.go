// Package predictor defines TIFF Predictor tag values (tag 317), a
// lossless pre-filter applied to sample data before compression.
//
// Reference: https://www.awaresystems.be/imaging/tiff/tifftags/predictor.html
package predictor

import "fmt"

// Type represents a TIFF Predictor value.
type Type int

const (
	// Unknown indicates an unrecognized or missing predictor.
	Unknown Type = -1

	// None applies no prediction (the default when the tag is absent).
	None Type = 1

	// Horizontal applies horizontal differencing across samples in a row.
	Horizontal Type = 2

	// FloatingPoint applies the floating-point byte-reordering predictor.
	FloatingPoint Type = 3
)

// String returns a human-readable name for the predictor.
func (p Type) String() string {
	switch p {
	case Unknown:
		return "Unknown"
	case None:
		return "None"
	case Horizontal:
		return "Horizontal"
	case FloatingPoint:
		return "FloatingPoint"
	default:
		return fmt.Sprintf("Predictor(%d)", int(p))
	}
}
