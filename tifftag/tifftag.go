// Package tifftag defines known TIFF tag identifiers used in image metadata.
// These tag constants correspond to the TIFF 6.0 specification and supplements,
// including common fields such as ImageWidth, Compression, and TileOffsets.
//
// For reference, see:
// https://www.loc.gov/preservation/digital/formats/content/tiff_tags.shtml
package tifftag

import "fmt"

// Tag represents a TIFF field tag number.
// These are used to identify metadata entries in TIFF image headers.
type Tag uint16

const (
	// NewSubfileType classifies the role of this directory: bit 0 marks a
	// reduced-resolution (thumbnail) version of another image in the file.
	NewSubfileType Tag = 254

	// ImageWidth specifies the number of columns (pixels) in the image.
	ImageWidth Tag = 256

	// ImageLength specifies the number of rows (pixels) in the image.
	ImageLength Tag = 257

	// BitsPerSample defines the number of bits per image component.
	BitsPerSample Tag = 258

	// Compression defines the compression scheme used on the image data.
	Compression Tag = 259

	// PhotometricInterpretation defines how pixel values should be interpreted.
	PhotometricInterpretation Tag = 262

	// FillOrder specifies the bit ordering of sub-byte samples within a byte.
	FillOrder Tag = 266

	// StripOffsets contains the offsets to image data strips.
	StripOffsets Tag = 273

	// SamplesPerPixel defines the number of components per pixel.
	SamplesPerPixel Tag = 277

	// RowsPerStrip specifies how many rows are in each strip.
	RowsPerStrip Tag = 278

	// StripByteCounts contains the byte size of each strip.
	StripByteCounts Tag = 279

	// PlanarConfiguration specifies whether components are stored together or separately.
	PlanarConfiguration Tag = 284

	// Predictor names the lossless pre-filter applied before compression.
	Predictor Tag = 317

	// ColorMap is the lookup table used when PhotometricInterpretation is Palette.
	ColorMap Tag = 320

	// TileWidth defines the width of a tile in pixels.
	TileWidth Tag = 322

	// TileLength defines the height of a tile in pixels.
	TileLength Tag = 323

	// TileOffsets contains the offsets to each tile.
	TileOffsets Tag = 324

	// TileByteCounts contains the byte size of each tile.
	TileByteCounts Tag = 325

	// SubIFD holds offsets to one or more additional, nested IFDs.
	SubIFD Tag = 330

	// YCbCrCoefficients gives the luma/chroma transform matrix coefficients.
	YCbCrCoefficients Tag = 529

	// YCbCrSubSampling gives the horizontal/vertical chroma subsampling factors.
	YCbCrSubSampling Tag = 530

	// ReferenceBlackWhite gives the black/white reference levels used by the
	// YCbCr colour transform.
	ReferenceBlackWhite Tag = 532

	// JPEGTables holds a shared JPEG abbreviated-format header stream,
	// spliced into every tile/strip belonging to the same IFD at decode time.
	JPEGTables Tag = 347

	// SampleFormat specifies the numeric interpretation of each sample.
	SampleFormat Tag = 339

	// ExifIFD points to an Exif metadata sub-directory.
	ExifIFD Tag = 34665
)

// String returns a human-readable name for the TIFF tag.
// If the tag is unknown, it returns a formatted numeric identifier.
func (t Tag) String() string {
	switch t {
	case NewSubfileType:
		return "NewSubfileType"
	case ImageWidth:
		return "ImageWidth"
	case ImageLength:
		return "ImageLength"
	case BitsPerSample:
		return "BitsPerSample"
	case Compression:
		return "Compression"
	case PhotometricInterpretation:
		return "PhotometricInterpretation"
	case FillOrder:
		return "FillOrder"
	case StripOffsets:
		return "StripOffsets"
	case SamplesPerPixel:
		return "SamplesPerPixel"
	case RowsPerStrip:
		return "RowsPerStrip"
	case StripByteCounts:
		return "StripByteCounts"
	case PlanarConfiguration:
		return "PlanarConfiguration"
	case Predictor:
		return "Predictor"
	case ColorMap:
		return "ColorMap"
	case TileWidth:
		return "TileWidth"
	case TileLength:
		return "TileLength"
	case TileOffsets:
		return "TileOffsets"
	case TileByteCounts:
		return "TileByteCounts"
	case SubIFD:
		return "SubIFD"
	case YCbCrCoefficients:
		return "YCbCrCoefficients"
	case YCbCrSubSampling:
		return "YCbCrSubSampling"
	case ReferenceBlackWhite:
		return "ReferenceBlackWhite"
	case JPEGTables:
		return "JPEGTables"
	case SampleFormat:
		return "SampleFormat"
	case ExifIFD:
		return "ExifIFD"
	default:
		return fmt.Sprintf("Tag(%d)", t)
	}
}

// sizeTags are the well-known tags that, per the BigTIFF compatibility
// quirk, are serialised as LONG rather than LONG8 when the single value
// they carry fits in 32 bits (spec §6).
var sizeTags = map[Tag]bool{
	ImageWidth:     true,
	ImageLength:    true,
	TileWidth:      true,
	TileLength:     true,
	RowsPerStrip:   true,
	NewSubfileType: true,
	// ImageDepth (32997) comes from the SGI volumetric-image extension; this
	// core does not model volumetric images but still honours the
	// compatibility rule if a caller stores the tag generically.
	Tag(32997): true,
}

// IsWellKnownSizeTag reports whether tag is one of the well-known size tags
// that prefer LONG over LONG8 in BigTIFF when the value fits in 32 bits.
func IsWellKnownSizeTag(t Tag) bool {
	return sizeTags[t]
}
