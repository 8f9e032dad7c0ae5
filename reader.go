// Package tiff provides a memory-efficient, standards-compatible TIFF and
// BigTIFF codec for Go, with support for on-demand access to tiled and
// stripped, single- and multi-plane images compressed with a pluggable set
// of codecs.
//
// When working with supported TIFF formats, this decoder avoids loading the
// entire image into memory. Instead, it reads only the required pixel data
// on demand using io.ReaderAt.
//
//	⚠️ When a supported format is detected, the caller must keep the underlying reader
//	(typically a file) open for as long as the image.Image is in use.
//
// If the format is unsupported, the decoder gracefully falls back to golang.org/x/image/tiff,
// in which case the full image is decoded eagerly and no special reader lifetime is required.
//
// Supported features in random access mode:
//
//   - Classic and BigTIFF containers, tiled and stripped, single- and
//     multi-directory
//   - Compression: None, PackBits, Deflate, LZW, JPEG (with shared
//     JPEGTables)
//   - Photometric: RGB, BlackIsZero, WhiteIsZero, YCbCr, CMYK
//   - PlanarConfig: Contig and Separate
//
// Programmatic access beyond the image.Image facade — random-access region
// reads, writing new files, appending images to an existing chain — is
// available through OpenReader and NewWriter, backed by the reader and
// writer packages directly.
//
// Example usage:
//
//	import (
//	    "image"
//	    _ "github.com/echoflaresat/gotiff"
//	)
//
//	func main() {
//	    f, _ := os.Open("image.tif") // Must remain open when using the image
//	    defer f.Close()
//
//	    img, _, err := image.Decode(f)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Use img.At(x, y), img.Bounds(), etc.
//	}
package tiff

import (
	"encoding/binary"
	"image"
	"io"
	"os"

	"github.com/echoflaresat/gotiff/directory"
	"github.com/echoflaresat/gotiff/impl"
	"github.com/echoflaresat/gotiff/reader"
	"github.com/echoflaresat/gotiff/stream"
	"github.com/echoflaresat/gotiff/writer"
	stdtiff "golang.org/x/image/tiff"
)

const (
	// littleEndianHeader is the TIFF header for little-endian byte order.
	littleEndianHeader = "II\x2A\x00"
	// bigEndianHeader is the TIFF header for big-endian byte order.
	bigEndianHeader = "MM\x00\x2A"
)

// DecodeConfig returns the color model and dimensions of a TIFF image without decoding the entire image.
// It uses the standard library's TIFF decoder for configuration extraction.
func DecodeConfig(r io.Reader) (image.Config, error) {
	return stdtiff.DecodeConfig(r)
}

// Decode reads a TIFF image from r and returns it as an image.Image.
// It first attempts to decode using the engine's lazy reader, falling back
// to the standard library's TIFF decoder (which does not support BigTIFF
// or the fuller codec/photometric set this package handles) if that fails.
func Decode(r io.Reader) (image.Image, error) {
	var readerAt io.ReaderAt
	var size int64

	if ra, ok := r.(io.ReaderAt); ok {
		if sz, ok := sizeOf(r); ok {
			readerAt, size = ra, sz
		}
	}
	if readerAt == nil {
		if rs, ok := r.(io.ReadSeeker); ok {
			if sz, err := rs.Seek(0, io.SeekEnd); err == nil {
				if _, err := rs.Seek(0, io.SeekStart); err == nil {
					readerAt, size = &readerAtFromSeeker{rs: rs}, sz
				}
			}
		}
	}

	if readerAt != nil {
		if img, err := impl.LoadTiffImage(readerAt, size); err == nil {
			return img, nil
		}
	}

	// Fallback to standard decoder
	return stdtiff.Decode(r)
}

// sizeOf reports r's total length when it also implements io.Seeker,
// without disturbing its current read position.
func sizeOf(r io.Reader) (int64, bool) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return 0, false
	}
	cur, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, false
	}
	if _, err := rs.Seek(cur, io.SeekStart); err != nil {
		return 0, false
	}
	return end, true
}

// readerAtFromSeeker adapts an io.ReadSeeker to io.ReaderAt.
type readerAtFromSeeker struct {
	rs io.ReadSeeker
}

// ReadAt implements the io.ReaderAt interface for readerAtFromSeeker.
// It seeks to the specified offset and reads into p.
func (r *readerAtFromSeeker) ReadAt(p []byte, off int64) (int, error) {
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return r.rs.Read(p)
}

// OpenReader parses f's header and IFD chain and returns a reader.Reader for
// direct programmatic access: enumerating directories, reading individual
// tiles, or assembling arbitrary pixel subregions (spec §4.G). f must stay
// open for as long as the returned Reader is in use.
func OpenReader(f *os.File, opts ...reader.Option) (*reader.Reader, error) {
	hdr, err := peekOrder(f)
	if err != nil {
		return nil, err
	}
	return reader.Open(stream.NewFileStream(f, hdr), opts...)
}

// peekOrder reads the two-byte order marker from f without disturbing the
// caller's ability to read the rest of the file through the same handle,
// since stream.FileStream tracks its own cursor starting at 0.
func peekOrder(f *os.File) (binary.ByteOrder, error) {
	var marker [2]byte
	if _, err := f.ReadAt(marker[:], 0); err != nil {
		return nil, err
	}
	switch string(marker[:]) {
	case "II":
		return binary.LittleEndian, nil
	case "MM":
		return binary.BigEndian, nil
	default:
		return nil, directory.ErrNotTIFF
	}
}

// NewWriter opens f for a fresh TIFF (or BigTIFF) write and returns a
// writer.Writer for direct programmatic access: preparing directories,
// filling in tile data, and flushing one or more images to the file's IFD
// chain (spec §4.H).
func NewWriter(f *os.File, bigtiff bool, opts ...writer.Option) (*writer.Writer, error) {
	return writer.StartNewFile(stream.NewFileStream(f, binary.LittleEndian), bigtiff, opts...)
}

// init registers the TIFF format with the image package, supporting both little-endian and big-endian headers.
func init() {
	image.RegisterFormat("tiff", littleEndianHeader, Decode, DecodeConfig)
	image.RegisterFormat("tiff", bigEndianHeader, Decode, DecodeConfig)
}
