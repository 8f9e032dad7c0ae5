// Package writer implements the write path: preparing an IFD, splitting a
// caller's pixel rectangle into tiles, driving codec encode, writing tiles,
// and emitting/patching the IFD chain (spec §4.H).
package writer

import (
	"errors"
	"fmt"
	"math"

	"github.com/echoflaresat/gotiff/codec"
	"github.com/echoflaresat/gotiff/compression"
	"github.com/echoflaresat/gotiff/directory"
	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/ifd"
	"github.com/echoflaresat/gotiff/photometric"
	"github.com/echoflaresat/gotiff/pixeltype"
	"github.com/echoflaresat/gotiff/planarconfig"
	"github.com/echoflaresat/gotiff/sampleformat"
	"github.com/echoflaresat/gotiff/stream"
	"github.com/echoflaresat/gotiff/tifftag"
	"github.com/echoflaresat/gotiff/tilemap"
)

// ErrOffsetOverflow is returned when a classic (32-bit-offset) file would
// need an offset beyond 2^32 and automatic BigTIFF promotion is disabled.
var ErrOffsetOverflow = errors.New("writer: file offsets exceed the classic TIFF 32-bit range")

// ErrNeedsBigTIFF is returned instead of ErrOffsetOverflow when automatic
// promotion is enabled: the caller should restart the write against a new
// BigTIFF-mode Writer. This package does not rewrite an in-progress classic
// file to BigTIFF in place — unlike a one-shot encoder that can simply
// rerun its entire write against a fresh output, a streaming writer has
// already flushed bytes under classic offsets by the time the overflow is
// discovered, so promotion has to happen at the caller's level instead.
var ErrNeedsBigTIFF = errors.New("writer: image requires BigTIFF; restart with a BigTIFF writer")

// Writer drives the write path against one stream: preparing directories,
// handing out tile maps, encoding and flushing tiles, and maintaining the
// IFD chain. Not safe for concurrent use (spec §9).
type Writer struct {
	s   stream.Stream
	hdr directory.Header

	codecs *codec.Registry

	autoPromoteBigTIFF  bool
	missingTilesAllowed bool
	filler              byte
	rgbOverride         bool

	// lastTrailerSlot is the absolute offset of the next-IFD pointer that
	// must be patched to link in the next image written.
	lastTrailerSlot int64

	// forward tracks images written ahead of their pixel data via
	// WriteForward, keyed by their IFD, so CompleteImage can patch their
	// reserved data-positioning arrays in place (spec §4.H point 3).
	forward map[*ifd.IFD]forwardReservation
}

// Option configures a Writer at construction time.
type Option func(*Writer)

// WithCodecs overrides the default codec registry.
func WithCodecs(r *codec.Registry) Option { return func(w *Writer) { w.codecs = r } }

// WithMissingTilesAllowed lets CompleteImage leave never-written grid cells
// as (offset=0, byteCount=0) instead of pointing them at a shared filler
// tile (spec §4.H).
func WithMissingTilesAllowed() Option { return func(w *Writer) { w.missingTilesAllowed = true } }

// WithFiller sets the byte used to initialise newly allocated tile buffers
// and any filler tile (default 0).
func WithFiller(b byte) Option { return func(w *Writer) { w.filler = b } }

// WithRGBOverride forces StartNewImage's default photometric choice to RGB
// even for a JPEG-compressed chunky image, instead of the usual YCbCr
// default for that combination (spec §4.H point 2).
func WithRGBOverride() Option { return func(w *Writer) { w.rgbOverride = true } }

// StartNewFile writes a fresh header at the start of s and returns a Writer
// ready to accept images.
func StartNewFile(s stream.Stream, bigtiff bool, opts ...Option) (*Writer, error) {
	hdr, slot, err := directory.WriteHeader(s, bigtiff)
	if err != nil {
		return nil, err
	}
	w := &Writer{s: s, hdr: hdr, codecs: codec.Default(), lastTrailerSlot: slot}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// StartAppending parses an existing file's header and chain and returns a
// Writer positioned to append further images after the last one.
func StartAppending(s stream.Stream, opts ...Option) (*Writer, error) {
	hdr, err := directory.ReadHeader(s)
	if err != nil {
		return nil, err
	}
	slot, err := directory.LastIFDTrailerSlot(s, hdr, directory.ReadOptions{})
	if err != nil {
		return nil, err
	}
	w := &Writer{s: s, hdr: hdr, codecs: codec.Default(), lastTrailerSlot: slot}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SetAutoPromoteBigTIFF toggles automatic detection of classic-mode offset
// overflow (spec supplement, grounded on the full-file-size COG writers in
// the retrieval pack): when enabled, CompleteImage returns ErrNeedsBigTIFF
// instead of silently truncating offsets or ErrOffsetOverflow. Off by
// default.
func (w *Writer) SetAutoPromoteBigTIFF(v bool) { w.autoPromoteBigTIFF = v }

// BigTIFF reports whether this writer is operating in BigTIFF mode.
func (w *Writer) BigTIFF() bool { return w.hdr.BigTIFF }

// StartNewImage prepares d for a new image of the given channel count and
// element type, filling in BitsPerSample/SampleFormat/SamplesPerPixel/
// PhotometricInterpretation when the caller hasn't already set them, and
// returns a tile map sized either to d's existing tile/strip geometry or,
// in resizable mode, left open until CompleteImage finalises its extent
// (spec §4.H).
func (w *Writer) StartNewImage(d *ifd.IFD, channels int, elem pixeltype.Type, resizable bool) (*tilemap.Map, error) {
	if elem.ByteWidth() == 0 {
		return nil, fmt.Errorf("writer: unsupported element type %s", elem)
	}
	bits := elem.ByteWidth() * 8
	switch bits {
	case 8, 16, 32, 64:
	default:
		return nil, fmt.Errorf("writer: unsupported bits per sample %d", bits)
	}
	signed := elem.SampleFormat() == sampleformat.Int

	if !d.Contains(tifftag.Compression) {
		if err := d.Set(ifd.NewIntEntry(tifftag.Compression, fieldtype.Short, []int64{int64(compression.None)})); err != nil {
			return nil, err
		}
	}
	if d.Compression() == compression.JPEG || d.Compression() == compression.JPEGOld {
		if bits != 8 || signed {
			return nil, fmt.Errorf("writer: JPEG compression requires unsigned 8-bit samples")
		}
	}

	if !d.Contains(tifftag.SamplesPerPixel) {
		if err := d.Set(ifd.NewIntEntry(tifftag.SamplesPerPixel, fieldtype.Short, []int64{int64(channels)})); err != nil {
			return nil, err
		}
	}
	if !d.Contains(tifftag.BitsPerSample) {
		bits := int64(elem.ByteWidth() * 8)
		vals := make([]int64, channels)
		for i := range vals {
			vals[i] = bits
		}
		if err := d.Set(ifd.NewIntEntry(tifftag.BitsPerSample, fieldtype.Short, vals)); err != nil {
			return nil, err
		}
	}
	if !d.Contains(tifftag.SampleFormat) {
		sf := int64(elem.SampleFormat())
		vals := make([]int64, channels)
		for i := range vals {
			vals[i] = sf
		}
		if err := d.Set(ifd.NewIntEntry(tifftag.SampleFormat, fieldtype.Short, vals)); err != nil {
			return nil, err
		}
	}
	if err := d.ValidateEqualBitsPerSample(); err != nil {
		return nil, err
	}
	if !d.Contains(tifftag.PhotometricInterpretation) {
		if err := d.Set(ifd.NewIntEntry(tifftag.PhotometricInterpretation, fieldtype.Short, []int64{int64(w.defaultPhotometric(d, channels))})); err != nil {
			return nil, err
		}
	}

	bytesPerSample := elem.ByteWidth()
	if resizable {
		tx, err := d.TileSizeX()
		if err != nil {
			return nil, err
		}
		ty, err := d.TileSizeY()
		if err != nil {
			return nil, err
		}
		return tilemap.NewResizable(d, tx, ty, d.PlaneCount(), bytesPerSample)
	}
	return tilemap.New(d, bytesPerSample)
}

// defaultPhotometric chooses PhotometricInterpretation when the caller
// hasn't set one: a ColorMap on a single-channel image means a palette
// image; otherwise a single channel is BlackIsZero; a JPEG-compressed
// chunky image defaults to YCbCr unless the writer was built with
// WithRGBOverride; anything else defaults to RGB (spec §4.H point 2).
func (w *Writer) defaultPhotometric(d *ifd.IFD, channels int) photometric.Interpretation {
	if channels == 1 && d.Contains(tifftag.ColorMap) {
		return photometric.Paletted
	}
	if channels == 1 {
		return photometric.BlackIsZero
	}
	jpeg := d.Compression() == compression.JPEG || d.Compression() == compression.JPEGOld
	if jpeg && d.PlanarConfig() == planarconfig.Contig && !w.rgbOverride {
		return photometric.YCbCr
	}
	return photometric.RGB
}

// maxClassicOffset is the largest offset a classic (32-bit) TIFF file can
// address.
const maxClassicOffset = uint64(math.MaxUint32)
