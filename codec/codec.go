// Package codec defines the pluggable per-tile compression interface (spec
// §4.B, §9) and a registry of capability implementations keyed by
// compression type, mirroring the switch-on-compression-tag dispatch the
// corpus's own TIFF readers use, but made pluggable rather than hard-coded.
package codec

import (
	"errors"
	"fmt"

	"github.com/echoflaresat/gotiff/compression"
)

// ErrUnsupported is returned by Registry.Get for a compression type with no
// registered codec.
var ErrUnsupported = errors.New("codec: unsupported compression type")

// Options carries the per-tile parameters a Codec needs beyond the raw
// bytes themselves (spec §4.H: "interleaved=true, little_endian, max_bytes,
// ycbcr flag").
type Options struct {
	Width, Height int
	Channels      int
	BytesPerSample int

	LittleEndian bool

	// Interleaved reports whether the decoded/to-be-encoded buffer is
	// chunky-interleaved.
	Interleaved bool

	// MaxBytes caps a Decompress call's output size, guarding against a
	// corrupt byte count requesting unbounded memory.
	MaxBytes int

	// YCbCr marks a tile whose photometric interpretation is YCbCr. The
	// codecs in this package do not read it: the JPEG codec always returns
	// RGB (or gray) samples, as the standard decoder converts YCbCr itself.
	YCbCr bool

	// Quality is consulted only by lossy codecs (JPEG) on encode.
	Quality int
}

// Codec compresses and decompresses one tile's worth of pixel bytes.
// Implementations must be safe to use from a single goroutine at a time
// (the engine never calls one concurrently on the same Codec value from
// more than one tile at once per spec's single-writer/single-reader model).
type Codec interface {
	Compress(data []byte, opts Options) ([]byte, error)
	Decompress(data []byte, opts Options) ([]byte, error)
}

// Registry maps a compression.Type to the Codec implementing it.
type Registry struct {
	codecs map[compression.Type]Codec
}

// NewRegistry returns an empty registry. Use Default for one pre-populated
// with every codec this module implements.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[compression.Type]Codec)}
}

// Register installs c as the handler for typ, replacing any previous
// registration.
func (r *Registry) Register(typ compression.Type, c Codec) {
	r.codecs[typ] = c
}

// Get returns the codec registered for typ, or ErrUnsupported.
func (r *Registry) Get(typ compression.Type) (Codec, error) {
	c, ok := r.codecs[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, typ)
	}
	return c, nil
}

// Default returns a registry pre-populated with None, PackBits, Deflate (and
// its legacy tag alias), the hand-rolled TIFF LZW variant, and baseline
// JPEG.
func Default() *Registry {
	r := NewRegistry()
	r.Register(compression.None, NoneCodec{})
	r.Register(compression.PackBits, PackBitsCodec{})
	r.Register(compression.Deflate, DeflateCodec{})
	r.Register(compression.DeflateOld, DeflateCodec{})
	r.Register(compression.LZW, LZWCodec{})
	r.Register(compression.JPEG, JPEGCodec{})
	return r
}
