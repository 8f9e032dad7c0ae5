package codec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/echoflaresat/gotiff/compression"
)

func TestRegistryDefault(t *testing.T) {
	r := Default()
	for _, typ := range []compression.Type{
		compression.None, compression.PackBits, compression.Deflate,
		compression.DeflateOld, compression.LZW, compression.JPEG,
	} {
		if _, err := r.Get(typ); err != nil {
			t.Errorf("Get(%s): %v", typ, err)
		}
	}
	if _, err := r.Get(compression.Type(9999)); err == nil {
		t.Error("expected ErrUnsupported for an unregistered compression type")
	}
}

func roundTrip(t *testing.T, c Codec, data []byte) {
	t.Helper()
	compressed, err := c.Compress(data, Options{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := c.Decompress(compressed, Options{})
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(decompressed), len(data))
	}
}

func testPatterns() [][]byte {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 5000)
	rng.Read(random)

	runs := bytes.Repeat([]byte{0xAB}, 400)

	mixed := append([]byte{}, bytes.Repeat([]byte{1, 2, 3}, 50)...)
	mixed = append(mixed, bytes.Repeat([]byte{9}, 300)...)
	mixed = append(mixed, random[:200]...)

	return [][]byte{
		{},
		{0x42},
		runs,
		mixed,
		random,
	}
}

func TestNoneCodecRoundTrip(t *testing.T) {
	for _, p := range testPatterns() {
		roundTrip(t, NoneCodec{}, p)
	}
}

func TestPackBitsCodecRoundTrip(t *testing.T) {
	for _, p := range testPatterns() {
		roundTrip(t, PackBitsCodec{}, p)
	}
}

func TestPackBitsCompressesRuns(t *testing.T) {
	data := bytes.Repeat([]byte{0x7F}, 200)
	compressed, err := PackBitsCodec{}.Compress(data, Options{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("expected packbits to shrink a long run, got %d bytes from %d", len(compressed), len(data))
	}
}

func TestDeflateCodecRoundTrip(t *testing.T) {
	for _, p := range testPatterns() {
		roundTrip(t, DeflateCodec{}, p)
	}
}

func TestDeflateDecompressRespectsMaxBytes(t *testing.T) {
	data := bytes.Repeat([]byte{0x11}, 10000)
	compressed, err := DeflateCodec{}.Compress(data, Options{})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, err := DeflateCodec{}.Decompress(compressed, Options{MaxBytes: 100}); err == nil {
		t.Error("expected decompress to fail when output exceeds MaxBytes")
	}
}

func TestLZWCodecRoundTrip(t *testing.T) {
	for _, p := range testPatterns() {
		roundTrip(t, LZWCodec{}, p)
	}
}

func TestLZWCodecHandlesTableReset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := make([]byte, 20000)
	rng.Read(data)
	roundTrip(t, LZWCodec{}, data)
}

func TestJPEGCodecRoundTripPreservesDimensions(t *testing.T) {
	const w, h = 16, 12
	opts := Options{Width: w, Height: h, Channels: 3, BytesPerSample: 1}
	data := make([]byte, w*h*3)
	for i := range data {
		data[i] = byte(i % 256)
	}

	compressed, err := JPEGCodec{}.Compress(data, opts)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := JPEGCodec{}.Decompress(compressed, opts)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(out) != len(data) {
		t.Fatalf("decompressed length = %d, want %d", len(out), len(data))
	}
}

func TestJPEGCodecRejectsUnsupportedChannels(t *testing.T) {
	if _, err := JPEGCodec{}.Compress([]byte{1, 2, 3, 4}, Options{Width: 1, Height: 1, Channels: 4, BytesPerSample: 1}); err == nil {
		t.Error("expected error for a 4-channel encode request")
	}
}
