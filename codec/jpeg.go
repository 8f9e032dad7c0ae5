package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	stdjpeg "image/jpeg"
)

// JPEGCodec wraps the standard library's baseline JPEG codec (Compression
// == 7). No pack example vendors a third-party JPEG implementation; the
// standard library's is what every TIFF reader in the corpus falls back to
// for this compression type, so this codec does the same (see DESIGN.md).
// JPEGTables splicing happens one layer up, in the directory/reader code
// that has access to the owning IFD; by the time bytes reach this codec
// they are already a complete JPEG stream.
type JPEGCodec struct{}

func (JPEGCodec) Compress(data []byte, opts Options) ([]byte, error) {
	img, err := packToImage(data, opts)
	if err != nil {
		return nil, fmt.Errorf("codec: jpeg compress: %w", err)
	}
	var buf bytes.Buffer
	quality := opts.Quality
	if quality <= 0 {
		quality = 90
	}
	if err := stdjpeg.Encode(&buf, img, &stdjpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("codec: jpeg compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (JPEGCodec) Decompress(data []byte, opts Options) ([]byte, error) {
	img, err := stdjpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("codec: jpeg decompress: %w", err)
	}
	out := imageToPack(img, opts)
	if opts.MaxBytes > 0 && len(out) > opts.MaxBytes {
		return nil, fmt.Errorf("codec: jpeg output exceeds limit %d bytes", opts.MaxBytes)
	}
	return out, nil
}

// packToImage interprets a raw interleaved byte buffer as an image.Image so
// the standard encoder can consume it. Only byte-per-sample RGB or
// greyscale tiles are supported for encode; YCbCr source data is expected
// to already have been converted to RGB by the pixel-transform layer
// before reaching the codec.
func packToImage(data []byte, opts Options) (image.Image, error) {
	if opts.BytesPerSample != 1 {
		return nil, fmt.Errorf("jpeg encode only supports 8-bit samples, got %d bytes/sample", opts.BytesPerSample)
	}
	switch opts.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, opts.Width, opts.Height))
		copy(img.Pix, data)
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
		for i := 0; i < opts.Width*opts.Height; i++ {
			img.Pix[i*4] = data[i*3]
			img.Pix[i*4+1] = data[i*3+1]
			img.Pix[i*4+2] = data[i*3+2]
			img.Pix[i*4+3] = 255
		}
		return img, nil
	default:
		return nil, fmt.Errorf("jpeg encode only supports 1 or 3 channels, got %d", opts.Channels)
	}
}

// imageToPack flattens a decoded JPEG back into the engine's interleaved
// byte layout, converting to RGB when the tile's photometric interpretation
// calls for it and the JPEG decoder didn't already (the stdlib decoder
// performs the YCbCr->RGB conversion itself when it recognises the stream
// as YCbCr, which is the common case for TIFF/JPEG).
func imageToPack(img image.Image, opts Options) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if opts.Channels == 1 {
		out := make([]byte, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out[y*w+x] = byte(r >> 8)
			}
		}
		return out
	}

	out := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*w + x) * 3
			out[i] = c.R
			out[i+1] = c.G
			out[i+2] = c.B
		}
	}
	return out
}
