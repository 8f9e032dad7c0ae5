// Package pixelops holds the pure, stateless pixel transforms that sit
// between a decoded/to-be-encoded tile and the codec layer: fill-order bit
// reversal, predictor differencing, non-standard sample-precision packing,
// YCbCr/CMYK colour conversion and chunky/planar interleaving (spec §4.H,
// §9's explicit redesign note keeping these as free functions rather than
// methods tangled into the tile/IFD graph).
package pixelops

import "fmt"

// reverseBitsTable maps a byte to its bit-reversed form, used by
// ReverseFillOrder. Built once at package init rather than computed per
// call.
var reverseBitsTable [256]byte

func init() {
	for i := 0; i < 256; i++ {
		b := byte(i)
		var r byte
		for bit := 0; bit < 8; bit++ {
			r <<= 1
			r |= b & 1
			b >>= 1
		}
		reverseBitsTable[i] = r
	}
}

// ReverseFillOrder flips every byte in data from MSB2LSB to LSB2MSB bit
// order, or vice versa (the transform is its own inverse). It operates
// in place and also returns data for convenience.
func ReverseFillOrder(data []byte) []byte {
	for i, b := range data {
		data[i] = reverseBitsTable[b]
	}
	return data
}

// HorizontalPredictorEncode differences each sample from its left
// neighbour within a row, per channel, per the TIFF horizontal predictor
// (Predictor == 2). samplesPerPixel*bytesPerSample gives the per-pixel
// stride; width is measured in pixels. Only 8- and 16-bit integer samples
// are supported, matching the predictor's defined domain.
func HorizontalPredictorEncode(data []byte, width, samplesPerPixel, bytesPerSample int) error {
	return horizontalPredictor(data, width, samplesPerPixel, bytesPerSample, true)
}

// HorizontalPredictorDecode reverses HorizontalPredictorEncode.
func HorizontalPredictorDecode(data []byte, width, samplesPerPixel, bytesPerSample int) error {
	return horizontalPredictor(data, width, samplesPerPixel, bytesPerSample, false)
}

func horizontalPredictor(data []byte, width, samplesPerPixel, bytesPerSample int, encode bool) error {
	stride := samplesPerPixel * bytesPerSample
	rowBytes := width * stride
	if rowBytes == 0 || len(data)%rowBytes != 0 {
		return fmt.Errorf("pixelops: data length %d is not a multiple of row size %d", len(data), rowBytes)
	}

	switch bytesPerSample {
	case 1:
		for r := 0; r*rowBytes < len(data); r++ {
			row := data[r*rowBytes : (r+1)*rowBytes]
			if encode {
				for i := len(row) - 1; i >= stride; i-- {
					row[i] -= row[i-stride]
				}
			} else {
				for i := stride; i < len(row); i++ {
					row[i] += row[i-stride]
				}
			}
		}
	case 2:
		for r := 0; r*rowBytes < len(data); r++ {
			row := data[r*rowBytes : (r+1)*rowBytes]
			n := len(row) / 2
			if encode {
				for i := n - 1; i*2 >= stride; i-- {
					cur := be16(row, i*2)
					prev := be16(row, i*2-stride)
					putBe16(row, i*2, cur-prev)
				}
			} else {
				for i := stride / 2; i < n; i++ {
					cur := be16(row, i*2)
					prev := be16(row, i*2-stride)
					putBe16(row, i*2, cur+prev)
				}
			}
		}
	default:
		return fmt.Errorf("pixelops: horizontal predictor does not support %d-byte samples", bytesPerSample)
	}
	return nil
}

func be16(b []byte, i int) uint16 { return uint16(b[i])<<8 | uint16(b[i+1]) }
func putBe16(b []byte, i int, v uint16) {
	b[i] = byte(v >> 8)
	b[i+1] = byte(v)
}

// UnpackPrecision expands a tightly bit-packed sample stream (bitsPerSample
// not in {8,16,32,64}) into one byte per sample, scaled to the full 8-bit
// range, for uniform downstream handling. count is the total number of
// samples in data.
func UnpackPrecision(data []byte, bitsPerSample, count int) []byte {
	out := make([]byte, count)
	bitPos := 0
	maxVal := (1 << uint(bitsPerSample)) - 1
	for i := 0; i < count; i++ {
		v := 0
		for b := 0; b < bitsPerSample; b++ {
			bytePos := bitPos / 8
			bitOff := 7 - (bitPos % 8)
			if bytePos < len(data) {
				bit := (data[bytePos] >> uint(bitOff)) & 1
				v = (v << 1) | int(bit)
			} else {
				v <<= 1
			}
			bitPos++
		}
		if maxVal > 0 {
			out[i] = byte(v * 255 / maxVal)
		}
	}
	return out
}

// YCbCrToRGB converts one interleaved YCbCr pixel buffer to interleaved RGB
// using the given luma coefficients (DefaultYCbCrCoefficients holds the
// ITU-R BT.601 values TIFF uses absent a YCbCrCoefficients tag). A non-zero
// refBlackWhite (the ReferenceBlackWhite tag's six values) first rescales
// each component from its [black, white] coding range; an all-zero
// refBlackWhite keeps the default ranges [0,255], [128,255], [128,255].
func YCbCrToRGB(data []byte, coefficients [3]float64, refBlackWhite [6]float64) []byte {
	out := make([]byte, len(data))
	lumaRed, lumaGreen, lumaBlue := coefficients[0], coefficients[1], coefficients[2]
	useRef := refBlackWhite != [6]float64{}
	for i := 0; i+2 < len(data); i += 3 {
		y := float64(data[i])
		cb := float64(data[i+1]) - 128
		cr := float64(data[i+2]) - 128
		if useRef {
			if d := refBlackWhite[1] - refBlackWhite[0]; d != 0 {
				y = (float64(data[i]) - refBlackWhite[0]) * 255 / d
			}
			if d := refBlackWhite[3] - refBlackWhite[2]; d != 0 {
				cb = (float64(data[i+1]) - refBlackWhite[2]) * 127 / d
			}
			if d := refBlackWhite[5] - refBlackWhite[4]; d != 0 {
				cr = (float64(data[i+2]) - refBlackWhite[4]) * 127 / d
			}
		}

		r := y + cr*(2-2*lumaRed)
		b := y + cb*(2-2*lumaBlue)
		g := (y - lumaRed*r - lumaBlue*b) / lumaGreen

		out[i] = clamp8(r)
		out[i+1] = clamp8(g)
		out[i+2] = clamp8(b)
	}
	return out
}

func clamp8(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

// DefaultYCbCrCoefficients are the BT.601 luma weights TIFF specifies as
// the default when no YCbCrCoefficients tag is present.
var DefaultYCbCrCoefficients = [3]float64{0.299, 0.587, 0.114}

// InvertCMYK flips every sample (255-v for 8-bit data), converting between
// the two common CMYK storage conventions (ink-amount vs.
// percentage-of-white). TIFF's CMYK photometric interpretation stores
// ink-amount directly; CMYKToRGB uses this to obtain each sample's
// complement (255 minus the ink amount).
func InvertCMYK(data []byte) []byte {
	out := make([]byte, len(data))
	for i, v := range data {
		out[i] = 255 - v
	}
	return out
}

// CMYKToRGB converts one interleaved CMYK pixel buffer (4 samples per pixel)
// to interleaved RGB (3 samples per pixel), using InvertCMYK to get each
// channel's complement (1-C, 1-M, 1-Y, 1-K) before applying the standard multiplicative
// preview formula R=(1-C)(1-K), G=(1-M)(1-K), B=(1-Y)(1-K).
func CMYKToRGB(data []byte) []byte {
	inverted := InvertCMYK(data)
	n := len(inverted) / 4
	out := make([]byte, n*3)
	for i := 0; i < n; i++ {
		c, m, y, k := inverted[i*4], inverted[i*4+1], inverted[i*4+2], inverted[i*4+3]
		out[i*3] = byte(int(c) * int(k) / 255)
		out[i*3+1] = byte(int(m) * int(k) / 255)
		out[i*3+2] = byte(int(y) * int(k) / 255)
	}
	return out
}

// InterleaveFromPlanes converts separate per-channel plane buffers into one
// chunky-interleaved buffer (RRR...GGG...BBB... -> RGBRGB...).
func InterleaveFromPlanes(planes [][]byte, width, height int) []byte {
	channels := len(planes)
	out := make([]byte, width*height*channels)
	for c, plane := range planes {
		for i := 0; i < width*height; i++ {
			out[i*channels+c] = plane[i]
		}
	}
	return out
}

