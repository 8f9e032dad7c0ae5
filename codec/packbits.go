package codec

import "fmt"

// PackBitsCodec implements Apple/TIFF PackBits run-length encoding
// (Compression == 32773): each control byte n is followed either by n+1
// literal bytes (0 <= n <= 127) or one byte repeated 1-n times
// (-127 <= n <= -1); n == -128 is a no-op.
type PackBitsCodec struct{}

func (PackBitsCodec) Compress(data []byte, _ Options) ([]byte, error) {
	return packBits(data), nil
}

// packBits is the straightforward two-pass-free greedy PackBits encoder:
// scan ahead for runs of 3+ identical bytes (worth encoding as a run) and
// otherwise accumulate a literal span.
func packBits(data []byte) []byte {
	var out []byte
	i := 0
	for i < len(data) {
		runLen := 1
		for i+runLen < len(data) && runLen < 128 && data[i+runLen] == data[i] {
			runLen++
		}
		if runLen >= 3 {
			out = append(out, byte(int8(-(runLen - 1))), data[i])
			i += runLen
			continue
		}

		litStart := i
		for i < len(data) {
			nextRun := 1
			for i+nextRun < len(data) && nextRun < 128 && data[i+nextRun] == data[i] {
				nextRun++
			}
			if nextRun >= 3 {
				break
			}
			i++
			if i-litStart >= 128 {
				break
			}
		}
		litLen := i - litStart
		out = append(out, byte(litLen-1))
		out = append(out, data[litStart:i]...)
	}
	return out
}

func (PackBitsCodec) Decompress(data []byte, opts Options) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	i := 0
	for i < len(data) {
		n := int8(data[i])
		i++
		switch {
		case n >= 0:
			count := int(n) + 1
			if i+count > len(data) {
				return nil, fmt.Errorf("codec: packbits literal run truncated")
			}
			out = append(out, data[i:i+count]...)
			i += count
		case n == -128:
			// No-op control byte.
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("codec: packbits replicate run truncated")
			}
			count := 257 - int(n) - 256
			b := data[i]
			i++
			for j := 0; j < count; j++ {
				out = append(out, b)
			}
		}
		if opts.MaxBytes > 0 && len(out) > opts.MaxBytes {
			return nil, fmt.Errorf("codec: packbits output exceeds limit %d", opts.MaxBytes)
		}
	}
	return out, nil
}
