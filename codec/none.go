package codec

import "fmt"

// NoneCodec passes tile bytes through unchanged (Compression == 1).
type NoneCodec struct{}

func (NoneCodec) Compress(data []byte, _ Options) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (NoneCodec) Decompress(data []byte, opts Options) ([]byte, error) {
	if opts.MaxBytes > 0 && len(data) > opts.MaxBytes {
		return nil, fmt.Errorf("codec: uncompressed tile of %d bytes exceeds limit %d", len(data), opts.MaxBytes)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
