package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// DeflateCodec wraps klauspost/compress's zlib implementation (Compression
// == 8, and its legacy alias 32946).
type DeflateCodec struct{}

func (DeflateCodec) Compress(data []byte, _ Options) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("codec: deflate compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: deflate compress: %w", err)
	}
	return buf.Bytes(), nil
}

func (DeflateCodec) Decompress(data []byte, opts Options) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("codec: deflate decompress: %w", err)
	}
	defer r.Close()

	limit := int64(opts.MaxBytes)
	if limit <= 0 {
		limit = 1 << 30
	}
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("codec: deflate decompress: %w", err)
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("codec: deflate output exceeds limit %d bytes", limit)
	}
	return out, nil
}
