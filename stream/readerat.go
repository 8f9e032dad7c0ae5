package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrWriteUnsupported is returned by ReaderAtStream's write methods: it only
// ever wraps a read-only io.ReaderAt.
var ErrWriteUnsupported = errors.New("stream: underlying reader does not support writes")

// ReaderAtStream adapts an io.ReaderAt of known length into a read-only
// Stream, used by the public image.Image facade when it is handed a generic
// io.Reader instead of an *os.File (spec §4.A).
type ReaderAtStream struct {
	r     io.ReaderAt
	size  int64
	order binary.ByteOrder
	pos   int64
}

// NewReaderAtStream wraps r, whose total length is size, as a read-only
// Stream.
func NewReaderAtStream(r io.ReaderAt, size int64, order binary.ByteOrder) *ReaderAtStream {
	return &ReaderAtStream{r: r, size: size, order: order}
}

func (s *ReaderAtStream) Order() binary.ByteOrder { return s.order }

// SetOrder changes the byte order used for subsequent typed reads.
func (s *ReaderAtStream) SetOrder(order binary.ByteOrder) { s.order = order }

func (s *ReaderAtStream) Close() error { return nil }

func (s *ReaderAtStream) Len() (int64, error) { return s.size, nil }

func (s *ReaderAtStream) Position() (int64, error) { return s.pos, nil }

func (s *ReaderAtStream) Seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("stream: negative seek offset %d", offset)
	}
	s.pos = offset
	return nil
}

func (s *ReaderAtStream) ReadExact(buf []byte) error {
	if err := s.ReadAt(buf, s.pos); err != nil {
		return err
	}
	s.pos += int64(len(buf))
	return nil
}

func (s *ReaderAtStream) ReadAt(buf []byte, offset int64) error {
	n, err := s.r.ReadAt(buf, offset)
	if err != nil {
		if err == io.EOF && n == len(buf) {
			return nil
		}
		return fmt.Errorf("%w at position %d: %v", ErrShortRead, offset, err)
	}
	return nil
}

func (s *ReaderAtStream) WriteAll(buf []byte) error { return ErrWriteUnsupported }
