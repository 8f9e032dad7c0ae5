package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// FileStream is a Stream backed by an *os.File, used by the reader and
// writer when operating on on-disk TIFF files.
type FileStream struct {
	f     *os.File
	order binary.ByteOrder
	pos   int64
}

// OpenFile opens path for random-access reading and writing, creating it if
// create is true (truncating any existing contents), and wraps it as a
// Stream using the given byte order.
func OpenFile(path string, order binary.ByteOrder, create bool) (*FileStream, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("stream: open %s: %w", path, err)
	}
	return &FileStream{f: f, order: order}, nil
}

// NewFileStream wraps an already-open *os.File as a Stream.
func NewFileStream(f *os.File, order binary.ByteOrder) *FileStream {
	return &FileStream{f: f, order: order}
}

func (s *FileStream) Order() binary.ByteOrder { return s.order }

// SetOrder changes the byte order used for subsequent typed reads/writes.
// Used by header parsing, which must determine endianness from the first
// two bytes of the file before any further typed access is possible.
func (s *FileStream) SetOrder(order binary.ByteOrder) { s.order = order }

func (s *FileStream) Close() error { return s.f.Close() }

func (s *FileStream) Len() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stream: stat: %w", err)
	}
	return fi.Size(), nil
}

func (s *FileStream) Position() (int64, error) { return s.pos, nil }

func (s *FileStream) Seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("stream: negative seek offset %d", offset)
	}
	s.pos = offset
	return nil
}

func (s *FileStream) ReadExact(buf []byte) error {
	n, err := s.f.ReadAt(buf, s.pos)
	s.pos += int64(n)
	if err != nil {
		if err == io.EOF && n == len(buf) {
			return nil
		}
		return fmt.Errorf("%w at position %d: %v", ErrShortRead, s.pos-int64(n), err)
	}
	return nil
}

func (s *FileStream) ReadAt(buf []byte, offset int64) error {
	n, err := s.f.ReadAt(buf, offset)
	if err != nil {
		if err == io.EOF && n == len(buf) {
			return nil
		}
		return fmt.Errorf("%w at position %d: %v", ErrShortRead, offset, err)
	}
	return nil
}

func (s *FileStream) WriteAll(buf []byte) error {
	n, err := s.f.WriteAt(buf, s.pos)
	s.pos += int64(n)
	if err != nil {
		return fmt.Errorf("stream: write at %d: %w", s.pos-int64(n), err)
	}
	return nil
}
