// Package stream provides the random-access byte stream abstraction the
// rest of gotiff reads and writes through (spec §4.A). A Stream is not safe
// for concurrent use; callers serialise their own access. The writer
// package takes no lock of its own, and the reader package locks only while
// walking the IFD chain in AllIFDs.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrShortRead is returned when fewer bytes were available than requested.
var ErrShortRead = errors.New("stream: short read")

// Stream is a positional byte channel with explicit endianness. Endianness
// is a property of the stream, not of each call, mirroring how a TIFF file
// commits to one byte order for its entire lifetime once the header is read.
type Stream interface {
	io.Closer

	// Order returns the stream's current byte order (see OrderSetter).
	Order() binary.ByteOrder

	// Len returns the total length of the underlying data in bytes.
	Len() (int64, error)

	// Position returns the current read/write cursor.
	Position() (int64, error)

	// Seek moves the cursor to an absolute offset from the start.
	Seek(offset int64) error

	// ReadExact reads len(buf) bytes at the current position, advancing it.
	// It returns an error wrapping ErrShortRead if fewer bytes are
	// available.
	ReadExact(buf []byte) error

	// ReadAt reads len(buf) bytes at an absolute offset without moving the
	// cursor used by ReadExact/WriteAll.
	ReadAt(buf []byte, offset int64) error

	// WriteAll writes buf at the current position, advancing it, growing
	// the underlying storage if necessary.
	WriteAll(buf []byte) error
}

// OrderSetter is implemented by concrete Stream types that allow their byte
// order to be changed after construction; used by header parsing, which
// must read two order-agnostic bytes before it can know the file's
// endianness.
type OrderSetter interface {
	SetOrder(binary.ByteOrder)
}

// Uint16 reads a 16-bit unsigned integer at the stream's current position.
func Uint16(s Stream) (uint16, error) {
	var buf [2]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return s.Order().Uint16(buf[:]), nil
}

// Uint32 reads a 32-bit unsigned integer at the stream's current position.
func Uint32(s Stream) (uint32, error) {
	var buf [4]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return s.Order().Uint32(buf[:]), nil
}

// Uint64 reads a 64-bit unsigned integer at the stream's current position.
func Uint64(s Stream) (uint64, error) {
	var buf [8]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return s.Order().Uint64(buf[:]), nil
}

// PutUint16 writes a 16-bit unsigned integer at the stream's current position.
func PutUint16(s Stream, v uint16) error {
	var buf [2]byte
	s.Order().PutUint16(buf[:], v)
	return s.WriteAll(buf[:])
}

// PutUint32 writes a 32-bit unsigned integer at the stream's current position.
func PutUint32(s Stream, v uint32) error {
	var buf [4]byte
	s.Order().PutUint32(buf[:], v)
	return s.WriteAll(buf[:])
}

// PutUint64 writes a 64-bit unsigned integer at the stream's current position.
func PutUint64(s Stream, v uint64) error {
	var buf [8]byte
	s.Order().PutUint64(buf[:], v)
	return s.WriteAll(buf[:])
}
