package stream

import (
	"encoding/binary"
	"testing"
)

func TestMemoryStreamReadWriteRoundTrip(t *testing.T) {
	s := NewMemoryStream(nil, binary.LittleEndian)

	if err := PutUint16(s, 0x1234); err != nil {
		t.Fatalf("PutUint16: %v", err)
	}
	if err := PutUint32(s, 0xdeadbeef); err != nil {
		t.Fatalf("PutUint32: %v", err)
	}
	if err := PutUint64(s, 0x0102030405060708); err != nil {
		t.Fatalf("PutUint64: %v", err)
	}

	if err := s.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	got16, err := Uint16(s)
	if err != nil || got16 != 0x1234 {
		t.Fatalf("Uint16 = %x, %v, want 0x1234", got16, err)
	}
	got32, err := Uint32(s)
	if err != nil || got32 != 0xdeadbeef {
		t.Fatalf("Uint32 = %x, %v, want 0xdeadbeef", got32, err)
	}
	got64, err := Uint64(s)
	if err != nil || got64 != 0x0102030405060708 {
		t.Fatalf("Uint64 = %x, %v, want 0x0102030405060708", got64, err)
	}
}

func TestMemoryStreamReadAtDoesNotMoveCursor(t *testing.T) {
	s := NewMemoryStream([]byte{1, 2, 3, 4, 5}, binary.BigEndian)
	if err := s.Seek(2); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	buf := make([]byte, 2)
	if err := s.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if buf[0] != 1 || buf[1] != 2 {
		t.Fatalf("ReadAt got %v, want [1 2]", buf)
	}

	pos, err := s.Position()
	if err != nil || pos != 2 {
		t.Fatalf("Position after ReadAt = %d, %v, want 2", pos, err)
	}
}

func TestMemoryStreamReadAtShortRead(t *testing.T) {
	s := NewMemoryStream([]byte{1, 2, 3}, binary.BigEndian)
	buf := make([]byte, 4)
	if err := s.ReadAt(buf, 0); err == nil {
		t.Fatal("expected ErrShortRead reading past end of buffer")
	}
}

func TestMemoryStreamWriteGrowsBuffer(t *testing.T) {
	s := NewMemoryStream(nil, binary.LittleEndian)
	if err := s.Seek(4); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if err := s.WriteAll([]byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if got, want := len(s.Bytes()), 6; got != want {
		t.Fatalf("len(Bytes()) = %d, want %d", got, want)
	}
	if s.Bytes()[4] != 0xaa || s.Bytes()[5] != 0xbb {
		t.Fatalf("Bytes() = %v, want trailing [0xaa 0xbb]", s.Bytes())
	}
}

func TestReaderAtStreamReadOnly(t *testing.T) {
	data := []byte{10, 20, 30, 40}
	s := NewReaderAtStream(bytesReaderAt(data), int64(len(data)), binary.BigEndian)

	buf := make([]byte, 2)
	if err := s.ReadAt(buf, 1); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if buf[0] != 20 || buf[1] != 30 {
		t.Fatalf("ReadAt = %v, want [20 30]", buf)
	}

	if err := s.WriteAll([]byte{1}); err == nil {
		t.Fatal("expected WriteAll on a ReaderAtStream to fail")
	}
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, b[off:])
	return n, nil
}
