package codec

import (
	"errors"
	"fmt"
)

// LZWCodec implements TIFF's own LZW variant (Compression == 5): MSB-first
// bit packing and "early change", where the code width grows one code
// before the table actually needs the wider width. Go's standard
// compress/lzw implements the GIF/PDF variant instead (no early change),
// which rejects TIFF streams with "invalid code" errors, so this package
// carries its own matching encoder/decoder
// pair rather than reaching for the stdlib package under a label it
// doesn't actually implement.
type LZWCodec struct{}

const (
	lzwMinWidth  = 9
	lzwMaxWidth  = 12
	lzwClearCode = 256
	lzwEOICode   = 257
	lzwFirstCode = 258
	lzwTableSize = 4096
)

func (LZWCodec) Compress(data []byte, _ Options) ([]byte, error) {
	return lzwEncode(data), nil
}

func (LZWCodec) Decompress(data []byte, opts Options) ([]byte, error) {
	out, err := lzwDecode(data)
	if err != nil {
		return nil, fmt.Errorf("codec: lzw decompress: %w", err)
	}
	if opts.MaxBytes > 0 && len(out) > opts.MaxBytes {
		return nil, fmt.Errorf("codec: lzw output of %d bytes exceeds limit %d", len(out), opts.MaxBytes)
	}
	return out, nil
}

type lzwBitWriter struct {
	out     []byte
	bitBuf  uint32
	nBits   int
}

func (w *lzwBitWriter) writeCode(code int, width int) {
	w.bitBuf = (w.bitBuf << uint(width)) | uint32(code)
	w.nBits += width
	for w.nBits >= 8 {
		w.nBits -= 8
		w.out = append(w.out, byte(w.bitBuf>>uint(w.nBits)))
	}
}

func (w *lzwBitWriter) flush() {
	if w.nBits > 0 {
		w.out = append(w.out, byte(w.bitBuf<<uint(8-w.nBits)))
		w.nBits = 0
	}
}

type lzwEncEntry struct {
	suffix byte
	child  map[byte]int
}

// lzwEncode implements the TIFF early-change variant directly: the code
// width grows to width+1 as soon as nextCode reaches 2^width. The decoder's
// table trails the encoder's by one entry, so it bumps at 2^width - 1.
func lzwEncode(data []byte) []byte {
	w := &lzwBitWriter{}
	if len(data) == 0 {
		w.writeCode(lzwClearCode, lzwMinWidth)
		w.writeCode(lzwEOICode, lzwMinWidth)
		w.flush()
		return w.out
	}

	table := make([]lzwEncEntry, lzwTableSize)
	resetTable := func() int {
		for i := 0; i < 256; i++ {
			table[i] = lzwEncEntry{suffix: byte(i)}
		}
		return lzwFirstCode
	}

	nextCode := resetTable()
	codeWidth := lzwMinWidth
	w.writeCode(lzwClearCode, codeWidth)

	prefix := int(data[0])
	for i := 1; i < len(data); i++ {
		b := data[i]
		if table[prefix].child == nil {
			table[prefix].child = make(map[byte]int)
		}
		if next, ok := table[prefix].child[b]; ok {
			prefix = next
			continue
		}

		w.writeCode(prefix, codeWidth)

		if nextCode < lzwTableSize {
			table[prefix].child[b] = nextCode
			table[nextCode] = lzwEncEntry{suffix: b}
			nextCode++
			if nextCode >= (1<<uint(codeWidth)) && codeWidth < lzwMaxWidth {
				codeWidth++
			}
		} else {
			w.writeCode(lzwClearCode, codeWidth)
			nextCode = resetTable()
			codeWidth = lzwMinWidth
		}
		prefix = int(b)
	}
	w.writeCode(prefix, codeWidth)
	w.writeCode(lzwEOICode, codeWidth)
	w.flush()
	return w.out
}

type lzwDecEntry struct {
	prefix int
	suffix byte
	length int
}

type lzwBitReader struct {
	src    []byte
	bitPos int
}

func (r *lzwBitReader) readBits(n int) (int, error) {
	result := 0
	for i := 0; i < n; i++ {
		bytePos := r.bitPos / 8
		bitOff := 7 - (r.bitPos % 8)
		if bytePos >= len(r.src) {
			return 0, errors.New("lzw: unexpected end of stream")
		}
		bit := (int(r.src[bytePos]) >> uint(bitOff)) & 1
		result = (result << 1) | bit
		r.bitPos++
	}
	return result, nil
}

func lzwDecode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r := &lzwBitReader{src: data}

	table := make([]lzwDecEntry, lzwTableSize+1)
	resetTable := func() int {
		for i := 0; i < 256; i++ {
			table[i] = lzwDecEntry{prefix: -1, suffix: byte(i), length: 1}
		}
		return lzwFirstCode
	}

	nextCode := resetTable()
	codeWidth := lzwMinWidth
	var output []byte
	buf := make([]byte, 0, 512)

	getString := func(code int) ([]byte, error) {
		entry := &table[code]
		if entry.length <= 0 {
			return nil, fmt.Errorf("lzw: invalid code %d", code)
		}
		buf = buf[:entry.length]
		idx := entry.length - 1
		for code >= 0 {
			e := &table[code]
			buf[idx] = e.suffix
			idx--
			code = e.prefix
		}
		return buf, nil
	}

	code, err := r.readBits(codeWidth)
	if err != nil {
		return nil, err
	}
	if code != lzwClearCode {
		return nil, errors.New("lzw: stream does not begin with a clear code")
	}

	prevCode := -1
	for {
		code, err := r.readBits(codeWidth)
		if err != nil {
			return output, nil
		}

		if code == lzwEOICode {
			return output, nil
		}
		if code == lzwClearCode {
			nextCode = resetTable()
			codeWidth = lzwMinWidth
			prevCode = -1
			continue
		}

		if prevCode == -1 {
			if code >= 256 {
				return nil, errors.New("lzw: first code after clear is not a literal")
			}
			output = append(output, byte(code))
			prevCode = code
			continue
		}

		var outStr []byte
		if code < nextCode {
			outStr, err = getString(code)
			if err != nil {
				return nil, err
			}
			output = append(output, outStr...)
			if nextCode < lzwTableSize {
				table[nextCode] = lzwDecEntry{prefix: prevCode, suffix: outStr[0], length: table[prevCode].length + 1}
				nextCode++
			}
		} else if code == nextCode {
			prevStr, err := getString(prevCode)
			if err != nil {
				return nil, err
			}
			first := prevStr[0]
			output = append(output, prevStr...)
			output = append(output, first)
			if nextCode < lzwTableSize {
				table[nextCode] = lzwDecEntry{prefix: prevCode, suffix: first, length: table[prevCode].length + 1}
				nextCode++
			}
		} else {
			return nil, fmt.Errorf("lzw: invalid code %d", code)
		}

		if nextCode+1 >= (1<<uint(codeWidth)) && codeWidth < lzwMaxWidth {
			codeWidth++
		}
		prevCode = code
	}
}
