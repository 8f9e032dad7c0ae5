package directory

import (
	"encoding/binary"
	"math"

	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/ifd"
)

// decodeValue fills an Entry's typed fields from a raw byte payload already
// known to hold exactly count values of typ.
func decodeValue(order binary.ByteOrder, typ fieldtype.Type, count uint64, raw []byte) *ifd.Entry {
	e := &ifd.Entry{Type: typ, Count: count}
	switch typ {
	case fieldtype.ASCII, fieldtype.Undefined:
		e.Raw = append([]byte(nil), raw...)
	case fieldtype.Byte:
		e.Ints = make([]int64, count)
		for i := range e.Ints {
			e.Ints[i] = int64(raw[i])
		}
	case fieldtype.SByte:
		e.Ints = make([]int64, count)
		for i := range e.Ints {
			e.Ints[i] = int64(int8(raw[i]))
		}
	case fieldtype.Short:
		e.Ints = make([]int64, count)
		for i := range e.Ints {
			e.Ints[i] = int64(order.Uint16(raw[i*2:]))
		}
	case fieldtype.SShort:
		e.Ints = make([]int64, count)
		for i := range e.Ints {
			e.Ints[i] = int64(int16(order.Uint16(raw[i*2:])))
		}
	case fieldtype.Long, fieldtype.IFD:
		e.Ints = make([]int64, count)
		for i := range e.Ints {
			e.Ints[i] = int64(order.Uint32(raw[i*4:]))
		}
	case fieldtype.SLong:
		e.Ints = make([]int64, count)
		for i := range e.Ints {
			e.Ints[i] = int64(int32(order.Uint32(raw[i*4:])))
		}
	case fieldtype.Long8, fieldtype.IFD8:
		e.Ints = make([]int64, count)
		for i := range e.Ints {
			e.Ints[i] = int64(order.Uint64(raw[i*8:]))
		}
	case fieldtype.SLong8:
		e.Ints = make([]int64, count)
		for i := range e.Ints {
			e.Ints[i] = int64(order.Uint64(raw[i*8:]))
		}
	case fieldtype.Rational:
		e.Rationals = make([]int64, count*2)
		for i := uint64(0); i < count; i++ {
			e.Rationals[i*2] = int64(order.Uint32(raw[i*8:]))
			e.Rationals[i*2+1] = int64(order.Uint32(raw[i*8+4:]))
		}
	case fieldtype.SRational:
		e.Rationals = make([]int64, count*2)
		for i := uint64(0); i < count; i++ {
			e.Rationals[i*2] = int64(int32(order.Uint32(raw[i*8:])))
			e.Rationals[i*2+1] = int64(int32(order.Uint32(raw[i*8+4:])))
		}
	case fieldtype.Float:
		e.Floats = make([]float64, count)
		for i := range e.Floats {
			e.Floats[i] = float64(math.Float32frombits(order.Uint32(raw[i*4:])))
		}
	case fieldtype.Double:
		e.Floats = make([]float64, count)
		for i := range e.Floats {
			e.Floats[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	}
	return e
}

// encodeValue serialises an Entry's typed fields into a raw byte payload
// under the given on-disk type (which may differ from e.Type only for the
// BigTIFF LONG/LONG8 compatibility compaction — see chooseDiskType).
func encodeValue(order binary.ByteOrder, e *ifd.Entry, diskType fieldtype.Type) []byte {
	n := int(e.Count)
	switch diskType {
	case fieldtype.ASCII, fieldtype.Undefined:
		return e.Raw
	case fieldtype.Byte, fieldtype.SByte:
		out := make([]byte, n)
		for i, v := range e.Ints {
			out[i] = byte(v)
		}
		return out
	case fieldtype.Short, fieldtype.SShort:
		out := make([]byte, n*2)
		for i, v := range e.Ints {
			order.PutUint16(out[i*2:], uint16(v))
		}
		return out
	case fieldtype.Long, fieldtype.SLong, fieldtype.IFD:
		out := make([]byte, n*4)
		for i, v := range e.Ints {
			order.PutUint32(out[i*4:], uint32(v))
		}
		return out
	case fieldtype.Long8, fieldtype.SLong8, fieldtype.IFD8:
		out := make([]byte, n*8)
		for i, v := range e.Ints {
			order.PutUint64(out[i*8:], uint64(v))
		}
		return out
	case fieldtype.Rational, fieldtype.SRational:
		out := make([]byte, n*8)
		for i := 0; i < n; i++ {
			order.PutUint32(out[i*8:], uint32(e.Rationals[i*2]))
			order.PutUint32(out[i*8+4:], uint32(e.Rationals[i*2+1]))
		}
		return out
	case fieldtype.Float:
		out := make([]byte, n*4)
		for i, v := range e.Floats {
			order.PutUint32(out[i*4:], math.Float32bits(float32(v)))
		}
		return out
	case fieldtype.Double:
		out := make([]byte, n*8)
		for i, v := range e.Floats {
			order.PutUint64(out[i*8:], math.Float64bits(v))
		}
		return out
	default:
		return nil
	}
}

// chooseDiskType applies the BigTIFF LONG/LONG8 compatibility quirk (spec
// §6): a scalar (count==1) LONG-family value is promoted to LONG8 when
// writing BigTIFF, except for the well-known size tags, which always stay
// LONG so long as the value fits in 32 bits.
func chooseDiskType(bigtiff bool, e *ifd.Entry, isSizeTag bool) fieldtype.Type {
	if !bigtiff {
		return e.Type
	}
	if e.Type != fieldtype.Long || e.Count != 1 {
		return e.Type
	}
	if isSizeTag && e.Ints[0] >= 0 && e.Ints[0] <= math.MaxUint32 {
		return fieldtype.Long
	}
	return fieldtype.Long8
}
