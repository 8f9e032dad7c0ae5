package fieldtype

import "testing"

func TestSize(t *testing.T) {
	tests := []struct {
		typ  Type
		want int
	}{
		{Byte, 1},
		{ASCII, 1},
		{SByte, 1},
		{Undefined, 1},
		{Short, 2},
		{SShort, 2},
		{Long, 4},
		{SLong, 4},
		{Float, 4},
		{IFD, 4},
		{Rational, 8},
		{SRational, 8},
		{Double, 8},
		{Long8, 8},
		{SLong8, 8},
		{IFD8, 8},
		{Unknown, 0},
		{Type(99), 0},
	}
	for _, tt := range tests {
		if got := tt.typ.Size(); got != tt.want {
			t.Errorf("%s.Size() = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestIsBigTIFFOnly(t *testing.T) {
	bigOnly := map[Type]bool{
		Long8: true, SLong8: true, IFD8: true,
		Byte: false, Long: false, Double: false,
	}
	for typ, want := range bigOnly {
		if got := typ.IsBigTIFFOnly(); got != want {
			t.Errorf("%s.IsBigTIFFOnly() = %v, want %v", typ, got, want)
		}
	}
}

func TestIsSigned(t *testing.T) {
	signed := map[Type]bool{
		SByte: true, SShort: true, SLong: true, SLong8: true, SRational: true,
		Byte: false, Short: false, Long: false, Rational: false, Float: false,
	}
	for typ, want := range signed {
		if got := typ.IsSigned(); got != want {
			t.Errorf("%s.IsSigned() = %v, want %v", typ, got, want)
		}
	}
}

func TestStringUnknownCode(t *testing.T) {
	if got, want := Type(250).String(), "FieldType(250)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
