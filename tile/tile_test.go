package tile

import "testing"

func TestIndexString(t *testing.T) {
	idx := Index{Plane: 1, Col: 2, Row: 3}
	if got, want := idx.String(), "tile(plane=1,col=2,row=3)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestLifecycle(t *testing.T) {
	tl := New(Index{0, 0, 0}, 4, 4)
	if tl.State != Created {
		t.Fatalf("new tile state = %s, want Created", tl.State)
	}

	tl.SetEncoded([]byte{1, 2, 3})
	if tl.State != Encoded {
		t.Fatalf("after SetEncoded state = %s, want Encoded", tl.State)
	}

	tl.SetDecoded([]byte{4, 5, 6, 7}, true)
	if tl.State != Decoded {
		t.Fatalf("after SetDecoded state = %s, want Decoded", tl.State)
	}
	if tl.Encoded != nil {
		t.Error("SetDecoded should discard stale Encoded bytes")
	}

	tl.SetEncoded([]byte{9})
	tl.MarkWritten(100, 1)
	if tl.State != Written {
		t.Fatalf("after MarkWritten state = %s, want Written", tl.State)
	}
	if tl.StoredOffset != 100 || tl.StoredLength != 1 {
		t.Errorf("StoredOffset/Length = %d/%d, want 100/1", tl.StoredOffset, tl.StoredLength)
	}
}
