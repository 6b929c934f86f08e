package nal

import (
	"bytes"
	"testing"
)

// hevcHeader builds a 2-byte HEVC NAL header for the given type/layer/tid.
func hevcHeader(typ Type, layerID, temporalID byte) []byte {
	b0 := byte(typ) << 1
	b0 |= layerID >> 5
	b1 := (layerID & 0x1F) << 3
	b1 |= temporalID + 1
	return []byte{b0, b1}
}

func TestSplitAnnexB(t *testing.T) {
	t.Parallel()

	var data []byte
	data = append(data, 0x00, 0x00, 0x00, 0x01)
	data = append(data, hevcHeader(TypeVPS, 0, 0)...)
	data = append(data, 0x01, 0x02)
	data = append(data, 0x00, 0x00, 0x00, 0x01)
	data = append(data, hevcHeader(TypeSPS, 0, 0)...)
	data = append(data, 0x03, 0x04)
	data = append(data, 0x00, 0x00, 0x01)
	data = append(data, hevcHeader(TypeIDRWRADL, 0, 0)...)
	data = append(data, 0x05, 0x06, 0xFF)

	units, err := Split(data)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}
	if units[0].Type != TypeVPS {
		t.Errorf("unit 0: got type %d, want VPS", units[0].Type)
	}
	if units[1].Type != TypeSPS {
		t.Errorf("unit 1: got type %d, want SPS", units[1].Type)
	}
	if units[2].Type != TypeIDRWRADL {
		t.Errorf("unit 2: got type %d, want IDR_W_RADL", units[2].Type)
	}
	if !units[2].Type.IsVCL() || !units[2].Type.IsIRAP() || !units[2].Type.IsIDR() {
		t.Error("IDR_W_RADL should be VCL, IRAP, and IDR")
	}
}

func TestSplitNoStartCode(t *testing.T) {
	t.Parallel()

	if _, err := Split([]byte{0x01, 0x02, 0x03, 0x04}); err == nil {
		t.Error("expected ErrInvalidBitstream for a stream with no start code")
	}
}

func TestSplitForbiddenZeroBit(t *testing.T) {
	t.Parallel()

	var data []byte
	data = append(data, 0x00, 0x00, 0x00, 0x01)
	hdr := hevcHeader(TypeSPS, 0, 0)
	hdr[0] |= 0x80 // set forbidden_zero_bit
	data = append(data, hdr...)
	data = append(data, 0x01, 0x02)

	units, err := Split(data)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(units) != 0 {
		t.Error("expected the malformed NAL to be skipped, not returned")
	}
}

// TestEmulationPreventionRoundTrip checks that the escaped input holds
// no 0x000000, 0x000001 or 0x000002 byte sequence, and that unescaping
// drops each escape byte without disturbing its neighbours (which
// brings those sequences back).
func TestEmulationPreventionRoundTrip(t *testing.T) {
	t.Parallel()

	escaped := []byte{0x00, 0x00, 0x03, 0x00, 0x01, 0x00, 0x00, 0x03, 0x01, 0x02, 0x00, 0x00, 0x03, 0x02}
	want := []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x01, 0x02, 0x00, 0x00, 0x02}

	got := RemoveEmulationPrevention(escaped)
	if !bytes.Equal(got, want) {
		t.Fatalf("RemoveEmulationPrevention: got %x, want %x", got, want)
	}

	for i := 0; i+2 < len(escaped); i++ {
		if escaped[i] == 0 && escaped[i+1] == 0 && escaped[i+2] <= 2 {
			t.Fatalf("unescaped sequence 0x0000%02x present in the escaped input at offset %d", escaped[i+2], i)
		}
	}
}

// TestEmulationPreventionEdgeCase covers a payload containing
// 00 00 00 03 00, which must drop the 0x03 and leave eight fewer bits
// than the input.
func TestEmulationPreventionEdgeCase(t *testing.T) {
	t.Parallel()

	escaped := []byte{0x00, 0x00, 0x00, 0x03, 0x00}
	got := RemoveEmulationPrevention(escaped)
	want := []byte{0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	if len(escaped)*8-len(got)*8 != 8 {
		t.Fatalf("bit count delta: got %d, want 8", len(escaped)*8-len(got)*8)
	}
}

func TestIsAnnexB(t *testing.T) {
	t.Parallel()

	if !IsAnnexB([]byte{0x00, 0x00, 0x01, 0x40}) {
		t.Error("expected 3-byte start code to be detected")
	}
	if !IsAnnexB([]byte{0x00, 0x00, 0x00, 0x01, 0x40}) {
		t.Error("expected 4-byte start code to be detected")
	}
	if IsAnnexB([]byte{0x00, 0x00, 0x00, 0x17, 0x40}) {
		t.Error("non-start-code header misdetected as Annex B")
	}
}

func TestIsRASLAndSubLayerNonRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		typ        Type
		wantRASL   bool
		wantNonRef bool
	}{
		{TypeTrailN, false, true},
		{TypeTrailR, false, false},
		{TypeTsaN, false, true},
		{TypeTsaR, false, false},
		{TypeStsaN, false, true},
		{TypeStsaR, false, false},
		{TypeRadlN, false, true},
		{TypeRadlR, false, false},
		{TypeRaslN, true, true},
		{TypeRaslR, true, false},
		{TypeIDRWRADL, false, false},
		{TypeCRANUT, false, false},
	}
	for _, c := range cases {
		if got := c.typ.IsRASL(); got != c.wantRASL {
			t.Errorf("Type(%d).IsRASL() = %v, want %v", c.typ, got, c.wantRASL)
		}
		if got := c.typ.IsSubLayerNonRef(); got != c.wantNonRef {
			t.Errorf("Type(%d).IsSubLayerNonRef() = %v, want %v", c.typ, got, c.wantNonRef)
		}
	}
}

func TestSplitLengthPrefixed(t *testing.T) {
	t.Parallel()

	hdr := hevcHeader(TypeSPS, 0, 0)
	payload := append(append([]byte{}, hdr...), 0x01, 0x02, 0x03)
	data := []byte{0x00, 0x00, 0x00, byte(len(payload))}
	data = append(data, payload...)

	units, err := SplitLengthPrefixed(data, 4)
	if err != nil {
		t.Fatalf("SplitLengthPrefixed: %v", err)
	}
	if len(units) != 1 || units[0].Type != TypeSPS {
		t.Fatalf("expected 1 SPS unit, got %+v", units)
	}
}

func TestSplitLengthPrefixedOverrun(t *testing.T) {
	t.Parallel()

	data := []byte{0x00, 0x00, 0x00, 0xFF, 0x01, 0x02}
	if _, err := SplitLengthPrefixed(data, 4); err == nil {
		t.Error("expected ErrInvalidBitstream when the declared length overruns the buffer")
	}
}

func FuzzSplit(f *testing.F) {
	f.Add([]byte{0x00, 0x00, 0x00, 0x01, 0x40, 0x01, 0x02, 0x03})
	f.Add([]byte{0x00, 0x00, 0x01, 0x00, 0x00})
	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = Split(data) // must not panic regardless of input
	})
}
