package nal

import "testing"

func buildHvcC(lengthSizeMinusOne byte, arrays map[Type][][]byte) []byte {
	data := make([]byte, hvccHeaderSize)
	data[21] = lengthSizeMinusOne & 3
	data[22] = byte(len(arrays))
	for typ, nalus := range arrays {
		data = append(data, byte(typ)&0x3F, 0, byte(len(nalus)))
		for _, n := range nalus {
			data = append(data, byte(len(n)>>8), byte(len(n)))
			data = append(data, n...)
		}
	}
	return data
}

func TestParseExtradataHVCC(t *testing.T) {
	t.Parallel()

	sps := append(append([]byte{}, hevcHeader(TypeSPS, 0, 0)...), 0x01, 0x02, 0x03)
	data := buildHvcC(3, map[Type][][]byte{TypeSPS: {sps}})

	ed, err := ParseExtradata(data)
	if err != nil {
		t.Fatalf("ParseExtradata: %v", err)
	}
	if ed.LengthSize != 4 {
		t.Errorf("LengthSize: got %d, want 4", ed.LengthSize)
	}
	units := ed.Arrays[TypeSPS]
	if len(units) != 1 || units[0].Type != TypeSPS {
		t.Fatalf("expected 1 SPS unit, got %+v", units)
	}
}

func TestParseExtradataAnnexBAutoDetect(t *testing.T) {
	t.Parallel()

	var data []byte
	data = append(data, 0x00, 0x00, 0x00, 0x01)
	data = append(data, hevcHeader(TypeVPS, 0, 0)...)
	data = append(data, 0x01, 0x02)

	ed, err := ParseExtradata(data)
	if err != nil {
		t.Fatalf("ParseExtradata: %v", err)
	}
	if ed.LengthSize != 0 {
		t.Errorf("LengthSize: got %d, want 0 for Annex B", ed.LengthSize)
	}
	if len(ed.Arrays[TypeVPS]) != 1 {
		t.Fatalf("expected 1 VPS unit, got %+v", ed.Arrays)
	}
}

func TestParseExtradataTooShort(t *testing.T) {
	t.Parallel()

	if _, err := ParseExtradata([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Error("expected ErrInvalidBitstream for truncated hvcC extradata")
	}
}
