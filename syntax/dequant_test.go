package syntax

import "testing"

func TestDequantizeFlatScaling(t *testing.T) {
	t.Parallel()
	// qp=26 (qp%6=2 -> scale 51, qp/6=4), bitDepth=8, log2TrafoSize=3
	// (8x8): shift = 8+3-5 = 6.
	got := Dequantize(4, 26, 8, 3, 16)
	scale := int32(51) << 4
	want := (int32(4)*scale*16 + (1 << 5)) >> 6
	if got != want {
		t.Errorf("Dequantize = %d, want %d", got, want)
	}
}

func TestDequantizeClampsToInt16(t *testing.T) {
	t.Parallel()
	got := Dequantize(1<<20, 51, 14, 5, 255)
	if got != 1<<15-1 {
		t.Errorf("Dequantize = %d, want clamped to %d", got, 1<<15-1)
	}
	got = Dequantize(-(1 << 20), 51, 14, 5, 255)
	if got != -1<<15 {
		t.Errorf("Dequantize = %d, want clamped to %d", got, -1<<15)
	}
}

func TestDequantizeBlockUsesScaleMFunc(t *testing.T) {
	t.Parallel()
	coeffs := []Coefficient{{X: 0, Y: 0, Level: 2}, {X: 1, Y: 0, Level: -3}}
	DequantizeBlock(coeffs, 20, 8, 2, func(x, y int) int32 {
		if x == 0 {
			return 16
		}
		return 20
	})
	want0 := Dequantize(2, 20, 8, 2, 16)
	want1 := Dequantize(-3, 20, 8, 2, 20)
	if coeffs[0].Level != want0 || coeffs[1].Level != want1 {
		t.Errorf("got levels %d,%d want %d,%d", coeffs[0].Level, coeffs[1].Level, want0, want1)
	}
}
