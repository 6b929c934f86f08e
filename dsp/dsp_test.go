package dsp

import "testing"

func TestNewKernelsSetsBitDepthAndLeavesFuncsNil(t *testing.T) {
	t.Parallel()
	k := NewKernels(BitDepth10)
	if k.BitDepth != BitDepth10 {
		t.Errorf("BitDepth = %d, want %d", k.BitDepth, BitDepth10)
	}
	if k.Dequant != nil {
		t.Error("Dequant should be nil until a host populates it")
	}
	for i, f := range k.IDCT {
		if f != nil {
			t.Errorf("IDCT[%d] should be nil until a host populates it", i)
		}
	}
	if k.PutHEVCQpel != nil || k.PutHEVCEpel != nil {
		t.Error("motion-compensation maps should be nil until a host populates them")
	}
}
