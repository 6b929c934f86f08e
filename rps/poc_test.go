package rps

import (
	"testing"

	"github.com/zsiec/hevccore/nal"
)

func TestNoRaslOutputFlagIDRAlwaysTrue(t *testing.T) {
	t.Parallel()
	if !NoRaslOutputFlag(nal.TypeIDRWRADL, false) {
		t.Error("IDR should always suppress RASL output")
	}
}

func TestNoRaslOutputFlagCRAOnlyFirstPicture(t *testing.T) {
	t.Parallel()
	if !NoRaslOutputFlag(nal.TypeCRANUT, true) {
		t.Error("first-picture CRA should suppress RASL output")
	}
	if NoRaslOutputFlag(nal.TypeCRANUT, false) {
		t.Error("non-first CRA should not suppress RASL output")
	}
}

func TestComputePOCIRAPResetsToLsb(t *testing.T) {
	t.Parallel()
	var tr Tracker
	tr.Advance(100, 10) // stale history from a prior sequence
	got := tr.ComputePOC(nal.TypeIDRWRADL, 5, 32, true)
	if got != 5 {
		t.Errorf("ComputePOC(IRAP) = %d, want 5", got)
	}
}

func TestComputePOCNoWraparound(t *testing.T) {
	t.Parallel()
	var tr Tracker
	tr.Advance(0, 4)
	got := tr.ComputePOC(nal.Type(1) /* TRAIL_R */, 8, 32, false)
	if got != 8 {
		t.Errorf("ComputePOC = %d, want 8", got)
	}
}

func TestComputePOCForwardWraparound(t *testing.T) {
	t.Parallel()
	var tr Tracker
	tr.Advance(0, 30) // prevPocLsb=30, maxPocLsb=32
	// pocLsb=2 < prevLsb=30, and 30-2=28 >= 16 (maxPocLsb/2): MSB steps up.
	got := tr.ComputePOC(nal.Type(1) /* TRAIL_R */, 2, 32, false)
	if got != 34 {
		t.Errorf("ComputePOC(forward wrap) = %d, want 34", got)
	}
}

func TestComputePOCBackwardWraparound(t *testing.T) {
	t.Parallel()
	var tr Tracker
	tr.Advance(32, 2) // prevPocMsb=32, prevPocLsb=2
	// pocLsb=30 > prevLsb=2, and 30-2=28 > 16: MSB steps down.
	got := tr.ComputePOC(nal.Type(1) /* TRAIL_R */, 30, 32, false)
	if got != 30 {
		t.Errorf("ComputePOC(backward wrap) = %d, want 30", got)
	}
}

func TestComputePOCResetClearsHistory(t *testing.T) {
	t.Parallel()
	var tr Tracker
	tr.Advance(100, 20)
	tr.Reset()
	got := tr.ComputePOC(nal.Type(1) /* TRAIL_R */, 5, 32, false)
	if got != 5 {
		t.Errorf("ComputePOC after Reset = %d, want 5 (prevPoc treated as 0)", got)
	}
}
