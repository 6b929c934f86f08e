package cabac

import (
	"testing"

	"github.com/zsiec/hevccore/bitstream"
)

// testBitWriter is a minimal MSB-first bit builder for constructing
// known CABAC-engine input streams by hand.
type testBitWriter struct {
	bits []byte
}

func (w *testBitWriter) writeBits(n int, v uint32) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte((v>>uint(i))&1))
	}
}

func (w *testBitWriter) bytes() []byte {
	out := make([]byte, (len(w.bits)+7)/8)
	for i, b := range w.bits {
		if b == 1 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

func TestDecodeBypassSequence(t *testing.T) {
	t.Parallel()

	w := &testBitWriter{}
	w.writeBits(9, 0) // init_offset = 0
	for i := 0; i < 9; i++ {
		w.writeBits(1, 1) // nine bypass '1' bits
	}

	r := bitstream.New(w.bytes())
	var st State
	st.Init(SliceTypeI, false, 26)
	d, err := NewDecoder(r, &st)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	want := []int{0, 0, 0, 0, 0, 0, 0, 0, 1}
	for i, w := range want {
		got, err := d.DecodeBypass()
		if err != nil {
			t.Fatalf("bin %d: %v", i, err)
		}
		if got != w {
			t.Errorf("bin %d = %d, want %d", i, got, w)
		}
	}
}

func TestDecodeBinRegularMPS(t *testing.T) {
	t.Parallel()

	w := &testBitWriter{}
	w.writeBits(9, 0) // init_offset = 0, well below any ivlCurrRange split

	r := bitstream.New(w.bytes())
	var st State
	st.Init(SliceTypeI, false, 26)
	if st.PStateIdx[CtxSaoMergeFlag] != 7 || st.ValMps[CtxSaoMergeFlag] != 0 {
		t.Fatalf("unexpected init state: pState=%d valMps=%d", st.PStateIdx[CtxSaoMergeFlag], st.ValMps[CtxSaoMergeFlag])
	}

	d, err := NewDecoder(r, &st)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	bin, err := d.DecodeBin(CtxSaoMergeFlag)
	if err != nil {
		t.Fatalf("DecodeBin: %v", err)
	}
	if bin != 0 {
		t.Errorf("bin = %d, want 0 (MPS)", bin)
	}
	if got := st.PStateIdx[CtxSaoMergeFlag]; got != 8 {
		t.Errorf("pStateIdx after MPS = %d, want 8", got)
	}
}

func TestDecodeTerminateEndsOnSmallRange(t *testing.T) {
	t.Parallel()

	w := &testBitWriter{}
	w.writeBits(9, 0x1FF) // init_offset = 511, forces immediate terminate

	r := bitstream.New(w.bytes())
	var st State
	st.Init(SliceTypeI, false, 26)
	d, err := NewDecoder(r, &st)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	bin, err := d.DecodeTerminate()
	if err != nil {
		t.Fatalf("DecodeTerminate: %v", err)
	}
	if bin != 1 {
		t.Errorf("terminate bin = %d, want 1", bin)
	}
}

func TestDecodeBypassBitsExhaustedStream(t *testing.T) {
	t.Parallel()

	w := &testBitWriter{}
	w.writeBits(9, 0)

	r := bitstream.New(w.bytes())
	var st State
	st.Init(SliceTypeB, true, 30)
	d, err := NewDecoder(r, &st)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	if _, err := d.DecodeBypassBits(8); err == nil {
		t.Fatal("expected error reading bypass bits past end of stream")
	}
}
