package syntax

import (
	"testing"

	"github.com/zsiec/hevccore/bitstream"
	"github.com/zsiec/hevccore/cabac"
)

type mvBitWriter struct {
	bits []byte
}

func (w *mvBitWriter) writeBits(n int, v uint32) {
	for i := n - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte((v>>uint(i))&1))
	}
}

func (w *mvBitWriter) bytes() []byte {
	out := make([]byte, (len(w.bits)+7)/8)
	for i, b := range w.bits {
		if b == 1 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

func newBypassDecoder(t *testing.T, bits []int) *cabac.Decoder {
	t.Helper()
	// With ivlCurrRange fixed at 510, n bypass bins decode to the n-bit
	// binary digits of the stream value (9+n bits) divided by 510.
	var q uint32
	for _, b := range bits {
		q = q<<1 | uint32(b)
	}
	w := &mvBitWriter{}
	w.writeBits(9+len(bits), q*510)
	r := bitstream.New(w.bytes())
	var st cabac.State
	st.Init(cabac.SliceTypeI, false, 26)
	d, err := cabac.NewDecoder(r, &st)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	return d
}

func TestDecodeEGkZeroValue(t *testing.T) {
	t.Parallel()
	// k=1: terminating 0 immediately, then 1 suffix bit of value 1.
	d := newBypassDecoder(t, []int{0, 1})
	got, err := decodeEGk(d, 1)
	if err != nil {
		t.Fatalf("decodeEGk: %v", err)
	}
	if got != 1 {
		t.Errorf("decodeEGk = %d, want 1", got)
	}
}

func TestDecodeEGkOneEscape(t *testing.T) {
	t.Parallel()
	// k=1: one escape bit (1), widening by 1<<1=2 and k becomes 2, then
	// terminating 0, then 2 suffix bits "1","0" contributing 1<<1=2.
	d := newBypassDecoder(t, []int{1, 0, 1, 0})
	got, err := decodeEGk(d, 1)
	if err != nil {
		t.Fatalf("decodeEGk: %v", err)
	}
	if got != 4 {
		t.Errorf("decodeEGk = %d, want 4", got)
	}
}

func TestDecodeMVDComponentGreater0Zero(t *testing.T) {
	t.Parallel()
	// abs_mvd_greater0_flag is context-coded; with init_offset=0 the
	// very first regular bin always takes the MPS path. At qp=0 a
	// B-slice table initializes CtxAbsMvdGreater0Flag/Greater1Flag to
	// valMps=0, so both components decode to bin 0: each component is
	// exactly zero and no further bins are consumed.
	w := &mvBitWriter{}
	w.writeBits(9, 0)
	r := bitstream.New(w.bytes())
	var st cabac.State
	st.Init(cabac.SliceTypeB, false, 0)
	d, err := cabac.NewDecoder(r, &st)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	mv, err := DecodeMVD(d)
	if err != nil {
		t.Fatalf("DecodeMVD: %v", err)
	}
	if mv != (MV{}) {
		t.Errorf("DecodeMVD = %+v, want zero MV", mv)
	}
}
