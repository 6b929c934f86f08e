// Package frame implements the decoded-picture-buffer slot: the
// reconstructed picture's owned pixel planes, its per-PU motion-vector
// field, and the progress/reference bookkeeping the driver and DSP
// layer share across goroutines.
package frame

import (
	"context"
	"sync"

	"github.com/zsiec/hevccore/rps"
)

// Flags is the bitset carried on every DPB slot (HEVC decoder-internal
// state, not a bitstream syntax element).
type Flags uint8

const (
	FlagOutputPending Flags = 1 << iota
	FlagShortRef
	FlagLongRef
	FlagBumping
	FlagCorrupt
	FlagUnavailable
)

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Any reports whether any bit of want is set in f.
func (f Flags) Any(want Flags) bool { return f&want != 0 }

// MV is a quarter-pel motion vector, duplicated from syntax.MV to keep
// frame free of a syntax-package dependency (frame is imported by
// lower layers than syntax decoding; see DESIGN.md).
type MV struct{ X, Y int16 }

// MVFieldEntry is one minimum-PU entry of a frame's motion-vector
// field (HEVC §8.5.3.2.9's "col" lookup unit, typically a 4x4 luma
// block), the granularity collocated-MV lookups from later frames
// read at.
type MVFieldEntry struct {
	MV       [2]MV
	RefPOC   [2]int32
	LongTerm [2]bool
	Valid    [2]bool
}

// Frame is one Decoded Picture Buffer slot (HEVC §C.5): the owned
// pixel-plane buffer with strides, the minimum-PU motion field, the
// per-CTB RefPicList snapshot used when that CTB was decoded, and the
// reference/output/corruption flags the driver and Dpb act on.
type Frame struct {
	mu sync.Mutex

	Planes  [3][]byte
	Strides [3]int
	Width   int
	Height  int
	BitDepth int

	MVField []MVFieldEntry
	// RplTab holds, per CTB in raster-scan order, the RefPicList pair
	// active at that CTB when it was decoded (HEVC §8.3.4's
	// "frozen at decode time" requirement for collocated-MV lookup
	// from a later frame).
	RplTab []*[2]rps.RefPicList

	POC        int32
	Flags      Flags
	Sequence   uint64
	Generation uint64

	// CollocatedRef is a weak handle (DPB slot index) this frame's
	// temporal merge candidate derivation last resolved to; validated
	// against the target slot's Generation before every dereference
	// so a reclaimed-then-reused slot is never read as if it still
	// held the original picture.
	CollocatedRef int

	cond           *sync.Cond
	decodedLines   int
	cancelled      bool
}

// decodedAll marks every line of the picture decoded (success or
// terminal failure both release progress waiters).
const decodedAll = int(^uint(0) >> 1) // math.MaxInt, avoided to keep frame free of the math import

// Reset prepares a reclaimed slot for reuse: clears state and bumps
// Generation so stale CollocatedRef handles pointing at the old
// occupant are detected by callers that check it.
func (f *Frame) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cond == nil {
		f.cond = sync.NewCond(&f.mu)
	}
	f.Generation++
	f.POC = 0
	f.Flags = 0
	f.Sequence = 0
	f.decodedLines = 0
	f.cancelled = false
}

// ReportProgress records that every line up to and including y has been
// reconstructed, waking any goroutine blocked in AwaitProgress. Passing
// decodedAll marks the frame fully decoded (used on both successful
// completion and on any failure, so waiters are never left blocked).
func (f *Frame) ReportProgress(y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cond == nil {
		f.cond = sync.NewCond(&f.mu)
	}
	if y > f.decodedLines {
		f.decodedLines = y
	}
	f.cond.Broadcast()
}

// MarkComplete reports progress through the entire picture height.
func (f *Frame) MarkComplete() { f.ReportProgress(decodedAll) }

// Cancel releases every goroutine blocked in AwaitProgress with a
// cancelled result, used when the decoder is closed mid-frame.
func (f *Frame) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cond == nil {
		f.cond = sync.NewCond(&f.mu)
	}
	f.cancelled = true
	f.cond.Broadcast()
}

// AwaitProgress blocks until line y of this frame has been
// reconstructed, the frame is fully decoded, this frame is cancelled,
// or ctx is done, whichever comes first. It reports whether the wait
// ended because of cancellation (either this frame's own Cancel or
// ctx), matching the cancellation idiom every other blocking call in
// the driver uses.
func (f *Frame) AwaitProgress(ctx context.Context, y int) (cancelled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cond == nil {
		f.cond = sync.NewCond(&f.mu)
	}
	stop := context.AfterFunc(ctx, f.cond.Broadcast)
	defer stop()
	for f.decodedLines < y && !f.cancelled && ctx.Err() == nil {
		f.cond.Wait()
	}
	return f.cancelled || ctx.Err() != nil
}
