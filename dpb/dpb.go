// Package dpb implements the fixed-capacity decoded-picture-buffer
// pool, slot reference-counting, and the output bumping algorithm.
package dpb

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/zsiec/hevccore/frame"
)

// Capacity is the fixed number of slots per layer.
const Capacity = 32

// Sentinel errors for Dpb operations. These enable callers to
// programmatically distinguish failure modes using errors.Is.
var (
	ErrOutOfMemory   = errors.New("dpb: no free slot")
	ErrInvalidHandle = errors.New("dpb: handle generation mismatch")
)

// Handle references a Dpb slot by index, validated against the slot's
// current Generation before every dereference so a reclaimed-then-
// reused slot is never mistaken for the frame it originally held.
type Handle struct {
	Index      int
	Generation uint64
}

// Dpb is a fixed 32-slot decoded-picture-buffer pool for one layer.
type Dpb struct {
	log  *slog.Logger
	mu   sync.Mutex
	slot [Capacity]frame.Frame
	used [Capacity]bool

	// seqDecode is the coded-video-sequence counter, stamped onto each
	// allocated Frame's Sequence field and incremented on every POC
	// reset (IDR/BLA) so pending frames of the prior sequence keep a
	// lower Sequence and bump ahead of the new sequence on a POC tie.
	seqDecode uint64
}

// New creates an empty Dpb. If log is nil, slog.Default() is used.
func New(log *slog.Logger) *Dpb {
	if log == nil {
		log = slog.Default()
	}
	return &Dpb{log: log.With("component", "dpb")}
}

// Alloc reserves a free slot for a new picture, stamping its sequence
// number and POC, or reports ErrOutOfMemory if every slot is either a
// reference or output-pending.
func (d *Dpb) Alloc(poc int32) (Handle, *frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.slot {
		if d.used[i] {
			continue
		}
		f := &d.slot[i]
		f.Reset()
		f.POC = poc
		f.Sequence = d.seqDecode
		d.used[i] = true
		return Handle{Index: i, Generation: f.Generation}, f, nil
	}
	return Handle{}, nil, ErrOutOfMemory
}

// Get resolves a handle to its frame, reporting ErrInvalidHandle if the
// slot has since been reclaimed and reused for a different picture.
func (d *Dpb) Get(h Handle) (*frame.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h.Index < 0 || h.Index >= Capacity || !d.used[h.Index] {
		return nil, ErrInvalidHandle
	}
	f := &d.slot[h.Index]
	if f.Generation != h.Generation {
		return nil, ErrInvalidHandle
	}
	return f, nil
}

// FindByPOC resolves a short-term or long-term reference by POC
// (use_delta_flag / use_msb already applied by the caller), used by
// the rps layer's slot resolution step.
func (d *Dpb) FindByPOC(poc int32, wantLongTerm bool) (Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.slot {
		if !d.used[i] {
			continue
		}
		f := &d.slot[i]
		if f.POC != poc {
			continue
		}
		if wantLongTerm && !f.Flags.Has(frame.FlagLongRef) {
			continue
		}
		if !wantLongTerm && !f.Flags.Has(frame.FlagShortRef) {
			continue
		}
		return Handle{Index: i, Generation: f.Generation}, true
	}
	return Handle{}, false
}

// MarkReference sets the short-term or long-term reference flag on a
// slot (clearing the other), or both cleared to make the slot
// unreferenced.
func (d *Dpb) MarkReference(h Handle, shortTerm, longTerm bool) error {
	f, err := d.Get(h)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	f.Flags &^= frame.FlagShortRef | frame.FlagLongRef
	if shortTerm {
		f.Flags |= frame.FlagShortRef
	}
	if longTerm {
		f.Flags |= frame.FlagLongRef
	}
	return nil
}

// UnmarkReference clears the requested flags on a slot, reclaiming it
// immediately if it is then neither a reference nor output-pending.
func (d *Dpb) UnmarkReference(h Handle, which frame.Flags) error {
	f, err := d.Get(h)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	f.Flags &^= which
	d.reclaimLocked(h.Index)
	return nil
}

// MarkUnavailable flags a slot as a generated placeholder for an
// unresolved reference (e.g. a RASL slice's reference preceding a CRA).
func (d *Dpb) MarkUnavailable(h Handle) error {
	f, err := d.Get(h)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	f.Flags |= frame.FlagUnavailable
	return nil
}

// UnrefMissing reclaims any slot flagged UNAVAILABLE that is no longer
// a short-term or long-term reference.
func (d *Dpb) UnrefMissing() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.slot {
		if !d.used[i] {
			continue
		}
		f := &d.slot[i]
		if f.Flags.Has(frame.FlagUnavailable) && !f.Flags.Any(frame.FlagShortRef|frame.FlagLongRef) {
			d.reclaimLocked(i)
		}
	}
}

// reclaimLocked frees a slot if it is neither a reference nor pending
// output. Callers must hold d.mu.
func (d *Dpb) reclaimLocked(i int) {
	f := &d.slot[i]
	if f.Flags.Any(frame.FlagShortRef | frame.FlagLongRef | frame.FlagOutputPending) {
		return
	}
	d.used[i] = false
}

// MarkOutputPending flags a slot for bumping per slice_pic_output_flag.
func (d *Dpb) MarkOutputPending(h Handle) error {
	f, err := d.Get(h)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	f.Flags |= frame.FlagOutputPending
	return nil
}

// ResetSequence increments the decode-sequence counter, used when a
// POC reset (IDR/BLA) starts a new coded video sequence; pending
// frames of the prior sequence keep their lower Sequence value and so
// still bump ahead of the new sequence's frames on a POC tie.
func (d *Dpb) ResetSequence() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seqDecode++
}

// Output is one bumped picture: the frame together with the
// corrupt/unavailable flags propagated for the host to act on.
type Output struct {
	Frame       *frame.Frame
	Corrupt     bool
	Unavailable bool
}

// Bump emits the smallest-POC output-pending frame, ties broken by
// ascending Sequence, while the pending count exceeds maxNumReorder or
// occupancy exceeds maxDecPicBuffering-1. Called after each slice
// completes.
func (d *Dpb) Bump(maxNumReorder, maxDecPicBuffering int) []Output {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Output
	for {
		pending, occupancy := d.countLocked()
		if pending <= maxNumReorder && occupancy <= maxDecPicBuffering-1 {
			return out
		}
		i, ok := d.smallestPendingLocked()
		if !ok {
			return out
		}
		out = append(out, d.emitLocked(i))
	}
}

// Flush emits every remaining output-pending frame in ascending POC
// order, ties broken by ascending Sequence, used on decoder Flush.
func (d *Dpb) Flush() []Output {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Output
	for {
		i, ok := d.smallestPendingLocked()
		if !ok {
			return out
		}
		out = append(out, d.emitLocked(i))
	}
}

func (d *Dpb) countLocked() (pending, occupancy int) {
	for i := range d.slot {
		if !d.used[i] {
			continue
		}
		occupancy++
		if d.slot[i].Flags.Has(frame.FlagOutputPending) {
			pending++
		}
	}
	return pending, occupancy
}

func (d *Dpb) smallestPendingLocked() (int, bool) {
	best := -1
	for i := range d.slot {
		if !d.used[i] || !d.slot[i].Flags.Has(frame.FlagOutputPending) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		a, b := &d.slot[i], &d.slot[best]
		if a.POC < b.POC || (a.POC == b.POC && a.Sequence < b.Sequence) {
			best = i
		}
	}
	return best, best != -1
}

func (d *Dpb) emitLocked(i int) Output {
	f := &d.slot[i]
	f.Flags &^= frame.FlagOutputPending
	out := Output{
		Frame:       f,
		Corrupt:     f.Flags.Has(frame.FlagCorrupt),
		Unavailable: f.Flags.Has(frame.FlagUnavailable),
	}
	d.reclaimLocked(i)
	return out
}
