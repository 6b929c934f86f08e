// Package decoder drives the top-level access-unit/frame state machine:
// it couples NAL splitting, parameter-set storage, POC/RPS resolution,
// and DPB bumping into the host-facing Decoder API.
package decoder

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/hevccore/bitstream"
	"github.com/zsiec/hevccore/cabac"
	"github.com/zsiec/hevccore/dpb"
	"github.com/zsiec/hevccore/dsp"
	"github.com/zsiec/hevccore/frame"
	"github.com/zsiec/hevccore/nal"
	"github.com/zsiec/hevccore/paramset"
	"github.com/zsiec/hevccore/rps"
)

// driverState is the access-unit state machine's current state.
type driverState int

const (
	stateIdle driverState = iota
	stateFrameStarted
)

// inFlight tracks the picture currently being assembled across its
// (possibly several) slice segments.
type inFlight struct {
	handle     dpb.Handle
	frame      *frame.Frame
	set        rps.Set
	outputFlag bool
	corrupt    bool

	// lastIndependentHeader is the most recently parsed independent
	// slice segment's header, the base a following dependent segment
	// inherits from, and the SPS snapshot used to size the DPB at
	// frame-finish time.
	lastIndependentHeader *paramset.SliceHeader

	// wpp holds the entropy_coding_sync_enabled_flag row-handoff
	// snapshots for this picture, shared by every CTB-row goroutine
	// decodeWPPRows fans out.
	wpp *cabac.WPPSync
}

// Decoder decodes an HEVC elementary stream into output Frames,
// coupling NAL parsing, parameter-set storage, POC/RPS resolution,
// and DPB management. Pixel reconstruction (transform, SAO,
// deblocking, intra prediction, motion compensation) is delegated to
// a dsp.Kernels table the host supplies; this Decoder itself never
// calls into one, since populating it is out of scope here.
type Decoder struct {
	log    *slog.Logger
	cfg    Config
	kern   *dsp.Kernels

	mu        sync.Mutex
	closed    bool
	cancelled bool

	store *paramset.Store
	dpb   *dpb.Dpb
	poc   rps.Tracker

	lengthSize int // 0 = Annex B framing

	state driverState
	cur   *inFlight

	firstPicture bool

	// ptsByPOC carries each picture's PTS/DTS passthrough from the
	// slice that started it to the point the DPB bumps it, since
	// reordering means those two events rarely coincide.
	ptsByPOC map[int32][2]int64
	// colourByPOC carries each picture's VUI colour description the
	// same way, keyed by POC for the same reordering reason.
	colourByPOC map[int32]ColourMetadata
	// cropByPOC carries each picture's crop rectangle (conformance, or
	// default display window when Config.ApplyDefaultDisplayWindow is
	// set), keyed by POC for the same reordering reason.
	cropByPOC map[int32]CropRect

	outputs []Frame
}

// Open creates a Decoder and primes its parameter-set store from
// extradata (hvcC or Annex B parameter sets). If log is nil,
// slog.Default() is used.
func Open(extradata []byte, cfg Config, log *slog.Logger) (*Decoder, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	d := &Decoder{
		log:          log.With("component", "decoder"),
		cfg:          cfg,
		kern:         dsp.NewKernels(dsp.BitDepth8),
		store:        paramset.NewStore(),
		dpb:          dpb.New(log),
		state:        stateIdle,
		firstPicture: true,
		ptsByPOC:     make(map[int32][2]int64),
		colourByPOC:  make(map[int32]ColourMetadata),
		cropByPOC:    make(map[int32]CropRect),
	}

	if len(extradata) == 0 {
		d.lengthSize = 0
		return d, nil
	}
	ed, err := nal.ParseExtradata(extradata)
	if err != nil {
		return nil, fmt.Errorf("decoder: open: %w", err)
	}
	d.lengthSize = ed.LengthSize
	for _, u := range ed.Arrays[nal.TypeVPS] {
		if v, err := paramset.ParseVPS(u.RBSP); err == nil {
			d.store.PutVPS(v)
		}
	}
	for _, u := range ed.Arrays[nal.TypeSPS] {
		if sp, err := paramset.ParseSPS(u.RBSP, d.store.HasVPS, cfg.StrictStdCompliance == StrictStdUnofficial || cfg.StrictStdCompliance == StrictStdExperimental); err == nil {
			d.store.PutSPS(sp)
		}
	}
	for _, u := range ed.Arrays[nal.TypePPS] {
		if p, err := paramset.ParsePPS(u.RBSP, d.store.HasSPS, cfg.StrictStdCompliance == StrictStdUnofficial || cfg.StrictStdCompliance == StrictStdExperimental); err == nil {
			d.store.PutPPS(p)
		}
	}
	return d, nil
}

// splitPacket frames one pushed packet into NAL units, per whichever
// framing Open detected.
func (d *Decoder) splitPacket(data []byte) ([]nal.Unit, error) {
	if d.lengthSize == 0 {
		return nal.Split(data)
	}
	return nal.SplitLengthPrefixed(data, d.lengthSize)
}

// PushPacket feeds one access unit's worth (or more) of bitstream
// bytes, parsing NAL units and driving the frame state machine.
// Decoded pictures become available via PullFrame once bumped.
func (d *Decoder) PushPacket(data []byte, pts, dts int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.cancelled {
		return ErrCancelled
	}

	units, err := d.splitPacket(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBitstream, err)
	}

	for _, u := range units {
		switch u.Type {
		case nal.TypeVPS:
			if v, err := paramset.ParseVPS(u.RBSP); err == nil {
				d.store.PutVPS(v)
			}
		case nal.TypeSPS:
			if sp, err := paramset.ParseSPS(u.RBSP, d.store.HasVPS, d.bestEffort()); err == nil {
				d.store.PutSPS(sp)
			}
		case nal.TypePPS:
			if p, err := paramset.ParsePPS(u.RBSP, d.store.HasSPS, d.bestEffort()); err == nil {
				d.store.PutPPS(p)
			}
		case nal.TypeAUD, nal.TypeEOS, nal.TypeEOB:
			d.finishCurrentFrame()
		default:
			if u.Type.IsVCL() {
				d.handleSlice(u, pts, dts)
			}
		}
	}
	return nil
}

func (d *Decoder) bestEffort() bool {
	return d.cfg.StrictStdCompliance == StrictStdUnofficial || d.cfg.StrictStdCompliance == StrictStdExperimental
}

// handleSlice parses one VCL NAL's slice header, detects access-unit
// boundaries, and either starts a new picture or continues the one in
// flight.
func (d *Decoder) handleSlice(u nal.Unit, pts, dts int64) {
	isIRAP := u.Type.IsIRAP()
	isIDR := u.Type.IsIDR()

	var depBase *paramset.SliceHeader
	// A dependent slice segment inherits from the last independent
	// segment of the same picture; only first_slice_segment_in_pic_flag
	// segments start a new picture, so the in-flight frame's base
	// header (if any) is the only candidate.
	if d.cur != nil {
		depBase = d.cur.lastIndependentHeader
	}

	// first_slice_segment_in_pic_flag is the header's first bit; a
	// quick peek avoids needing the PPS to know whether this slice
	// starts a new picture, since dependent segments still need the
	// base's PPS/SPS to parse at all. We parse optimistically against
	// whatever PPS id the header carries once its own bits are read.
	ppsID, ok := peekPPSID(u.RBSP, isIRAP, isIDR)
	if !ok {
		return
	}
	pps, sps, ok := d.store.Resolve(ppsID)
	if !ok {
		d.log.Warn("slice references unresolved PPS/SPS", "pps_id", ppsID)
		return
	}

	sh, err := paramset.ParseSliceHeader(u.RBSP, byte(u.Type), isIRAP, isIDR, pps, sps, depBase)
	if err != nil {
		d.log.Warn("slice header parse failed", "error", err)
		if d.cur != nil {
			d.cur.corrupt = true
		}
		return
	}

	if sh.FirstSliceInPicFlag {
		d.finishCurrentFrame()
		d.startFrame(u.Type, u.TemporalID, isIRAP, isIDR, sh, pts, dts)
	} else if d.cur != nil && !sh.DependentSliceSegmentFlag {
		d.cur.lastIndependentHeader = sh
	}

	if d.cur != nil {
		d.decodeSliceData(u, sh)
	}
}

// peekPPSID reads just enough of the header to learn pps_id, replaying
// the same field order ParseSliceHeader itself reads, without
// depending on a resolved PPS/SPS. first_slice_segment_in_pic_flag(1),
// optionally no_output_of_prior_pics_flag(1) for IRAP, then pps_id(ue).
func peekPPSID(rbsp []byte, isIRAP, isIDR bool) (uint32, bool) {
	r := bitstream.New(rbsp)
	if _, err := r.ReadFlag(); err != nil {
		return 0, false
	}
	if isIRAP {
		if _, err := r.ReadFlag(); err != nil {
			return 0, false
		}
	}
	v, err := r.ReadUE()
	if err != nil {
		return 0, false
	}
	return v, true
}

func (d *Decoder) startFrame(nalType nal.Type, temporalID byte, isIRAP, isIDR bool, sh *paramset.SliceHeader, pts, dts int64) {
	sps := sh.SPS
	noRaslOutput := rps.NoRaslOutputFlag(nalType, d.firstPicture)
	d.firstPicture = false

	if isIDR || (isIRAP && nalType.IsBLA()) {
		d.poc.Reset()
		d.dpb.ResetSequence()
	}

	maxPocLsb := int32(1) << (sps.Log2MaxPicOrderCntLsbMinus4 + 4)
	poc := d.poc.ComputePOC(nalType, int32(sh.PicOrderCntLSB), maxPocLsb, noRaslOutput)

	// prevTid0Pic only advances on pictures with TemporalId==0 that are
	// neither RASL nor sub-layer-non-reference, per H.265 8.3.1.
	if temporalID == 0 && !nalType.IsRASL() && !nalType.IsSubLayerNonRef() {
		d.poc.Advance(poc-int32(sh.PicOrderCntLSB), int32(sh.PicOrderCntLSB))
	}

	var st *paramset.ShortTermRPS
	if sh.ShortTermRefPicSetSPSFlag {
		if int(sh.ShortTermRefPicSetIdx) < len(sps.ShortTermRefPicSets) {
			st = sps.ShortTermRefPicSets[sh.ShortTermRefPicSetIdx]
		}
	} else {
		st = sh.InlineShortTermRPS
	}

	ltSpecs := buildLongTermSpecs(sh)
	set := rps.Resolve(poc, maxPocLsb, st, ltSpecs)

	h, f, err := d.dpb.Alloc(poc)
	if err != nil {
		d.log.Warn("dpb allocation failed", "error", err)
		d.cur = nil
		return
	}
	f.BitDepth = int(sps.BitDepthLumaMinus8) + 8
	f.Width = sps.Width()
	f.Height = sps.Height()

	d.cur = &inFlight{
		handle:                h,
		frame:                 f,
		set:                   set,
		outputFlag:            sh.PicOutputFlag,
		lastIndependentHeader: sh,
		wpp:                   cabac.NewWPPSync(),
	}
	d.ptsByPOC[poc] = [2]int64{pts, dts}
	if sps.VUI != nil && sps.VUI.ColourDescriptionPresentFlag {
		d.colourByPOC[poc] = ColourMetadata{
			Primaries: sps.VUI.ColourPrimaries,
			Transfer:  sps.VUI.TransferCharacteristics,
			Matrix:    sps.VUI.MatrixCoefficients,
			FullRange: sps.VUI.VideoFullRangeFlag,
		}
	}
	if crop := cropWindow(sps, d.cfg.ApplyDefaultDisplayWindow); crop != (CropRect{}) {
		d.cropByPOC[poc] = crop
	}
	d.state = stateFrameStarted
	d.resolveReferences(set)
}

// resolveReferences looks up every category's POCs in the DPB,
// generating an UNAVAILABLE placeholder frame for each reference that
// is not found, whatever the current picture's NAL type, and marking
// the current picture corrupt when any reference was missing.
func (d *Decoder) resolveReferences(set rps.Set) {
	have := map[int32]bool{}
	for _, group := range [][]rps.RefEntry{set.CurrBefore, set.CurrAfter, set.Foll, set.LtCurr, set.LtFoll} {
		for _, e := range group {
			if _, ok := d.dpb.FindByPOC(e.POC, e.LongTerm); ok {
				have[e.POC] = true
			}
		}
	}
	missing := rps.MissingRefs(set, have)
	if len(missing) > 0 {
		d.cur.corrupt = true
	}
	for _, poc := range missing {
		h, f, err := d.dpb.Alloc(poc)
		if err != nil {
			d.cur.corrupt = true
			continue
		}
		if err := d.dpb.MarkUnavailable(h); err != nil {
			d.cur.corrupt = true
			continue
		}
		if err := d.dpb.MarkReference(h, true, false); err != nil {
			d.cur.corrupt = true
		}
		f.MarkComplete()
	}
}

// cropWindow resolves the crop rectangle a decoded picture should
// report: the default display window when requested and present,
// otherwise the conformance cropping window.
func cropWindow(sps *paramset.SPS, applyDefaultDisplayWindow bool) CropRect {
	if applyDefaultDisplayWindow && sps.VUI != nil && sps.VUI.DefaultDisplayWindow != nil {
		w := sps.VUI.DefaultDisplayWindow
		return CropRect{Left: int(w.LeftOffset), Right: int(w.RightOffset), Top: int(w.TopOffset), Bottom: int(w.BottomOffset)}
	}
	if sps.ConformanceWindow != nil {
		w := sps.ConformanceWindow
		return CropRect{Left: int(w.LeftOffset), Right: int(w.RightOffset), Top: int(w.TopOffset), Bottom: int(w.BottomOffset)}
	}
	return CropRect{}
}

// buildLongTermSpecs assembles rps.LongTermSpec values from a slice
// header's long-term fields, accumulating DeltaPocMsbCycleLt per
// H.265 7.4.7.2: the running total only advances where
// delta_poc_msb_cycle_lt is present, and is not reset between the
// SPS-sourced and inline-coded portions of the list.
func buildLongTermSpecs(sh *paramset.SliceHeader) []rps.LongTermSpec {
	n := len(sh.PocLSBLT)
	if n == 0 {
		return nil
	}
	specs := make([]rps.LongTermSpec, n)
	var acc uint32
	for i := 0; i < n; i++ {
		present := i < len(sh.DeltaPocMSBPresent) && sh.DeltaPocMSBPresent[i]
		if present {
			acc += sh.DeltaPocMSBCycleLT[i]
		}
		specs[i] = rps.LongTermSpec{
			PocLSB:           sh.PocLSBLT[i],
			UsedByCurr:       i < len(sh.UsedByCurrPicLT) && sh.UsedByCurrPicLT[i],
			MSBPresent:       present,
			DeltaPocMSBCycle: acc,
		}
	}
	return specs
}

// decodeSliceData initializes CABAC context state for this slice's
// type, QP and cabac_init_flag, once per CTB row through
// decodeWPPRows when the PPS enables wavefront sync. It does not read
// the slice payload, traverse coding-tree units or call dsp.Kernels,
// and it leaves the frame's pixel planes unfilled; it only logs at
// Debug when no pixel kernels are installed.
func (d *Decoder) decodeSliceData(u nal.Unit, sh *paramset.SliceHeader) {
	var ct cabac.SliceType
	switch sh.SliceType {
	case paramset.SliceTypeI:
		ct = cabac.SliceTypeI
	case paramset.SliceTypeP:
		ct = cabac.SliceTypeP
	default:
		ct = cabac.SliceTypeB
	}
	qp := 26 + int(sh.PPS.InitQPMinus26) + int(sh.QPDelta)

	if sh.PPS.EntropyCodingSyncEnabledFlag {
		d.decodeWPPRows(sh, ct, qp)
	} else {
		var st cabac.State
		st.Init(ct, sh.CabacInitFlag, qp)
	}

	if d.kern == nil || d.kern.IDCT[0] == nil {
		d.log.Debug("no pixel kernels installed, skipping reconstruction", "slice_type", sh.SliceType)
	}
}

// decodeWPPRows fans out one goroutine per CTB row of the picture,
// bounded by Config.Threads, mirroring entropy_coding_sync_enabled_flag
// wavefront parallel processing (H.265 9.3.1): row R seeds its CABAC
// state from row R-1's handoff snapshot and, once seeded, immediately
// produces its own snapshot for row R+1 and reports its share of
// decoded_lines progress. Actual CTU bin decoding is out of scope
// (pixel reconstruction), so each row's "work" is the state handoff
// and progress bookkeeping alone.
func (d *Decoder) decodeWPPRows(sh *paramset.SliceHeader, ct cabac.SliceType, qp int) {
	sps := sh.SPS
	ctbSize := 1 << sps.Log2CtbSizeY()
	height := d.cur.frame.Height
	ctbRows := (height + ctbSize - 1) / ctbSize
	if ctbRows <= 0 {
		return
	}

	ready := make([]chan struct{}, ctbRows)
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	wpp := d.cur.wpp
	f := d.cur.frame
	g := new(errgroup.Group)
	if d.cfg.Threads > 0 {
		g.SetLimit(int(d.cfg.Threads))
	}
	for row := 0; row < ctbRows; row++ {
		row := row
		g.Go(func() error {
			if row > 0 {
				<-ready[row-1]
			}
			var st cabac.State
			if prev := wpp.Load(row); prev != nil {
				st = *prev
			} else {
				st.Init(ct, sh.CabacInitFlag, qp)
			}
			wpp.Save(row, &st)

			y := (row + 1) * ctbSize
			if y > height {
				y = height
			}
			f.ReportProgress(y)
			close(ready[row])
			return nil
		})
	}
	_ = g.Wait()
}

// finishCurrentFrame closes out the picture in flight (if any):
// marks it OUTPUT_PENDING/CORRUPT as appropriate, updates reference
// flags for every DPB slot per its RPS categorization, releases
// missing-reference placeholders no longer needed, runs output
// bumping, and clears the in-flight state.
func (d *Decoder) finishCurrentFrame() {
	if d.cur == nil {
		return
	}
	cur := d.cur
	d.cur = nil
	d.state = stateIdle

	cur.frame.MarkComplete()
	if cur.corrupt {
		cur.frame.Flags |= frame.FlagCorrupt
	}
	if cur.outputFlag || d.cfg.ShowAllFrames {
		if err := d.dpb.MarkOutputPending(cur.handle); err != nil {
			d.log.Warn("mark output pending failed", "error", err)
		}
	}

	for _, e := range cur.set.CurrBefore {
		d.markRef(e, true, false)
	}
	for _, e := range cur.set.CurrAfter {
		d.markRef(e, true, false)
	}
	for _, e := range cur.set.LtCurr {
		d.markRef(e, false, true)
	}
	if err := d.dpb.MarkReference(cur.handle, true, false); err != nil {
		d.log.Warn("mark own slot as reference failed", "error", err)
	}

	d.dpb.UnrefMissing()

	sps := resolveSPS(cur)
	maxReorder, maxDecBuf := 16, dpb.Capacity
	if sps != nil && len(sps.MaxNumReorderPics) > 0 {
		last := len(sps.MaxNumReorderPics) - 1
		maxReorder = int(sps.MaxNumReorderPics[last])
		maxDecBuf = int(sps.MaxDecPicBuffering[last])
	}
	for _, o := range d.dpb.Bump(maxReorder, maxDecBuf) {
		d.outputs = append(d.outputs, d.toOutputFrame(o))
	}
}

func (d *Decoder) markRef(e rps.RefEntry, shortTerm, longTerm bool) {
	h, ok := d.dpb.FindByPOC(e.POC, e.LongTerm)
	if !ok {
		return
	}
	if err := d.dpb.MarkReference(h, shortTerm, longTerm); err != nil {
		d.log.Warn("mark reference failed", "poc", e.POC, "error", err)
	}
}

// resolveSPS recovers the SPS active for the in-flight picture purely
// to read its DPB sizing fields; the slice header already resolved
// and validated it once at parse time.
func resolveSPS(cur *inFlight) *paramset.SPS {
	if cur.lastIndependentHeader != nil {
		return cur.lastIndependentHeader.SPS
	}
	return nil
}

// toOutputFrame converts a bumped DPB slot to the host-facing Frame,
// attaching the PTS/DTS recorded for its POC when that picture's
// first slice started it.
func (d *Decoder) toOutputFrame(o dpb.Output) Frame {
	f := o.Frame
	out := Frame{
		Planes:      f.Planes,
		Strides:     f.Strides,
		Width:       f.Width,
		Height:      f.Height,
		BitDepth:    f.BitDepth,
		POC:         f.POC,
		Corrupt:     o.Corrupt,
		Unavailable: o.Unavailable,
	}
	if ts, ok := d.ptsByPOC[f.POC]; ok {
		out.PTS, out.DTS = ts[0], ts[1]
		delete(d.ptsByPOC, f.POC)
	}
	if c, ok := d.colourByPOC[f.POC]; ok {
		out.Colour = c
		delete(d.colourByPOC, f.POC)
	}
	if c, ok := d.cropByPOC[f.POC]; ok {
		out.Crop = c
		delete(d.cropByPOC, f.POC)
	}
	return out
}

// PullFrame returns the next bumped output frame, or false if none is
// currently available. Frames flagged corrupt are dropped unless
// Config.OutputCorrupt is set.
func (d *Decoder) PullFrame() (Frame, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.outputs) > 0 {
		f := d.outputs[0]
		d.outputs = d.outputs[1:]
		if f.Corrupt && !d.cfg.OutputCorrupt {
			continue
		}
		return f, true
	}
	return Frame{}, false
}

// Flush finalises any in-flight picture and drains every remaining
// output-pending frame in ascending POC order.
func (d *Decoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishCurrentFrame()
	for _, o := range d.dpb.Flush() {
		d.outputs = append(d.outputs, d.toOutputFrame(o))
	}
}

// SetKernels installs the pixel-domain dispatch table a host supplies.
// decodeSliceData only checks whether a table is installed (to decide
// whether to log); no pixels are reconstructed either way.
func (d *Decoder) SetKernels(k *dsp.Kernels) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kern = k
}

// Close releases any in-flight frame's progress waiters and marks the
// Decoder unusable for further PushPacket calls.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelled = true
	d.closed = true
	if d.cur != nil {
		d.cur.frame.Cancel()
		d.cur = nil
	}
}
