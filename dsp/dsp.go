// Package dsp defines the pixel-domain kernel dispatch table the core
// calls into. Transforms, SAO, deblocking, intra prediction, motion
// compensation, and film-grain synthesis are pixel-domain DSP work and
// are out of scope for this module; Kernels exists so the driver has a
// stable seam to call through, and so a host can supply a real
// implementation (hand-written, SIMD, or hardware-backed) without the
// core depending on any of them.
package dsp

// BitDepth is the sample bit depth a Kernels table was built for.
type BitDepth int

const (
	BitDepth8  BitDepth = 8
	BitDepth10 BitDepth = 10
	BitDepth12 BitDepth = 12
)

// Plane identifies a colour component.
type Plane int

const (
	PlaneY Plane = iota
	PlaneCb
	PlaneCr
)

// AddResidualFunc adds a dequantised residual block into a
// reconstructed plane at (stride-addressed) dst.
type AddResidualFunc func(dst []byte, stride int, residual []int16, log2Size int)

// IDCTFunc performs the inverse transform of a log2Size x log2Size
// block in place.
type IDCTFunc func(coeffs []int16, log2Size int)

// SAOBandFilterFunc and SAOEdgeFilterFunc apply sample adaptive offset
// to one CTB-sized region.
type SAOBandFilterFunc func(dst, src []byte, stride int, offsets [4]int8, bandShift int, width, height int)
type SAOEdgeFilterFunc func(dst, src []byte, stride int, offsets [4]int8, eoClass int, width, height int)

// LoopFilterFunc applies the in-loop deblocking filter along one edge.
type LoopFilterFunc func(pix []byte, stride int, beta, tc [2]int32)

// MCFunc performs fractional-pel motion compensation for one
// prediction unit, writing into dst (uni-directional) or accumulating
// into it with the given weight/offset (weighted) or another
// predictor (bi-predictive).
type MCFunc func(dst []byte, dstStride int, src []byte, srcStride int, width, height int, mx, my int)

// Kernels is the per-bit-depth dispatch table the driver invokes.
// Every field is nil in a table returned by NewKernels: populating
// real implementations is the host's responsibility, mirroring the
// split between codec-specific payload parsing and container demuxing
// elsewhere in this stack.
type Kernels struct {
	BitDepth BitDepth

	AddResidual    [4]AddResidualFunc // indexed by log2(size)-2, sizes 4/8/16/32
	Dequant        func(coeffs []int16, qp int, log2Size int)
	TransformRDPCM func(coeffs []int16, log2Size int, vertical bool)
	Transform4x4Luma func(coeffs []int16)
	IDCT           [4]IDCTFunc
	IDCTDC         [4]IDCTFunc

	SAOBandFilter  [5]SAOBandFilterFunc
	SAOEdgeFilter  [5]SAOEdgeFilterFunc
	SAOEdgeRestore [2]func(dst []byte, stride int, width, height int)

	PutHEVCQpel map[MCKey]MCFunc
	PutHEVCEpel map[MCKey]MCFunc

	LoopFilterLumaH   LoopFilterFunc
	LoopFilterLumaV   LoopFilterFunc
	LoopFilterChromaH LoopFilterFunc
	LoopFilterChromaV LoopFilterFunc
}

// MCKey selects one motion-compensation kernel variant by width and
// fractional-sample phase.
type MCKey struct {
	Width  int
	MX, MY int
	Kind   MCKind
}

// MCKind distinguishes the weighted/bi-predictive variants of a motion
// compensation kernel.
type MCKind int

const (
	MCUni MCKind = iota
	MCUniWeighted
	MCBi
	MCBiWeighted
)

// NewKernels returns an empty dispatch table for the given bit depth.
// Every function field is left nil; calling an unpopulated kernel is a
// caller error, not something this package can fill in.
func NewKernels(bitDepth BitDepth) *Kernels {
	return &Kernels{BitDepth: bitDepth}
}
