// Package device selects the compute target for inference and derives
// per-device execution parameters.
package device

// Device is a compute target for model execution.
type Device string

const (
	// CUDA is an NVIDIA GPU, the preferred target when present.
	CUDA Device = "cuda"
	// MPS is Apple Metal. The alignment stage cannot run there and is
	// downgraded to CPU; the main model still loads on MPS.
	MPS Device = "mps"
	// CPU always works and is the terminal fallback.
	CPU Device = "cpu"
)

// IsAccelerator reports whether d is a GPU-class device with its own
// memory pool that needs an explicit cache flush on release.
func (d Device) IsAccelerator() bool {
	return d == CUDA || d == MPS
}

// AlignTarget returns the device the alignment model must load on.
// MPS is not supported by the alignment stage, so it maps to CPU.
func (d Device) AlignTarget() Device {
	if d == MPS {
		return CPU
	}
	return d
}

// Runtime is the accelerator runtime capability. Availability probes and
// memory counters are best effort; the bool result on the counters reports
// whether the value could be read at all.
type Runtime interface {
	CUDAAvailable() bool
	MPSAvailable() bool
	MemoryFreeBytes() (uint64, bool)
	MemoryAllocatedBytes() (uint64, bool)
	EmptyCache() error
	Synchronize() error
}

// Select probes accelerators in fixed priority order and returns the first
// available device. It never fails: CPU is always usable.
func Select(rt Runtime) Device {
	if rt.CUDAAvailable() {
		return CUDA
	}
	if rt.MPSAvailable() {
		return MPS
	}
	return CPU
}
