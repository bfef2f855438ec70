package device

import "testing"

// fakeRuntime is a scriptable Runtime for selector and batch tests.
type fakeRuntime struct {
	cuda    bool
	mps     bool
	free    uint64
	freeOK  bool
	used    uint64
	usedOK  bool
	emptied int
	synced  int
}

func (f *fakeRuntime) CUDAAvailable() bool                  { return f.cuda }
func (f *fakeRuntime) MPSAvailable() bool                   { return f.mps }
func (f *fakeRuntime) MemoryFreeBytes() (uint64, bool)      { return f.free, f.freeOK }
func (f *fakeRuntime) MemoryAllocatedBytes() (uint64, bool) { return f.used, f.usedOK }
func (f *fakeRuntime) EmptyCache() error                    { f.emptied++; return nil }
func (f *fakeRuntime) Synchronize() error                   { f.synced++; return nil }

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		cuda bool
		mps  bool
		want Device
	}{
		{"cuda preferred over mps", true, true, CUDA},
		{"cuda only", true, false, CUDA},
		{"mps when no cuda", false, true, MPS},
		{"cpu terminal fallback", false, false, CPU},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(&fakeRuntime{cuda: tt.cuda, mps: tt.mps})
			if got != tt.want {
				t.Errorf("Select() = %q, want %q", got, tt.want)
			}
			if got == CPU && (tt.cuda || tt.mps) {
				t.Error("Select() fell back to CPU with an accelerator available")
			}
		})
	}
}

func TestAlignTarget(t *testing.T) {
	if got := MPS.AlignTarget(); got != CPU {
		t.Errorf("MPS.AlignTarget() = %q, want cpu", got)
	}
	if got := CUDA.AlignTarget(); got != CUDA {
		t.Errorf("CUDA.AlignTarget() = %q, want cuda", got)
	}
	if got := CPU.AlignTarget(); got != CPU {
		t.Errorf("CPU.AlignTarget() = %q, want cpu", got)
	}
}

func TestIsAccelerator(t *testing.T) {
	if !CUDA.IsAccelerator() || !MPS.IsAccelerator() {
		t.Error("accelerator devices not recognized")
	}
	if CPU.IsAccelerator() {
		t.Error("cpu reported as accelerator")
	}
}

func TestBatchSize(t *testing.T) {
	tests := []struct {
		name  string
		dev   Device
		free  uint64
		memOK bool
		want  int
	}{
		{"cuda plenty of memory", CUDA, 10e9, true, 32},
		{"cuda mid memory", CUDA, 6e9, true, 16},
		{"cuda low memory", CUDA, 2e9, true, 8},
		{"cuda boundary 8gb is mid", CUDA, 8e9, true, 16},
		{"cuda unreadable memory degrades", CUDA, 0, false, 8},
		{"mps fixed", MPS, 64e9, true, 8},
		{"cpu fixed", CPU, 128e9, true, 4},
		{"cpu unreadable", CPU, 0, false, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BatchSize(tt.dev, tt.free, tt.memOK); got != tt.want {
				t.Errorf("BatchSize(%q, %d, %v) = %d, want %d", tt.dev, tt.free, tt.memOK, got, tt.want)
			}
		})
	}
}
