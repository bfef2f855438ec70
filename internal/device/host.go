package device

import (
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/mem"
)

const mebibyte = 1 << 20

// HostRuntime probes the machine the sidecar runs on. CUDA is detected via
// the driver's nvidia-smi tool, Metal via the platform. Memory counters come
// from nvidia-smi when a GPU is present, otherwise from the host via gopsutil.
type HostRuntime struct {
	log zerolog.Logger

	lookPath   func(string) (string, error)
	runCommand func(name string, args ...string) ([]byte, error)
	goos       string
	goarch     string
	hostMemory func() (*mem.VirtualMemoryStat, error)
}

// NewHostRuntime builds the production runtime with real OS probes.
func NewHostRuntime(log zerolog.Logger) *HostRuntime {
	return &HostRuntime{
		log:      log,
		lookPath: exec.LookPath,
		runCommand: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
		goos:       runtime.GOOS,
		goarch:     runtime.GOARCH,
		hostMemory: mem.VirtualMemory,
	}
}

// CUDAAvailable reports whether the NVIDIA driver tooling is on PATH.
func (r *HostRuntime) CUDAAvailable() bool {
	_, err := r.lookPath("nvidia-smi")
	return err == nil
}

// MPSAvailable reports whether this is an Apple Silicon host.
func (r *HostRuntime) MPSAvailable() bool {
	return r.goos == "darwin" && r.goarch == "arm64"
}

// MemoryFreeBytes returns free accelerator memory when a GPU is present,
// otherwise available host memory. The bool is false when nothing readable.
func (r *HostRuntime) MemoryFreeBytes() (uint64, bool) {
	if r.CUDAAvailable() {
		if v, ok := r.queryGPU("memory.free"); ok {
			return v, true
		}
		return 0, false
	}
	vm, err := r.hostMemory()
	if err != nil {
		r.log.Debug().Err(err).Msg("device: host memory stats unreadable")
		return 0, false
	}
	return vm.Available, true
}

// MemoryAllocatedBytes mirrors MemoryFreeBytes for the used counter.
func (r *HostRuntime) MemoryAllocatedBytes() (uint64, bool) {
	if r.CUDAAvailable() {
		if v, ok := r.queryGPU("memory.used"); ok {
			return v, true
		}
		return 0, false
	}
	vm, err := r.hostMemory()
	if err != nil {
		return 0, false
	}
	return vm.Used, true
}

// EmptyCache releases cached accelerator memory back to the driver. The
// host runtime holds no driver allocator of its own, so there is nothing
// to flush beyond what model Close already returned.
func (r *HostRuntime) EmptyCache() error { return nil }

// Synchronize blocks until outstanding accelerator work is drained. No-op
// for the host runtime: the bindings run synchronously.
func (r *HostRuntime) Synchronize() error { return nil }

// queryGPU reads a single nvidia-smi memory counter, reported in MiB.
func (r *HostRuntime) queryGPU(field string) (uint64, bool) {
	out, err := r.runCommand("nvidia-smi",
		"--query-gpu="+field, "--format=csv,noheader,nounits")
	if err != nil {
		r.log.Debug().Err(err).Str("field", field).Msg("device: nvidia-smi query failed")
		return 0, false
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	mib, err := strconv.ParseUint(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return 0, false
	}
	return mib * mebibyte, true
}
