package device

// Batch sizes per device class. Conservative values protect constrained
// devices from out-of-memory aborts.
const (
	batchCUDALarge = 32
	batchCUDAMid   = 16
	batchCUDASmall = 8
	batchMPS       = 8
	batchCPU       = 4

	gigabyte = 1e9
)

// BatchSize maps a device and a best-effort free-memory reading to a batch
// size. memOK reports whether freeBytes could be read; an unreadable value
// on CUDA degrades to the small fixed batch rather than failing.
func BatchSize(dev Device, freeBytes uint64, memOK bool) int {
	switch dev {
	case CUDA:
		if !memOK {
			return batchCUDASmall
		}
		switch {
		case freeBytes > 8*gigabyte:
			return batchCUDALarge
		case freeBytes > 4*gigabyte:
			return batchCUDAMid
		default:
			return batchCUDASmall
		}
	case MPS:
		return batchMPS
	default:
		return batchCPU
	}
}
