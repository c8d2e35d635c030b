package device

import (
	"fmt"
	"strings"
	"unsafe"
)

const (
	ModeHost  = "Host"
	ModeQueue = "Queue"
	ModeOCCA  = "OCCA"
)

// Mem is an opaque handle to memory owned by a Device. Only the device that
// produced a handle can resolve it.
type Mem interface {
	Size() int64
}

// Device is an execution context: it owns a memory domain and orders every
// transfer and kernel submitted to it. Devices are safe for concurrent use;
// the objects bound to them are not.
type Device interface {
	Mode() string
	IsHost() bool
	// Threads is the parallel degree host-side kernels may use.
	Threads() int
	// Malloc returns zero-initialized memory of the given size.
	Malloc(bytes int64) (Mem, error)
	// Free releases m. Releasing a handle twice, or a handle from another
	// device, returns ErrInvalidHandle.
	Free(m Mem) error
	// CopyFrom transfers host bytes into dst starting at offset 0. The
	// transfer may complete asynchronously; src may be reused on return.
	CopyFrom(dst Mem, src []byte) error
	// CopyTo transfers len(dst) bytes of src back to the host and blocks
	// until every earlier command on the device has completed.
	CopyTo(dst []byte, src Mem) error
	// CopyMem copies src into dst on the device. dst must be at least as
	// large as src.
	CopyMem(dst, src Mem) error
	// Exec runs fn over byte views of mems, in order, after every earlier
	// command. A nil Mem resolves to a nil view.
	Exec(fn func(views [][]byte), mems ...Mem) error
	// Finish blocks until the device queue is drained.
	Finish() error
	// Live reports the number of outstanding allocations and their total size.
	Live() (count int, bytes int64)
	// Close destroys the device. It fails with ErrDeviceInUse while any
	// allocation is outstanding.
	Close() error
}

// NativeRunner is implemented by devices that compile and launch OKL kernels.
// Arguments of type Mem are resolved to device memory by the runner.
type NativeRunner interface {
	RunNative(name, source string, outer, inner int, args ...any) error
}

// Config selects and sizes a device.
type Config struct {
	Mode        string `yaml:"Mode"`
	Threads     int    `yaml:"Threads"`
	MemoryLimit int64  `yaml:"MemoryLimit"` // bytes, 0 is unlimited
	QueueDepth  int    `yaml:"QueueDepth"`
	Properties  string `yaml:"Properties"` // OCCA device properties (JSON)
}

// New builds the device named by cfg.Mode.
func New(cfg Config) (Device, error) {
	switch strings.ToLower(cfg.Mode) {
	case "", "host", "serial":
		return NewHost(cfg), nil
	case "queue", "accel", "accelerator":
		return NewQueue(cfg), nil
	case "occa":
		return newOCCA(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}

// alignedBytes backs device arenas with 8-byte aligned storage so any element type
// can be viewed in place.
func alignedBytes(n int64) []byte {
	if n == 0 {
		return nil
	}
	w := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&w[0])), len(w)*8)[:n:n]
}

func checkLimit(limit, used, want int64) error {
	if want < 0 {
		panic(fmt.Sprintf("negative allocation size %d", want))
	}
	if limit > 0 && used+want > limit {
		return fmt.Errorf("%w: requested %d bytes, %d of %d in use",
			ErrAllocation, want, used, limit)
	}
	return nil
}

func checkCopy(dst, src int64) error {
	if src > dst {
		return fmt.Errorf("%w: copy of %d bytes into %d", ErrBounds, src, dst)
	}
	return nil
}
