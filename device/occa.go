//go:build occa

package device

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/notargets/gocca"
)

type occaMem struct {
	owner *OCCA
	mem   *gocca.OCCAMemory
	size  int64
}

func (m *occaMem) Size() int64 { return m.size }

// OCCA runs on an OCCA device (OpenMP, CUDA, OpenCL or Serial). Memory lives
// in device buffers; kernels without a native OKL version are staged through
// the host by Exec.
type OCCA struct {
	mu      sync.Mutex
	device  *gocca.OCCADevice
	threads int
	limit   int64
	used    int64
	live    map[*occaMem]struct{}
	kernels map[string]*gocca.OCCAKernel
	closed  bool
}

var occaModes = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

func newOCCA(cfg Config) (Device, error) {
	props := occaModes
	if cfg.Properties != "" {
		props = []string{cfg.Properties}
	}
	var (
		dev *gocca.OCCADevice
		err error
	)
	for _, p := range props {
		if dev, err = gocca.NewDevice(p); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: no OCCA mode available: %v", ErrUnknownMode, err)
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = 1
	}
	return &OCCA{
		device:  dev,
		threads: threads,
		limit:   cfg.MemoryLimit,
		live:    make(map[*occaMem]struct{}),
		kernels: make(map[string]*gocca.OCCAKernel),
	}, nil
}

func (o *OCCA) Mode() string { return ModeOCCA + "/" + o.device.Mode() }
func (o *OCCA) IsHost() bool { return false }
func (o *OCCA) Threads() int { return o.threads }

func (o *OCCA) Malloc(bytes int64) (Mem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrDeviceClosed
	}
	if err := checkLimit(o.limit, o.used, bytes); err != nil {
		return nil, err
	}
	m := &occaMem{owner: o, size: bytes}
	if bytes > 0 {
		zero := alignedBytes(bytes)
		m.mem = o.device.Malloc(bytes, unsafe.Pointer(&zero[0]), nil)
		if m.mem == nil {
			return nil, fmt.Errorf("%w: OCCA malloc of %d bytes", ErrAllocation, bytes)
		}
	}
	o.live[m] = struct{}{}
	o.used += bytes
	return m, nil
}

func (o *OCCA) Free(m Mem) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	om, err := o.resolve(m)
	if err != nil {
		return err
	}
	delete(o.live, om)
	o.used -= om.size
	if om.mem != nil {
		om.mem.Free()
		om.mem = nil
	}
	return nil
}

func (o *OCCA) resolve(m Mem) (*occaMem, error) {
	if o.closed {
		return nil, ErrDeviceClosed
	}
	om, ok := m.(*occaMem)
	if !ok || om.owner != o {
		return nil, fmt.Errorf("%w: %T not owned by OCCA device", ErrInvalidHandle, m)
	}
	if _, ok = o.live[om]; !ok {
		return nil, fmt.Errorf("%w: handle already released", ErrInvalidHandle)
	}
	return om, nil
}

func (o *OCCA) CopyFrom(dst Mem, src []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	om, err := o.resolve(dst)
	if err != nil {
		return err
	}
	if err = checkCopy(om.size, int64(len(src))); err != nil {
		return err
	}
	if len(src) > 0 {
		om.mem.CopyFrom(unsafe.Pointer(&src[0]), int64(len(src)))
	}
	return nil
}

func (o *OCCA) CopyTo(dst []byte, src Mem) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	om, err := o.resolve(src)
	if err != nil {
		return err
	}
	if err = checkCopy(om.size, int64(len(dst))); err != nil {
		return err
	}
	o.device.Finish()
	if len(dst) > 0 {
		om.mem.CopyTo(unsafe.Pointer(&dst[0]), int64(len(dst)))
	}
	return nil
}

func (o *OCCA) CopyMem(dst, src Mem) error {
	o.mu.Lock()
	d, err := o.resolve(dst)
	if err == nil {
		var s *occaMem
		if s, err = o.resolve(src); err == nil {
			err = checkCopy(d.size, s.size)
			if err == nil && s.size > 0 {
				o.device.Finish()
				staged := alignedBytes(s.size)
				s.mem.CopyTo(unsafe.Pointer(&staged[0]), s.size)
				d.mem.CopyFrom(unsafe.Pointer(&staged[0]), s.size)
			}
		}
	}
	o.mu.Unlock()
	return err
}

// Exec stages every argument through host memory, runs fn and writes the
// views back.
func (o *OCCA) Exec(fn func(views [][]byte), mems ...Mem) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrDeviceClosed
	}
	resolved := make([]*occaMem, len(mems))
	views := make([][]byte, len(mems))
	for i, m := range mems {
		if m == nil {
			continue
		}
		om, err := o.resolve(m)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
		resolved[i] = om
	}
	o.device.Finish()
	for i, om := range resolved {
		if om == nil || om.size == 0 {
			continue
		}
		views[i] = alignedBytes(om.size)
		om.mem.CopyTo(unsafe.Pointer(&views[i][0]), om.size)
	}
	fn(views)
	for i, om := range resolved {
		if om == nil || om.size == 0 {
			continue
		}
		om.mem.CopyFrom(unsafe.Pointer(&views[i][0]), om.size)
	}
	return nil
}

// RunNative compiles source once per kernel name and launches it with the
// given outer/inner loop extents.
func (o *OCCA) RunNative(name, source string, outer, inner int, args ...any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrDeviceClosed
	}
	kernel, ok := o.kernels[name]
	if !ok {
		var err error
		if kernel, err = o.device.BuildKernelFromString(source, name, nil); err != nil {
			return fmt.Errorf("failed to build kernel %s: %w", name, err)
		}
		o.kernels[name] = kernel
	}
	resolved := make([]interface{}, len(args))
	for i, a := range args {
		if m, isMem := a.(Mem); isMem {
			om, err := o.resolve(m)
			if err != nil {
				return fmt.Errorf("kernel %s argument %d: %w", name, i, err)
			}
			resolved[i] = om.mem
			continue
		}
		resolved[i] = a
	}
	kernel.SetRunDims(
		gocca.OCCADim{X: uint64(outer), Y: 1, Z: 1},
		gocca.OCCADim{X: uint64(inner), Y: 1, Z: 1},
	)
	if err := kernel.RunWithArgs(resolved...); err != nil {
		return fmt.Errorf("kernel %s execution failed: %w", name, err)
	}
	return nil
}

func (o *OCCA) Finish() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrDeviceClosed
	}
	o.device.Finish()
	return nil
}

func (o *OCCA) Live() (count int, bytes int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.live), o.used
}

func (o *OCCA) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrDeviceClosed
	}
	if len(o.live) != 0 {
		return fmt.Errorf("%w: %d allocations, %d bytes", ErrDeviceInUse, len(o.live), o.used)
	}
	for _, k := range o.kernels {
		if k != nil {
			k.Free()
		}
	}
	o.device.Free()
	o.closed = true
	return nil
}
