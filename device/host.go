package device

import (
	"fmt"
	"runtime"
	"sync"
)

type hostMem struct {
	owner *Host
	data  []byte
}

func (m *hostMem) Size() int64 { return int64(len(m.data)) }

// Host executes everything synchronously on the calling goroutine over Go
// heap memory.
type Host struct {
	mu      sync.Mutex
	threads int
	limit   int64
	used    int64
	live    map[*hostMem]struct{}
	closed  bool
}

func NewHost(cfg Config) *Host {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &Host{
		threads: threads,
		limit:   cfg.MemoryLimit,
		live:    make(map[*hostMem]struct{}),
	}
}

func (h *Host) Mode() string   { return ModeHost }
func (h *Host) IsHost() bool   { return true }
func (h *Host) Threads() int   { return h.threads }
func (h *Host) String() string { return fmt.Sprintf("%s(threads=%d)", ModeHost, h.threads) }

func (h *Host) Malloc(bytes int64) (Mem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrDeviceClosed
	}
	if err := checkLimit(h.limit, h.used, bytes); err != nil {
		return nil, err
	}
	m := &hostMem{owner: h, data: alignedBytes(bytes)}
	h.live[m] = struct{}{}
	h.used += bytes
	return m, nil
}

func (h *Host) Free(m Mem) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	hm, err := h.resolve(m)
	if err != nil {
		return err
	}
	delete(h.live, hm)
	h.used -= hm.Size()
	return nil
}

// resolve must be called with h.mu held.
func (h *Host) resolve(m Mem) (*hostMem, error) {
	if h.closed {
		return nil, ErrDeviceClosed
	}
	hm, ok := m.(*hostMem)
	if !ok || hm.owner != h {
		return nil, fmt.Errorf("%w: %T not owned by host device", ErrInvalidHandle, m)
	}
	if _, ok = h.live[hm]; !ok {
		return nil, fmt.Errorf("%w: handle already released", ErrInvalidHandle)
	}
	return hm, nil
}

func (h *Host) CopyFrom(dst Mem, src []byte) error {
	h.mu.Lock()
	hm, err := h.resolve(dst)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	if err = checkCopy(hm.Size(), int64(len(src))); err != nil {
		return err
	}
	copy(hm.data, src)
	return nil
}

func (h *Host) CopyTo(dst []byte, src Mem) error {
	h.mu.Lock()
	hm, err := h.resolve(src)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	if err = checkCopy(hm.Size(), int64(len(dst))); err != nil {
		return err
	}
	copy(dst, hm.data)
	return nil
}

func (h *Host) CopyMem(dst, src Mem) error {
	h.mu.Lock()
	d, err := h.resolve(dst)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	s, err := h.resolve(src)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	if err = checkCopy(d.Size(), s.Size()); err != nil {
		return err
	}
	copy(d.data, s.data)
	return nil
}

func (h *Host) Exec(fn func(views [][]byte), mems ...Mem) error {
	views := make([][]byte, len(mems))
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrDeviceClosed
	}
	for i, m := range mems {
		if m == nil {
			continue
		}
		hm, err := h.resolve(m)
		if err != nil {
			h.mu.Unlock()
			return fmt.Errorf("argument %d: %w", i, err)
		}
		views[i] = hm.data
	}
	h.mu.Unlock()
	fn(views)
	return nil
}

func (h *Host) Finish() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrDeviceClosed
	}
	return nil
}

func (h *Host) Live() (count int, bytes int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live), h.used
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrDeviceClosed
	}
	if len(h.live) != 0 {
		return fmt.Errorf("%w: %d allocations, %d bytes", ErrDeviceInUse, len(h.live), h.used)
	}
	h.closed = true
	return nil
}
