package device

import (
	"fmt"
	"runtime"
	"sync"
)

const defaultQueueDepth = 64

type queueMem struct {
	owner *Queue
	id    uint64
	data  []byte // touched only by the queue worker
}

func (m *queueMem) Size() int64 { return int64(len(m.data)) }

// Queue is an accelerator device implemented in Go. Its memory is a separate
// arena that callers can only reach through transfers, and every transfer or
// kernel is executed in submission order by a single worker goroutine.
// Uploads are asynchronous; downloads and Finish block on the queue.
type Queue struct {
	mu      sync.Mutex
	threads int
	limit   int64
	used    int64
	nextID  uint64
	live    map[uint64]*queueMem
	cmds    chan func()
	done    chan struct{}
	closed  bool
}

func NewQueue(cfg Config) *Queue {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	q := &Queue{
		threads: threads,
		limit:   cfg.MemoryLimit,
		live:    make(map[uint64]*queueMem),
		cmds:    make(chan func(), depth),
		done:    make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *Queue) worker() {
	for cmd := range q.cmds {
		cmd()
	}
	close(q.done)
}

func (q *Queue) Mode() string   { return ModeQueue }
func (q *Queue) IsHost() bool   { return false }
func (q *Queue) Threads() int   { return q.threads }
func (q *Queue) String() string { return fmt.Sprintf("%s(threads=%d)", ModeQueue, q.threads) }

func (q *Queue) Malloc(bytes int64) (Mem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrDeviceClosed
	}
	if err := checkLimit(q.limit, q.used, bytes); err != nil {
		return nil, err
	}
	q.nextID++
	m := &queueMem{owner: q, id: q.nextID, data: alignedBytes(bytes)}
	q.live[m.id] = m
	q.used += bytes
	return m, nil
}

// Free drops the handle immediately; commands already queued against it keep
// their view of the storage until they have run.
func (q *Queue) Free(m Mem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	qm, err := q.resolve(m)
	if err != nil {
		return err
	}
	delete(q.live, qm.id)
	q.used -= qm.Size()
	return nil
}

// resolve must be called with q.mu held.
func (q *Queue) resolve(m Mem) (*queueMem, error) {
	if q.closed {
		return nil, ErrDeviceClosed
	}
	qm, ok := m.(*queueMem)
	if !ok || qm.owner != q {
		return nil, fmt.Errorf("%w: %T not owned by queue device", ErrInvalidHandle, m)
	}
	if _, ok = q.live[qm.id]; !ok {
		return nil, fmt.Errorf("%w: handle %d already released", ErrInvalidHandle, qm.id)
	}
	return qm, nil
}

// submit must be called with q.mu held so that queue order matches the
// order in which handles were validated.
func (q *Queue) submit(cmd func()) {
	q.cmds <- cmd
}

func (q *Queue) CopyFrom(dst Mem, src []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	qm, err := q.resolve(dst)
	if err != nil {
		return err
	}
	if err = checkCopy(qm.Size(), int64(len(src))); err != nil {
		return err
	}
	staged := make([]byte, len(src))
	copy(staged, src)
	data := qm.data
	q.submit(func() { copy(data, staged) })
	return nil
}

func (q *Queue) CopyTo(dst []byte, src Mem) error {
	q.mu.Lock()
	qm, err := q.resolve(src)
	if err == nil {
		err = checkCopy(qm.Size(), int64(len(dst)))
	}
	if err != nil {
		q.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	data := qm.data
	q.submit(func() {
		copy(dst, data)
		close(done)
	})
	q.mu.Unlock()
	<-done
	return nil
}

func (q *Queue) CopyMem(dst, src Mem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, err := q.resolve(dst)
	if err != nil {
		return err
	}
	s, err := q.resolve(src)
	if err != nil {
		return err
	}
	if err = checkCopy(d.Size(), s.Size()); err != nil {
		return err
	}
	dd, sd := d.data, s.data
	q.submit(func() { copy(dd, sd) })
	return nil
}

func (q *Queue) Exec(fn func(views [][]byte), mems ...Mem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrDeviceClosed
	}
	views := make([][]byte, len(mems))
	for i, m := range mems {
		if m == nil {
			continue
		}
		qm, err := q.resolve(m)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
		views[i] = qm.data
	}
	q.submit(func() { fn(views) })
	return nil
}

func (q *Queue) Finish() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrDeviceClosed
	}
	done := make(chan struct{})
	q.submit(func() { close(done) })
	q.mu.Unlock()
	<-done
	return nil
}

func (q *Queue) Live() (count int, bytes int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.live), q.used
}

// Close drains the queue and stops the worker.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrDeviceClosed
	}
	if len(q.live) != 0 {
		q.mu.Unlock()
		return fmt.Errorf("%w: %d allocations, %d bytes", ErrDeviceInUse, len(q.live), q.used)
	}
	q.closed = true
	close(q.cmds)
	q.mu.Unlock()
	<-q.done
	return nil
}
