package container

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/notargets/spmat/device"
)

// Elem is any element type a Buffer can hold on a device.
type Elem interface {
	~int32 | ~float32 | ~float64
}

// Float is the value type of matrices and vectors.
type Float interface {
	~float32 | ~float64
}

var ErrLength = errors.New("container: length mismatch")

// Buffer is a contiguous typed array in the memory of one device. The buffer
// owns its handle and releases it exactly once; the device is referenced.
type Buffer[T Elem] struct {
	dev device.Device
	mem device.Mem
	n   int
}

func NewBuffer[T Elem](dev device.Device) *Buffer[T] {
	if dev == nil {
		panic("container: nil device")
	}
	return &Buffer[T]{dev: dev}
}

func SizeOf[T Elem]() int64 {
	var v T
	return int64(unsafe.Sizeof(v))
}

// View reinterprets a device view as a typed slice.
func View[T Elem](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), int64(len(b))/SizeOf[T]())
}

// Bytes reinterprets a typed slice as raw bytes.
func Bytes[T Elem](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), int64(len(s))*SizeOf[T]())
}

func (b *Buffer[T]) Device() device.Device { return b.dev }
func (b *Buffer[T]) Len() int              { return b.n }

// Mem is nil for an empty buffer.
func (b *Buffer[T]) Mem() device.Mem { return b.mem }

// Allocate replaces the contents with n zero elements. On failure the buffer
// is left empty.
func (b *Buffer[T]) Allocate(n int) error {
	if n < 0 {
		panic(fmt.Sprintf("container: negative buffer length %d", n))
	}
	b.Free()
	if n == 0 {
		return nil
	}
	mem, err := b.dev.Malloc(int64(n) * SizeOf[T]())
	if err != nil {
		return err
	}
	b.mem, b.n = mem, n
	return nil
}

// Free is idempotent.
func (b *Buffer[T]) Free() {
	if b.mem == nil {
		b.n = 0
		return
	}
	if err := b.dev.Free(b.mem); err != nil {
		// The handle is only ever released here, so this is a broken invariant.
		panic(fmt.Sprintf("container: releasing buffer: %v", err))
	}
	b.mem, b.n = nil, 0
}

// CopyFromHost uploads src, which must match the buffer length.
func (b *Buffer[T]) CopyFromHost(src []T) error {
	if len(src) != b.n {
		return fmt.Errorf("%w: host %d, buffer %d", ErrLength, len(src), b.n)
	}
	if b.n == 0 {
		return nil
	}
	return b.dev.CopyFrom(b.mem, Bytes(src))
}

// CopyToHost downloads into dst, which must match the buffer length.
func (b *Buffer[T]) CopyToHost(dst []T) error {
	if len(dst) != b.n {
		return fmt.Errorf("%w: host %d, buffer %d", ErrLength, len(dst), b.n)
	}
	if b.n == 0 {
		return nil
	}
	return b.dev.CopyTo(Bytes(dst), b.mem)
}

// Data downloads the buffer into a new slice.
func (b *Buffer[T]) Data() ([]T, error) {
	out := make([]T, b.n)
	if err := b.CopyToHost(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload allocates the buffer to len(src) and copies src into it.
func (b *Buffer[T]) Upload(src []T) error {
	if err := b.Allocate(len(src)); err != nil {
		return err
	}
	if err := b.CopyFromHost(src); err != nil {
		b.Free()
		return err
	}
	return nil
}

// CopyFrom duplicates src, which must live on the same device and have the
// same length, with a device-side copy.
func (b *Buffer[T]) CopyFrom(src *Buffer[T]) error {
	if src.dev != b.dev {
		return fmt.Errorf("container: copy between %s and %s devices", src.dev.Mode(), b.dev.Mode())
	}
	if src.n != b.n {
		return fmt.Errorf("%w: source %d, destination %d", ErrLength, src.n, b.n)
	}
	if b.n == 0 {
		return nil
	}
	return b.dev.CopyMem(b.mem, src.mem)
}

// Fill sets every element to v on the device.
func (b *Buffer[T]) Fill(v T) error {
	if b.n == 0 {
		return nil
	}
	return b.dev.Exec(func(views [][]byte) {
		x := View[T](views[0])
		for i := range x {
			x[i] = v
		}
	}, b.mem)
}
