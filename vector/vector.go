package vector

import (
	"fmt"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
)

// Vector is a dense vector stored on a device. Matrices borrow vectors for
// Apply and Permute; they never retain them.
type Vector[T container.Elem] struct {
	buf *container.Buffer[T]
}

func New[T container.Elem](dev device.Device) *Vector[T] {
	return &Vector[T]{buf: container.NewBuffer[T](dev)}
}

// FromSlice allocates a vector on dev holding a copy of data.
func FromSlice[T container.Elem](dev device.Device, data []T) (*Vector[T], error) {
	v := New[T](dev)
	if err := v.buf.Upload(data); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vector[T]) Size() int                     { return v.buf.Len() }
func (v *Vector[T]) Device() device.Device         { return v.buf.Device() }
func (v *Vector[T]) Buffer() *container.Buffer[T] { return v.buf }

func (v *Vector[T]) Info() string {
	var zero T
	return fmt.Sprintf("Vector[%T] size=%d on %s", zero, v.Size(), v.Device().Mode())
}

// Allocate resizes to n zero elements.
func (v *Vector[T]) Allocate(n int) error { return v.buf.Allocate(n) }

// Clear releases the storage. It is idempotent.
func (v *Vector[T]) Clear() { v.buf.Free() }

func (v *Vector[T]) CopyFromHost(data []T) error { return v.buf.CopyFromHost(data) }
func (v *Vector[T]) CopyToHost(dst []T) error    { return v.buf.CopyToHost(dst) }
func (v *Vector[T]) Data() ([]T, error)          { return v.buf.Data() }

// CopyFrom resizes v to match src and copies it on the device.
func (v *Vector[T]) CopyFrom(src *Vector[T]) error {
	if src.Device() != v.Device() {
		return fmt.Errorf("vector: copy from %s to %s device", src.Device().Mode(), v.Device().Mode())
	}
	if v.Size() != src.Size() {
		if err := v.Allocate(src.Size()); err != nil {
			return err
		}
	}
	return v.buf.CopyFrom(src.buf)
}

func (v *Vector[T]) SetValues(val T) error { return v.buf.Fill(val) }
func (v *Vector[T]) Zeros() error         { return v.buf.Fill(0) }
