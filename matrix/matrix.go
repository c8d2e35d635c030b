package matrix

import (
	"fmt"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/vector"
)

// Matrix is the operation set shared by every sparse encoding. A matrix is
// either fully allocated or cleared; failed operations leave it unchanged or
// cleared. Matrices are not safe for concurrent use.
type Matrix[T container.Float] interface {
	Info() string
	Format() Format
	Nrow() int
	Ncol() int
	NNZ() int
	Device() device.Device
	// Clear releases all storage and resets the shape. It is idempotent.
	Clear()
	// Check validates the encoding invariants against the stored data.
	Check() error
	// ConvertFrom re-encodes src into this format. A source on another
	// device must be host resident.
	ConvertFrom(src Matrix[T]) error
	// CopyFrom duplicates a same-format, same-device, same-shape matrix.
	CopyFrom(src Matrix[T]) error
	// CopyTo duplicates into dst, which is resized to match.
	CopyTo(dst Matrix[T]) error
	CopyFromHost(src Matrix[T]) error
	CopyToHost(dst Matrix[T]) error
	// Permute computes P·A·Pᵀ with row' = p[row] and col' = p[col].
	Permute(p *vector.Vector[int32]) error
	PermuteBackward(p *vector.Vector[int32]) error
	Scale(alpha T) error
	// Apply computes out = A·in, resizing out to Nrow when needed.
	Apply(in, out *vector.Vector[T]) error
	// ApplyAdd computes out += scalar·A·in.
	ApplyAdd(in *vector.Vector[T], scalar T, out *vector.Vector[T]) error
}

type base struct {
	dev        device.Device
	nrow, ncol int
}

func newBase(dev device.Device) base {
	if dev == nil {
		panic("matrix: nil device")
	}
	return base{dev: dev}
}

func (b *base) Nrow() int             { return b.nrow }
func (b *base) Ncol() int             { return b.ncol }
func (b *base) Device() device.Device { return b.dev }

func (b *base) describe(f Format, elem any, nnz int, extra string) string {
	return fmt.Sprintf("%s[%T] nrow=%d ncol=%d nnz=%d%s device=%s",
		f, elem, b.nrow, b.ncol, nnz, extra, b.dev.Mode())
}

// sameShape compares rows and columns.
func (b *base) sameShape(o *base) bool {
	return b.nrow == o.nrow && b.ncol == o.ncol
}

func (b *base) checkSameDevice(other interface{ Device() device.Device }) error {
	if od := other.Device(); od != b.dev {
		return fmt.Errorf("%w: %s and %s", ErrDeviceMismatch, od.Mode(), b.dev.Mode())
	}
	return nil
}

func (b *base) checkHost(other interface{ Device() device.Device }) error {
	if !other.Device().IsHost() {
		return fmt.Errorf("%w: %s is not a host device", ErrDeviceMismatch, other.Device().Mode())
	}
	return nil
}

// prepareApply validates vectors for Apply. When overwrite is set, out is
// resized to nrow if needed.
func prepareApply[T container.Float](b *base, in, out *vector.Vector[T], overwrite bool) error {
	if in == nil || out == nil {
		return fmt.Errorf("%w: nil vector", ErrShapeMismatch)
	}
	if in == out || (in.Size() > 0 && in.Buffer().Mem() == out.Buffer().Mem()) {
		return ErrAliasedVectors
	}
	if err := b.checkSameDevice(in); err != nil {
		return err
	}
	if err := b.checkSameDevice(out); err != nil {
		return err
	}
	if in.Size() != b.ncol {
		return fmt.Errorf("%w: input size %d, ncol %d", ErrShapeMismatch, in.Size(), b.ncol)
	}
	if !overwrite {
		if out.Size() != b.nrow {
			return fmt.Errorf("%w: output size %d, nrow %d", ErrShapeMismatch, out.Size(), b.nrow)
		}
		return nil
	}
	if out.Size() != b.nrow {
		return transferError("allocating output", out.Allocate(b.nrow))
	}
	return nil
}

// permutation validates p against a square matrix and downloads it.
func (b *base) permutation(p *vector.Vector[int32]) ([]int32, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil vector", ErrInvalidPermutation)
	}
	if err := b.checkSameDevice(p); err != nil {
		return nil, err
	}
	if b.nrow != b.ncol {
		return nil, fmt.Errorf("%w: permuting a %dx%d matrix", ErrShapeMismatch, b.nrow, b.ncol)
	}
	perm, err := p.Data()
	if err != nil {
		return nil, transferError("downloading permutation", err)
	}
	if err = validatePermutation(perm, b.nrow); err != nil {
		return nil, err
	}
	return perm, nil
}

var (
	_ Matrix[float64] = (*COO[float64])(nil)
	_ Matrix[float64] = (*CSR[float64])(nil)
	_ Matrix[float64] = (*DIA[float64])(nil)
	_ Matrix[float64] = (*ELL[float64])(nil)
	_ Matrix[float32] = (*HYB[float32])(nil)
)
