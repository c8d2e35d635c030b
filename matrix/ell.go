package matrix

import (
	"fmt"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/vector"
)

// ELL stores maxRow slots per row, slot-major: slot k of row r is at
// k*nrow+r. Unused slots hold column -1. NNZ counts slots, nrow*maxRow.
type ELL[T container.Float] struct {
	base
	maxRow int
	col    *container.Buffer[int32]
	val    *container.Buffer[T]
}

func NewELL[T container.Float](dev device.Device) *ELL[T] {
	return &ELL[T]{
		base: newBase(dev),
		col:  container.NewBuffer[int32](dev),
		val:  container.NewBuffer[T](dev),
	}
}

func (m *ELL[T]) Format() Format { return FormatELL }
func (m *ELL[T]) NNZ() int       { return m.val.Len() }
func (m *ELL[T]) MaxRow() int    { return m.maxRow }

func (m *ELL[T]) Info() string {
	var zero T
	return m.describe(FormatELL, zero, m.NNZ(), fmt.Sprintf(" maxRow=%d", m.maxRow))
}

func (m *ELL[T]) Clear() {
	m.col.Free()
	m.val.Free()
	m.nrow, m.ncol, m.maxRow = 0, 0, 0
}

// AllocateELL requires nnz == nrow*maxRow. Every slot starts unused.
func (m *ELL[T]) AllocateELL(nnz, nrow, ncol, maxRow int) error {
	checkDims(nnz, nrow, ncol, maxRow)
	if nnz != nrow*maxRow {
		return fmt.Errorf("%w: ELL nnz %d for %d rows of width %d", ErrShapeMismatch, nnz, nrow, maxRow)
	}
	m.Clear()
	err := m.col.Allocate(nnz)
	if err == nil {
		err = m.col.Fill(-1)
	}
	if err == nil {
		err = m.val.Allocate(nnz)
	}
	if err != nil {
		m.Clear()
		return fmt.Errorf("allocating ELL: %w", err)
	}
	m.nrow, m.ncol, m.maxRow = nrow, ncol, maxRow
	return nil
}

// SetArrays validates and uploads slot-major columns and values.
func (m *ELL[T]) SetArrays(nrow, ncol, maxRow int, col []int32, val []T) error {
	checkDims(nrow, ncol, maxRow)
	d := ellData[T]{nrow: nrow, ncol: ncol, maxRow: maxRow, col: col, val: val}
	if err := d.check(); err != nil {
		return err
	}
	return m.upload(d)
}

func (m *ELL[T]) Arrays() (col []int32, val []T, err error) {
	d, err := m.download()
	return d.col, d.val, err
}

func (m *ELL[T]) download() (d ellData[T], err error) {
	d.nrow, d.ncol, d.maxRow = m.nrow, m.ncol, m.maxRow
	if d.col, err = m.col.Data(); err == nil {
		d.val, err = m.val.Data()
	}
	return d, transferError("downloading ELL", err)
}

func (m *ELL[T]) upload(d ellData[T]) error {
	m.Clear()
	err := m.col.Upload(d.col)
	if err == nil {
		err = m.val.Upload(d.val)
	}
	if err != nil {
		m.Clear()
		return transferError("uploading ELL", err)
	}
	m.nrow, m.ncol, m.maxRow = d.nrow, d.ncol, d.maxRow
	return nil
}

func (m *ELL[T]) Check() error {
	d, err := m.download()
	if err != nil {
		return err
	}
	return d.check()
}

func (m *ELL[T]) ConvertFrom(src Matrix[T]) error {
	return convertInto[T](m, src, func() error {
		if s, ok := src.(*ELL[T]); ok {
			d, err := s.download()
			if err != nil {
				return err
			}
			return m.upload(d)
		}
		c, err := csrOf(src)
		if err != nil {
			return err
		}
		return m.upload(c.toELL())
	})
}

func (m *ELL[T]) CopyFrom(src Matrix[T]) error {
	s, ok := src.(*ELL[T])
	if !ok {
		return fmt.Errorf("%w: ELL from %s", ErrFormatMismatch, src.Format())
	}
	if err := m.checkSameDevice(s); err != nil {
		return err
	}
	if !m.sameShape(&s.base) || m.maxRow != s.maxRow || m.NNZ() != s.NNZ() {
		return fmt.Errorf("%w: %s into %s", ErrShapeMismatch, s.Info(), m.Info())
	}
	if s == m {
		return nil
	}
	err := m.col.CopyFrom(s.col)
	if err == nil {
		err = m.val.CopyFrom(s.val)
	}
	return transferError("copying ELL", err)
}

func (m *ELL[T]) CopyTo(dst Matrix[T]) error {
	d, ok := dst.(*ELL[T])
	if !ok {
		return fmt.Errorf("%w: ELL to %s", ErrFormatMismatch, dst.Format())
	}
	if err := m.checkSameDevice(d); err != nil {
		return err
	}
	if d == m {
		return nil
	}
	if err := d.AllocateELL(m.NNZ(), m.nrow, m.ncol, m.maxRow); err != nil {
		return err
	}
	return d.CopyFrom(m)
}

func (m *ELL[T]) CopyFromHost(src Matrix[T]) error {
	s, ok := src.(*ELL[T])
	if !ok {
		return fmt.Errorf("%w: ELL from %s", ErrFormatMismatch, src.Format())
	}
	if err := m.checkHost(s); err != nil {
		return err
	}
	if s == m {
		return nil
	}
	d, err := s.download()
	if err != nil {
		return err
	}
	return m.upload(d)
}

func (m *ELL[T]) CopyToHost(dst Matrix[T]) error {
	d, ok := dst.(*ELL[T])
	if !ok {
		return fmt.Errorf("%w: ELL to %s", ErrFormatMismatch, dst.Format())
	}
	if err := m.checkHost(d); err != nil {
		return err
	}
	if d == m {
		return nil
	}
	data, err := m.download()
	if err != nil {
		return err
	}
	return d.upload(data)
}

func (m *ELL[T]) Permute(p *vector.Vector[int32]) error {
	perm, err := m.permutation(p)
	if err != nil {
		return err
	}
	return m.permuteRows(perm)
}

func (m *ELL[T]) PermuteBackward(p *vector.Vector[int32]) error {
	perm, err := m.permutation(p)
	if err != nil {
		return err
	}
	return m.permuteRows(invert(perm))
}

func (m *ELL[T]) permuteRows(perm []int32) error {
	if m.NNZ() == 0 {
		return nil
	}
	d, err := m.download()
	if err != nil {
		return err
	}
	return m.upload(d.permute(perm))
}

func (m *ELL[T]) Scale(alpha T) error { return scaleValues(m.val, alpha) }

func (m *ELL[T]) Apply(in, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, true); err != nil {
		return err
	}
	return m.spmv(in, out, 1, false)
}

func (m *ELL[T]) ApplyAdd(in *vector.Vector[T], scalar T, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, false); err != nil {
		return err
	}
	return m.spmv(in, out, scalar, true)
}

func (m *ELL[T]) spmv(in, out *vector.Vector[T], scalar T, add bool) error {
	if m.nrow == 0 {
		return nil
	}
	native, err := runNative[T](m.dev, "ell", oklELL, m.nrow,
		int32(m.nrow), int32(m.maxRow), m.col.Mem(), m.val.Mem(),
		in.Buffer().Mem(), out.Buffer().Mem(), scalar, flag(add))
	if native {
		return err
	}
	var (
		threads = m.dev.Threads()
		maxRow  = m.maxRow
	)
	return m.dev.Exec(func(v [][]byte) {
		ellSpMV(maxRow, container.View[int32](v[0]), container.View[T](v[1]),
			container.View[T](v[2]), container.View[T](v[3]), scalar, add, threads)
	}, m.col.Mem(), m.val.Mem(), in.Buffer().Mem(), out.Buffer().Mem())
}
