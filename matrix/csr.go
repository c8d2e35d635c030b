package matrix

import (
	"fmt"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/vector"
)

// CSR stores rows compressed: the entries of row r are ptr[r] to ptr[r+1].
type CSR[T container.Float] struct {
	base
	ptr, col *container.Buffer[int32]
	val      *container.Buffer[T]
}

func NewCSR[T container.Float](dev device.Device) *CSR[T] {
	return &CSR[T]{
		base: newBase(dev),
		ptr:  container.NewBuffer[int32](dev),
		col:  container.NewBuffer[int32](dev),
		val:  container.NewBuffer[T](dev),
	}
}

func (m *CSR[T]) Format() Format { return FormatCSR }
func (m *CSR[T]) NNZ() int       { return m.val.Len() }

func (m *CSR[T]) Info() string {
	var zero T
	return m.describe(FormatCSR, zero, m.NNZ(), "")
}

func (m *CSR[T]) Clear() {
	m.ptr.Free()
	m.col.Free()
	m.val.Free()
	m.nrow, m.ncol = 0, 0
}

// ptrLen is zero for a matrix without rows so that an empty allocation
// holds no storage.
func ptrLen(nrow int) int {
	if nrow == 0 {
		return 0
	}
	return nrow + 1
}

// AllocateCSR spreads nnz zero entries in column 0 evenly over the rows.
func (m *CSR[T]) AllocateCSR(nnz, nrow, ncol int) error {
	checkDims(nnz, nrow, ncol)
	if err := checkEntries(FormatCSR, nnz, nrow, ncol); err != nil {
		return err
	}
	m.Clear()
	err := m.ptr.Allocate(ptrLen(nrow))
	if err == nil && nnz > 0 {
		ptr := make([]int32, nrow+1)
		for r := range ptr {
			ptr[r] = int32(r * nnz / nrow)
		}
		err = m.ptr.CopyFromHost(ptr)
	}
	if err == nil {
		err = m.col.Allocate(nnz)
	}
	if err == nil {
		err = m.val.Allocate(nnz)
	}
	if err != nil {
		m.Clear()
		return fmt.Errorf("allocating CSR: %w", err)
	}
	m.nrow, m.ncol = nrow, ncol
	return nil
}

// SetArrays validates and uploads row offsets, columns and values.
func (m *CSR[T]) SetArrays(nrow, ncol int, ptr, col []int32, val []T) error {
	checkDims(nrow, ncol)
	d := csrData[T]{nrow: nrow, ncol: ncol, ptr: ptr, col: col, val: val}
	if err := d.check(); err != nil {
		return err
	}
	return m.upload(d)
}

func (m *CSR[T]) Arrays() (ptr, col []int32, val []T, err error) {
	d, err := m.download()
	return d.ptr, d.col, d.val, err
}

func (m *CSR[T]) download() (d csrData[T], err error) {
	d.nrow, d.ncol = m.nrow, m.ncol
	if d.ptr, err = m.ptr.Data(); err == nil {
		if d.col, err = m.col.Data(); err == nil {
			d.val, err = m.val.Data()
		}
	}
	if len(d.ptr) == 0 {
		d.ptr = []int32{0}
	}
	return d, transferError("downloading CSR", err)
}

func (m *CSR[T]) upload(d csrData[T]) error {
	m.Clear()
	ptr := d.ptr
	if d.nrow == 0 {
		ptr = nil
	}
	err := m.ptr.Upload(ptr)
	if err == nil {
		err = m.col.Upload(d.col)
	}
	if err == nil {
		err = m.val.Upload(d.val)
	}
	if err != nil {
		m.Clear()
		return transferError("uploading CSR", err)
	}
	m.nrow, m.ncol = d.nrow, d.ncol
	return nil
}

func (m *CSR[T]) Check() error {
	d, err := m.download()
	if err != nil {
		return err
	}
	return d.check()
}

func (m *CSR[T]) ConvertFrom(src Matrix[T]) error {
	return convertInto[T](m, src, func() error {
		d, err := csrOf(src)
		if err != nil {
			return err
		}
		return m.upload(d)
	})
}

func (m *CSR[T]) CopyFrom(src Matrix[T]) error {
	s, ok := src.(*CSR[T])
	if !ok {
		return fmt.Errorf("%w: CSR from %s", ErrFormatMismatch, src.Format())
	}
	if err := m.checkSameDevice(s); err != nil {
		return err
	}
	if !m.sameShape(&s.base) || m.NNZ() != s.NNZ() {
		return fmt.Errorf("%w: %s into %s", ErrShapeMismatch, s.Info(), m.Info())
	}
	if s == m {
		return nil
	}
	err := m.ptr.CopyFrom(s.ptr)
	if err == nil {
		err = m.col.CopyFrom(s.col)
	}
	if err == nil {
		err = m.val.CopyFrom(s.val)
	}
	return transferError("copying CSR", err)
}

func (m *CSR[T]) CopyTo(dst Matrix[T]) error {
	d, ok := dst.(*CSR[T])
	if !ok {
		return fmt.Errorf("%w: CSR to %s", ErrFormatMismatch, dst.Format())
	}
	if err := m.checkSameDevice(d); err != nil {
		return err
	}
	if d == m {
		return nil
	}
	if err := d.AllocateCSR(m.NNZ(), m.nrow, m.ncol); err != nil {
		return err
	}
	return d.CopyFrom(m)
}

func (m *CSR[T]) CopyFromHost(src Matrix[T]) error {
	s, ok := src.(*CSR[T])
	if !ok {
		return fmt.Errorf("%w: CSR from %s", ErrFormatMismatch, src.Format())
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

func (m *CSR[T]) CopyToHost(dst Matrix[T]) error {
	d, ok := dst.(*CSR[T])
	if !ok {
		return fmt.Errorf("%w: CSR to %s", ErrFormatMismatch, dst.Format())
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

func (m *CSR[T]) Permute(p *vector.Vector[int32]) error {
	perm, err := m.permutation(p)
	if err != nil {
		return err
	}
	return m.permuteRows(perm)
}

func (m *CSR[T]) PermuteBackward(p *vector.Vector[int32]) error {
	perm, err := m.permutation(p)
	if err != nil {
		return err
	}
	return m.permuteRows(invert(perm))
}

// permuteRows stages the rows through the host.
func (m *CSR[T]) permuteRows(perm []int32) error {
	if m.nrow == 0 {
		return nil
	}
	d, err := m.download()
	if err != nil {
		return err
	}
	return m.upload(d.permute(perm))
}

func (m *CSR[T]) Scale(alpha T) error { return scaleValues(m.val, alpha) }

func (m *CSR[T]) Apply(in, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, true); err != nil {
		return err
	}
	return m.spmv(in, out, 1, false)
}

func (m *CSR[T]) ApplyAdd(in *vector.Vector[T], scalar T, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, false); err != nil {
		return err
	}
	return m.spmv(in, out, scalar, true)
}

func (m *CSR[T]) spmv(in, out *vector.Vector[T], scalar T, add bool) error {
	if m.nrow == 0 {
		return nil
	}
	native, err := runNative[T](m.dev, "csr", oklCSR, m.nrow,
		int32(m.nrow), m.ptr.Mem(), m.col.Mem(), m.val.Mem(),
		in.Buffer().Mem(), out.Buffer().Mem(), scalar, flag(add))
	if native {
		return err
	}
	threads := m.dev.Threads()
	return m.dev.Exec(func(v [][]byte) {
		csrSpMV(container.View[int32](v[0]), container.View[int32](v[1]), container.View[T](v[2]),
			container.View[T](v[3]), container.View[T](v[4]), scalar, add, threads)
	}, m.ptr.Mem(), m.col.Mem(), m.val.Mem(), in.Buffer().Mem(), out.Buffer().Mem())
}
