package matrix

import (
	"fmt"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/vector"
)

// COO stores (row, col, val) triplets. Entries are an unordered bag;
// duplicate coordinates add.
type COO[T container.Float] struct {
	base
	row, col *container.Buffer[int32]
	val      *container.Buffer[T]
}

func NewCOO[T container.Float](dev device.Device) *COO[T] {
	return &COO[T]{
		base: newBase(dev),
		row:  container.NewBuffer[int32](dev),
		col:  container.NewBuffer[int32](dev),
		val:  container.NewBuffer[T](dev),
	}
}

func (m *COO[T]) Format() Format { return FormatCOO }
func (m *COO[T]) NNZ() int       { return m.val.Len() }

func (m *COO[T]) Info() string {
	var zero T
	return m.describe(FormatCOO, zero, m.NNZ(), "")
}

func (m *COO[T]) Clear() {
	m.row.Free()
	m.col.Free()
	m.val.Free()
	m.nrow, m.ncol = 0, 0
}

// AllocateCOO replaces the storage with nnz zero entries.
func (m *COO[T]) AllocateCOO(nnz, nrow, ncol int) error {
	checkDims(nnz, nrow, ncol)
	if err := checkEntries(FormatCOO, nnz, nrow, ncol); err != nil {
		return err
	}
	m.Clear()
	err := m.row.Allocate(nnz)
	if err == nil {
		err = m.col.Allocate(nnz)
	}
	if err == nil {
		err = m.val.Allocate(nnz)
	}
	if err != nil {
		m.Clear()
		return fmt.Errorf("allocating COO: %w", err)
	}
	m.nrow, m.ncol = nrow, ncol
	return nil
}

// SetTriplets validates and uploads the entries.
func (m *COO[T]) SetTriplets(nrow, ncol int, row, col []int32, val []T) error {
	checkDims(nrow, ncol)
	d := cooData[T]{nrow: nrow, ncol: ncol, row: row, col: col, val: val}
	if err := d.check(); err != nil {
		return err
	}
	return m.upload(d)
}

// Triplets downloads the entries.
func (m *COO[T]) Triplets() (row, col []int32, val []T, err error) {
	d, err := m.download()
	return d.row, d.col, d.val, err
}

// Sort orders the entries by row, then column. Duplicates keep their
// relative order.
func (m *COO[T]) Sort() error {
	d, err := m.download()
	if err != nil {
		return err
	}
	return m.upload(d.sorted())
}

func (m *COO[T]) download() (d cooData[T], err error) {
	d.nrow, d.ncol = m.nrow, m.ncol
	if d.row, err = m.row.Data(); err == nil {
		if d.col, err = m.col.Data(); err == nil {
			d.val, err = m.val.Data()
		}
	}
	return d, transferError("downloading COO", err)
}

func (m *COO[T]) upload(d cooData[T]) error {
	m.Clear()
	err := m.row.Upload(d.row)
	if err == nil {
		err = m.col.Upload(d.col)
	}
	if err == nil {
		err = m.val.Upload(d.val)
	}
	if err != nil {
		m.Clear()
		return transferError("uploading COO", err)
	}
	m.nrow, m.ncol = d.nrow, d.ncol
	return nil
}

func (m *COO[T]) Check() error {
	d, err := m.download()
	if err != nil {
		return err
	}
	return d.check()
}

func (m *COO[T]) ConvertFrom(src Matrix[T]) error {
	return convertInto[T](m, src, func() error {
		d, err := cooOf(src)
		if err != nil {
			return err
		}
		return m.upload(d)
	})
}

func (m *COO[T]) CopyFrom(src Matrix[T]) error {
	s, ok := src.(*COO[T])
	if !ok {
		return fmt.Errorf("%w: COO from %s", ErrFormatMismatch, src.Format())
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
	err := m.row.CopyFrom(s.row)
	if err == nil {
		err = m.col.CopyFrom(s.col)
	}
	if err == nil {
		err = m.val.CopyFrom(s.val)
	}
	return transferError("copying COO", err)
}

func (m *COO[T]) CopyTo(dst Matrix[T]) error {
	d, ok := dst.(*COO[T])
	if !ok {
		return fmt.Errorf("%w: COO to %s", ErrFormatMismatch, dst.Format())
	}
	if err := m.checkSameDevice(d); err != nil {
		return err
	}
	if d == m {
		return nil
	}
	if err := d.AllocateCOO(m.NNZ(), m.nrow, m.ncol); err != nil {
		return err
	}
	return d.CopyFrom(m)
}

func (m *COO[T]) CopyFromHost(src Matrix[T]) error {
	s, ok := src.(*COO[T])
	if !ok {
		return fmt.Errorf("%w: COO from %s", ErrFormatMismatch, src.Format())
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

func (m *COO[T]) CopyToHost(dst Matrix[T]) error {
	d, ok := dst.(*COO[T])
	if !ok {
		return fmt.Errorf("%w: COO to %s", ErrFormatMismatch, dst.Format())
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

func (m *COO[T]) Permute(p *vector.Vector[int32]) error {
	perm, err := m.permutation(p)
	if err != nil {
		return err
	}
	return m.permuteWith(perm, p.Buffer().Mem())
}

func (m *COO[T]) PermuteBackward(p *vector.Vector[int32]) error {
	perm, err := m.permutation(p)
	if err != nil {
		return err
	}
	return m.permuteWith(invert(perm), nil)
}

// permuteWith relabels rows and columns on the device. When pm is nil the
// host permutation perm is uploaded for the kernel.
func (m *COO[T]) permuteWith(perm []int32, pm device.Mem) error {
	if m.NNZ() == 0 {
		return nil
	}
	if pm == nil {
		tmp := container.NewBuffer[int32](m.dev)
		if err := tmp.Upload(perm); err != nil {
			return transferError("uploading permutation", err)
		}
		defer tmp.Free()
		pm = tmp.Mem()
	}
	return m.dev.Exec(func(v [][]byte) {
		p := container.View[int32](v[2])
		permuteIndices(container.View[int32](v[0]), p)
		permuteIndices(container.View[int32](v[1]), p)
	}, m.row.Mem(), m.col.Mem(), pm)
}

func (m *COO[T]) Scale(alpha T) error { return scaleValues(m.val, alpha) }

func (m *COO[T]) Apply(in, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, true); err != nil {
		return err
	}
	if err := out.Zeros(); err != nil {
		return err
	}
	return m.spmv(in, out, 1)
}

func (m *COO[T]) ApplyAdd(in *vector.Vector[T], scalar T, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, false); err != nil {
		return err
	}
	return m.spmv(in, out, scalar)
}

func (m *COO[T]) spmv(in, out *vector.Vector[T], scalar T) error {
	if m.NNZ() == 0 {
		return nil
	}
	return m.dev.Exec(func(v [][]byte) {
		cooSpMV(container.View[int32](v[0]), container.View[int32](v[1]), container.View[T](v[2]),
			container.View[T](v[3]), container.View[T](v[4]), scalar)
	}, m.row.Mem(), m.col.Mem(), m.val.Mem(), in.Buffer().Mem(), out.Buffer().Mem())
}
