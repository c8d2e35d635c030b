package matrix

import (
	"fmt"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/vector"
)

// HYB is an ELL part holding up to maxRow entries per row plus a COO part
// holding the overflow of longer rows.
type HYB[T container.Float] struct {
	base
	ell *ELL[T]
	coo *COO[T]
}

func NewHYB[T container.Float](dev device.Device) *HYB[T] {
	return &HYB[T]{
		base: newBase(dev),
		ell:  NewELL[T](dev),
		coo:  NewCOO[T](dev),
	}
}

func (m *HYB[T]) Format() Format { return FormatHYB }
func (m *HYB[T]) NNZ() int       { return m.ell.NNZ() + m.coo.NNZ() }
func (m *HYB[T]) ELLNnz() int    { return m.ell.NNZ() }
func (m *HYB[T]) COONnz() int    { return m.coo.NNZ() }
func (m *HYB[T]) MaxRow() int    { return m.ell.MaxRow() }

func (m *HYB[T]) Info() string {
	var zero T
	return m.describe(FormatHYB, zero, m.NNZ(),
		fmt.Sprintf(" maxRow=%d ell=%d coo=%d", m.MaxRow(), m.ELLNnz(), m.COONnz()))
}

func (m *HYB[T]) Clear() {
	m.ell.Clear()
	m.coo.Clear()
	m.nrow, m.ncol = 0, 0
}

// AllocateHYB requires ellNnz == nrow*maxRow.
func (m *HYB[T]) AllocateHYB(ellNnz, cooNnz, nrow, ncol, maxRow int) error {
	checkDims(ellNnz, cooNnz, nrow, ncol, maxRow)
	if ellNnz != nrow*maxRow {
		return fmt.Errorf("%w: HYB ELL nnz %d for %d rows of width %d", ErrShapeMismatch, ellNnz, nrow, maxRow)
	}
	if err := checkEntries(FormatHYB, cooNnz, nrow, ncol); err != nil {
		return err
	}
	m.Clear()
	err := m.ell.AllocateELL(ellNnz, nrow, ncol, maxRow)
	if err == nil {
		err = m.coo.AllocateCOO(cooNnz, nrow, ncol)
	}
	if err != nil {
		m.Clear()
		return fmt.Errorf("allocating HYB: %w", err)
	}
	m.nrow, m.ncol = nrow, ncol
	return nil
}

func (m *HYB[T]) download() (d hybData[T], err error) {
	if d.ell, err = m.ell.download(); err != nil {
		return d, err
	}
	d.coo, err = m.coo.download()
	return d, err
}

func (m *HYB[T]) upload(d hybData[T]) error {
	m.Clear()
	err := m.ell.upload(d.ell)
	if err == nil {
		err = m.coo.upload(d.coo)
	}
	if err != nil {
		m.Clear()
		return err
	}
	m.nrow, m.ncol = d.ell.nrow, d.ell.ncol
	return nil
}

func (m *HYB[T]) Check() error {
	d, err := m.download()
	if err != nil {
		return err
	}
	return d.check()
}

func (m *HYB[T]) ConvertFrom(src Matrix[T]) error {
	return convertInto[T](m, src, func() error {
		if s, ok := src.(*HYB[T]); ok {
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
		return m.upload(c.toHYB())
	})
}

func (m *HYB[T]) CopyFrom(src Matrix[T]) error {
	s, ok := src.(*HYB[T])
	if !ok {
		return fmt.Errorf("%w: HYB from %s", ErrFormatMismatch, src.Format())
	}
	if err := m.checkSameDevice(s); err != nil {
		return err
	}
	if !m.sameShape(&s.base) || m.MaxRow() != s.MaxRow() ||
		m.ELLNnz() != s.ELLNnz() || m.COONnz() != s.COONnz() {
		return fmt.Errorf("%w: %s into %s", ErrShapeMismatch, s.Info(), m.Info())
	}
	if s == m {
		return nil
	}
	if err := m.ell.CopyFrom(s.ell); err != nil {
		return err
	}
	return m.coo.CopyFrom(s.coo)
}

func (m *HYB[T]) CopyTo(dst Matrix[T]) error {
	d, ok := dst.(*HYB[T])
	if !ok {
		return fmt.Errorf("%w: HYB to %s", ErrFormatMismatch, dst.Format())
	}
	if err := m.checkSameDevice(d); err != nil {
		return err
	}
	if d == m {
		return nil
	}
	if err := d.AllocateHYB(m.ELLNnz(), m.COONnz(), m.nrow, m.ncol, m.MaxRow()); err != nil {
		return err
	}
	return d.CopyFrom(m)
}

func (m *HYB[T]) CopyFromHost(src Matrix[T]) error {
	s, ok := src.(*HYB[T])
	if !ok {
		return fmt.Errorf("%w: HYB from %s", ErrFormatMismatch, src.Format())
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

func (m *HYB[T]) CopyToHost(dst Matrix[T]) error {
	d, ok := dst.(*HYB[T])
	if !ok {
		return fmt.Errorf("%w: HYB to %s", ErrFormatMismatch, dst.Format())
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

func (m *HYB[T]) Permute(p *vector.Vector[int32]) error {
	perm, err := m.permutation(p)
	if err != nil {
		return err
	}
	return m.permute(perm, p.Buffer().Mem())
}

func (m *HYB[T]) PermuteBackward(p *vector.Vector[int32]) error {
	perm, err := m.permutation(p)
	if err != nil {
		return err
	}
	return m.permute(invert(perm), nil)
}

// permute relabels the COO part on the device, then uploads the ELL part
// permuted on the host. The matrix is cleared if the upload fails.
func (m *HYB[T]) permute(perm []int32, pm device.Mem) error {
	ell, err := m.ell.download()
	if err != nil {
		return err
	}
	if err = m.coo.permuteWith(perm, pm); err != nil {
		return err
	}
	if m.ell.NNZ() == 0 {
		return nil
	}
	if err = m.ell.upload(ell.permute(perm)); err != nil {
		m.Clear()
		return err
	}
	return nil
}

func (m *HYB[T]) Scale(alpha T) error {
	if err := m.ell.Scale(alpha); err != nil {
		return err
	}
	return m.coo.Scale(alpha)
}

func (m *HYB[T]) Apply(in, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, true); err != nil {
		return err
	}
	if err := m.ell.spmv(in, out, 1, false); err != nil {
		return err
	}
	return m.coo.spmv(in, out, 1)
}

func (m *HYB[T]) ApplyAdd(in *vector.Vector[T], scalar T, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, false); err != nil {
		return err
	}
	if err := m.ell.spmv(in, out, scalar, true); err != nil {
		return err
	}
	return m.coo.spmv(in, out, scalar)
}
