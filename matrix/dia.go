package matrix

import (
	"fmt"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/vector"
)

// DefaultDIAFillLimit bounds the stored slots per entry accepted when
// converting into DIA.
const DefaultDIAFillLimit = 5.0

// DIA stores whole diagonals. Row r of diagonal d is val[d*nrow+r] at column
// r+offset[d]; slots whose column falls outside the matrix are never read.
// NNZ counts stored slots, ndiag*nrow.
type DIA[T container.Float] struct {
	base
	// FillLimit is the largest ratio of stored slots to source entries
	// ConvertFrom accepts.
	FillLimit float64
	offset    *container.Buffer[int32]
	val       *container.Buffer[T]
}

func NewDIA[T container.Float](dev device.Device) *DIA[T] {
	return &DIA[T]{
		base:      newBase(dev),
		FillLimit: DefaultDIAFillLimit,
		offset:    container.NewBuffer[int32](dev),
		val:       container.NewBuffer[T](dev),
	}
}

func (m *DIA[T]) Format() Format { return FormatDIA }
func (m *DIA[T]) NNZ() int       { return m.val.Len() }
func (m *DIA[T]) NumDiag() int   { return m.offset.Len() }

func (m *DIA[T]) Info() string {
	var zero T
	return m.describe(FormatDIA, zero, m.NNZ(), fmt.Sprintf(" ndiag=%d", m.NumDiag()))
}

func (m *DIA[T]) Clear() {
	m.offset.Free()
	m.val.Free()
	m.nrow, m.ncol = 0, 0
}

// AllocateDIA requires nnz == ndiag*nrow. Offsets start as 0..ndiag-1 and
// values as zero.
func (m *DIA[T]) AllocateDIA(nnz, nrow, ncol, ndiag int) error {
	checkDims(nnz, nrow, ncol, ndiag)
	if nnz != ndiag*nrow {
		return fmt.Errorf("%w: DIA nnz %d for %d diagonals of %d rows", ErrShapeMismatch, nnz, ndiag, nrow)
	}
	offsets := make([]int32, ndiag)
	for d := range offsets {
		offsets[d] = int32(d)
	}
	m.Clear()
	err := m.offset.Upload(offsets)
	if err == nil {
		err = m.val.Allocate(nnz)
	}
	if err != nil {
		m.Clear()
		return fmt.Errorf("allocating DIA: %w", err)
	}
	m.nrow, m.ncol = nrow, ncol
	return nil
}

// SetDiagonals validates and uploads the offsets and diagonal values.
func (m *DIA[T]) SetDiagonals(nrow, ncol int, offset []int32, val []T) error {
	checkDims(nrow, ncol)
	d := diaData[T]{nrow: nrow, ncol: ncol, offset: offset, val: val}
	if err := d.check(); err != nil {
		return err
	}
	return m.upload(d)
}

func (m *DIA[T]) Diagonals() (offset []int32, val []T, err error) {
	d, err := m.download()
	return d.offset, d.val, err
}

func (m *DIA[T]) download() (d diaData[T], err error) {
	d.nrow, d.ncol = m.nrow, m.ncol
	if d.offset, err = m.offset.Data(); err == nil {
		d.val, err = m.val.Data()
	}
	return d, transferError("downloading DIA", err)
}

func (m *DIA[T]) upload(d diaData[T]) error {
	m.Clear()
	err := m.offset.Upload(d.offset)
	if err == nil {
		err = m.val.Upload(d.val)
	}
	if err != nil {
		m.Clear()
		return transferError("uploading DIA", err)
	}
	m.nrow, m.ncol = d.nrow, d.ncol
	return nil
}

func (m *DIA[T]) Check() error {
	d, err := m.download()
	if err != nil {
		return err
	}
	return d.check()
}

// ConvertFrom rejects patterns whose diagonal storage exceeds FillLimit
// times the number of entries.
func (m *DIA[T]) ConvertFrom(src Matrix[T]) error {
	return convertInto[T](m, src, func() error {
		if s, ok := src.(*DIA[T]); ok {
			d, err := s.download()
			if err != nil {
				return err
			}
			return m.upload(d)
		}
		c, err := cooOf(src)
		if err != nil {
			return err
		}
		d, err := c.toDIA(m.FillLimit)
		if err != nil {
			return err
		}
		return m.upload(d)
	})
}

func (m *DIA[T]) CopyFrom(src Matrix[T]) error {
	s, ok := src.(*DIA[T])
	if !ok {
		return fmt.Errorf("%w: DIA from %s", ErrFormatMismatch, src.Format())
	}
	if err := m.checkSameDevice(s); err != nil {
		return err
	}
	if !m.sameShape(&s.base) || m.NumDiag() != s.NumDiag() || m.NNZ() != s.NNZ() {
		return fmt.Errorf("%w: %s into %s", ErrShapeMismatch, s.Info(), m.Info())
	}
	if s == m {
		return nil
	}
	err := m.offset.CopyFrom(s.offset)
	if err == nil {
		err = m.val.CopyFrom(s.val)
	}
	return transferError("copying DIA", err)
}

func (m *DIA[T]) CopyTo(dst Matrix[T]) error {
	d, ok := dst.(*DIA[T])
	if !ok {
		return fmt.Errorf("%w: DIA to %s", ErrFormatMismatch, dst.Format())
	}
	if err := m.checkSameDevice(d); err != nil {
		return err
	}
	if d == m {
		return nil
	}
	if err := d.AllocateDIA(m.NNZ(), m.nrow, m.ncol, m.NumDiag()); err != nil {
		return err
	}
	return d.CopyFrom(m)
}

func (m *DIA[T]) CopyFromHost(src Matrix[T]) error {
	s, ok := src.(*DIA[T])
	if !ok {
		return fmt.Errorf("%w: DIA from %s", ErrFormatMismatch, src.Format())
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

func (m *DIA[T]) CopyToHost(dst Matrix[T]) error {
	d, ok := dst.(*DIA[T])
	if !ok {
		return fmt.Errorf("%w: DIA to %s", ErrFormatMismatch, dst.Format())
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

// Permute is unsupported; the matrix is left unchanged.
func (m *DIA[T]) Permute(*vector.Vector[int32]) error {
	return fmt.Errorf("%w: permute on DIA", ErrUnsupportedOperation)
}

func (m *DIA[T]) PermuteBackward(*vector.Vector[int32]) error {
	return fmt.Errorf("%w: permute on DIA", ErrUnsupportedOperation)
}

func (m *DIA[T]) Scale(alpha T) error { return scaleValues(m.val, alpha) }

func (m *DIA[T]) Apply(in, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, true); err != nil {
		return err
	}
	return m.spmv(in, out, 1, false)
}

func (m *DIA[T]) ApplyAdd(in *vector.Vector[T], scalar T, out *vector.Vector[T]) error {
	if err := prepareApply(&m.base, in, out, false); err != nil {
		return err
	}
	return m.spmv(in, out, scalar, true)
}

func (m *DIA[T]) spmv(in, out *vector.Vector[T], scalar T, add bool) error {
	if m.nrow == 0 {
		return nil
	}
	native, err := runNative[T](m.dev, "dia", oklDIA, m.nrow,
		int32(m.nrow), int32(m.ncol), int32(m.NumDiag()), m.offset.Mem(), m.val.Mem(),
		in.Buffer().Mem(), out.Buffer().Mem(), scalar, flag(add))
	if native {
		return err
	}
	threads := m.dev.Threads()
	return m.dev.Exec(func(v [][]byte) {
		diaSpMV(container.View[int32](v[0]), container.View[T](v[1]),
			container.View[T](v[2]), container.View[T](v[3]), scalar, add, threads)
	}, m.offset.Mem(), m.val.Mem(), in.Buffer().Mem(), out.Buffer().Mem())
}
