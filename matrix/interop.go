package matrix

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/spmat/device"
)

// FromSparse builds a COO matrix on dev from any gonum matrix. CSR sources
// are read through their raw arrays, other sparse types through DoNonZero,
// and dense matrices are scanned.
func FromSparse(dev device.Device, a mat.Matrix) (*COO[float64], error) {
	r, c := a.Dims()
	d := cooData[float64]{nrow: r, ncol: c}
	switch s := a.(type) {
	case *sparse.CSR:
		raw := s.RawMatrix()
		for i := 0; i < raw.I; i++ {
			for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
				d.row = append(d.row, int32(i))
				d.col = append(d.col, int32(raw.Ind[k]))
				d.val = append(d.val, raw.Data[k])
			}
		}
	case mat.NonZeroDoer:
		s.DoNonZero(func(i, j int, v float64) {
			d.row = append(d.row, int32(i))
			d.col = append(d.col, int32(j))
			d.val = append(d.val, v)
		})
		// Map-backed types visit entries in random order.
		d = d.sorted()
	default:
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := a.At(i, j); v != 0 {
					d.row = append(d.row, int32(i))
					d.col = append(d.col, int32(j))
					d.val = append(d.val, v)
				}
			}
		}
	}
	m := NewCOO[float64](dev)
	if err := m.upload(d); err != nil {
		return nil, err
	}
	return m, nil
}

// FromDense keeps the non-zero entries of a.
func FromDense(dev device.Device, a *mat.Dense) (*COO[float64], error) {
	return FromSparse(dev, a)
}

// ToDense accumulates any matrix into a dense gonum matrix.
func ToDense(m Matrix[float64]) (*mat.Dense, error) {
	d, err := cooOf(m)
	if err != nil {
		return nil, err
	}
	if d.nrow == 0 || d.ncol == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(d.nrow, d.ncol, nil)
	for i, v := range d.val {
		r, c := int(d.row[i]), int(d.col[i])
		out.Set(r, c, out.At(r, c)+v)
	}
	return out, nil
}

func ToSparseCOO(m *COO[float64]) (*sparse.COO, error) {
	d, err := m.download()
	if err != nil {
		return nil, err
	}
	return sparse.NewCOO(d.nrow, d.ncol, toInts(d.row), toInts(d.col), d.val), nil
}

func ToSparseCSR(m *CSR[float64]) (*sparse.CSR, error) {
	d, err := m.download()
	if err != nil {
		return nil, err
	}
	return sparse.NewCSR(d.nrow, d.ncol, toInts(d.ptr), toInts(d.col), d.val), nil
}

// ToSparseDIA converts a matrix holding only the main diagonal, the one
// layout sparse.DIA represents.
func ToSparseDIA(m *DIA[float64]) (*sparse.DIA, error) {
	d, err := m.download()
	if err != nil {
		return nil, err
	}
	if len(d.offset) != 1 || d.offset[0] != 0 {
		return nil, fmt.Errorf("%w: sparse.DIA holds only the main diagonal, have offsets %v",
			ErrConversionUnsupported, d.offset)
	}
	diag := d.val[:min(d.nrow, d.ncol)]
	return sparse.NewDIA(d.nrow, d.ncol, append([]float64{}, diag...)), nil
}

// ReferenceApply computes a·x with the sparse BLAS routine.
func ReferenceApply(a *sparse.CSR, x []float64) []float64 {
	r, _ := a.Dims()
	y := make([]float64, r)
	blas.Dusmv(false, 1, a.RawMatrix(), x, 1, y, 1)
	return y
}

func toInts(s []int32) []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(v)
	}
	return out
}
