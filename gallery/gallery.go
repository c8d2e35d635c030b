// Package gallery generates deterministic test matrices as COO triplets.
package gallery

import (
	"fmt"
	"math/rand/v2"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/matrix"
)

type triplets[T container.Float] struct {
	row, col []int32
	val      []T
}

func (tr *triplets[T]) add(r, c int, v T) {
	tr.row = append(tr.row, int32(r))
	tr.col = append(tr.col, int32(c))
	tr.val = append(tr.val, v)
}

func (tr *triplets[T]) build(dev device.Device, nrow, ncol int) (*matrix.COO[T], error) {
	m := matrix.NewCOO[T](dev)
	if err := m.SetTriplets(nrow, ncol, tr.row, tr.col, tr.val); err != nil {
		return nil, err
	}
	return m, nil
}

// Tridiag returns the n x n matrix with lower, diag and upper on the three
// central diagonals.
func Tridiag[T container.Float](dev device.Device, n int, lower, diag, upper T) (*matrix.COO[T], error) {
	if n < 0 {
		return nil, fmt.Errorf("gallery: negative size %d", n)
	}
	var tr triplets[T]
	for i := 0; i < n; i++ {
		if i > 0 {
			tr.add(i, i-1, lower)
		}
		tr.add(i, i, diag)
		if i < n-1 {
			tr.add(i, i+1, upper)
		}
	}
	return tr.build(dev, n, n)
}

// Laplace1D is the second difference stencil [-1 2 -1].
func Laplace1D[T container.Float](dev device.Device, n int) (*matrix.COO[T], error) {
	return Tridiag[T](dev, n, -1, 2, -1)
}

// Laplace2D is the five point stencil on an nx by ny grid, numbered
// x-fastest.
func Laplace2D[T container.Float](dev device.Device, nx, ny int) (*matrix.COO[T], error) {
	if nx < 0 || ny < 0 {
		return nil, fmt.Errorf("gallery: negative grid %dx%d", nx, ny)
	}
	var (
		tr triplets[T]
		n  = nx * ny
	)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			k := j*nx + i
			if j > 0 {
				tr.add(k, k-nx, -1)
			}
			if i > 0 {
				tr.add(k, k-1, -1)
			}
			tr.add(k, k, 4)
			if i < nx-1 {
				tr.add(k, k+1, -1)
			}
			if j < ny-1 {
				tr.add(k, k+nx, -1)
			}
		}
	}
	return tr.build(dev, n, n)
}

// Banded has 2*bandwidth+1 diagonals: 2*bandwidth+1 on the main diagonal and
// -1/|offset| off it.
func Banded[T container.Float](dev device.Device, n, bandwidth int) (*matrix.COO[T], error) {
	if n < 0 || bandwidth < 0 {
		return nil, fmt.Errorf("gallery: negative size %d or bandwidth %d", n, bandwidth)
	}
	var tr triplets[T]
	for i := 0; i < n; i++ {
		for off := -bandwidth; off <= bandwidth; off++ {
			j := i + off
			if j < 0 || j >= n {
				continue
			}
			if off == 0 {
				tr.add(i, j, T(2*bandwidth+1))
				continue
			}
			tr.add(i, j, -1/T(abs(off)))
		}
	}
	return tr.build(dev, n, n)
}

// Random places each entry with probability density. Values are uniform in
// [-1,1) and never zero. The same seed yields the same matrix.
func Random[T container.Float](dev device.Device, nrow, ncol int, density float64, seed uint64) (*matrix.COO[T], error) {
	if nrow < 0 || ncol < 0 {
		return nil, fmt.Errorf("gallery: negative shape %dx%d", nrow, ncol)
	}
	if density < 0 || density > 1 {
		return nil, fmt.Errorf("gallery: density %g outside [0,1]", density)
	}
	var (
		tr  triplets[T]
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	)
	for i := 0; i < nrow; i++ {
		for j := 0; j < ncol; j++ {
			if rng.Float64() >= density {
				continue
			}
			v := 2*rng.Float64() - 1
			if v == 0 {
				v = 1
			}
			tr.add(i, j, T(v))
		}
	}
	return tr.build(dev, nrow, ncol)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
