package matrix

import (
	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/utils"
)

// Rows per goroutine below which row-parallel kernels stay serial.
const minRowsPerGoroutine = 512

// Kernels accumulate out[r] += scalar*(A·in)[r] when add is set and
// overwrite out[r] otherwise. len(out) is nrow and len(in) is ncol.

func cooSpMV[T container.Float](row, col []int32, val, in, out []T, scalar T) {
	for i, v := range val {
		out[row[i]] += scalar * (v * in[col[i]])
	}
}

func csrSpMV[T container.Float](ptr, col []int32, val, in, out []T, scalar T, add bool, threads int) {
	utils.ParallelFor(threads, len(out), minRowsPerGoroutine, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			var sum T
			for k := ptr[r]; k < ptr[r+1]; k++ {
				sum += val[k] * in[col[k]]
			}
			if add {
				out[r] += scalar * sum
			} else {
				out[r] = sum
			}
		}
	})
}

func diaSpMV[T container.Float](offset []int32, val, in, out []T, scalar T, add bool, threads int) {
	nrow, ncol := len(out), len(in)
	utils.ParallelFor(threads, nrow, minRowsPerGoroutine, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			var sum T
			for d, off := range offset {
				if c := r + int(off); c >= 0 && c < ncol {
					sum += val[d*nrow+r] * in[c]
				}
			}
			if add {
				out[r] += scalar * sum
			} else {
				out[r] = sum
			}
		}
	})
}

func ellSpMV[T container.Float](maxRow int, col []int32, val, in, out []T, scalar T, add bool, threads int) {
	nrow := len(out)
	utils.ParallelFor(threads, nrow, minRowsPerGoroutine, func(lo, hi int) {
		for r := lo; r < hi; r++ {
			var sum T
			for k := 0; k < maxRow; k++ {
				i := k*nrow + r
				if c := col[i]; c >= 0 {
					sum += val[i] * in[c]
				}
			}
			if add {
				out[r] += scalar * sum
			} else {
				out[r] = sum
			}
		}
	})
}

func scaleValues[T container.Float](b *container.Buffer[T], alpha T) error {
	if b.Len() == 0 {
		return nil
	}
	return b.Device().Exec(func(v [][]byte) {
		x := container.View[T](v[0])
		for i := range x {
			x[i] *= alpha
		}
	}, b.Mem())
}

func flag(add bool) int32 {
	if add {
		return 1
	}
	return 0
}
