package matrix

import (
	"fmt"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/device"
)

const oklBlock = 256

const oklCSR = `
@kernel void %[1]s(const int nrow, const int *ptr, const int *col,
                   const %[2]s *val, const %[2]s *x, %[2]s *y,
                   const %[2]s alpha, const int add) {
  for (int b = 0; b < (nrow + %[3]d - 1) / %[3]d; ++b; @outer) {
    for (int t = 0; t < %[3]d; ++t; @inner) {
      const int r = b * %[3]d + t;
      if (r < nrow) {
        %[2]s sum = 0;
        for (int k = ptr[r]; k < ptr[r + 1]; ++k) {
          sum += val[k] * x[col[k]];
        }
        y[r] = add ? y[r] + alpha * sum : sum;
      }
    }
  }
}
`

const oklELL = `
@kernel void %[1]s(const int nrow, const int maxRow, const int *col,
                   const %[2]s *val, const %[2]s *x, %[2]s *y,
                   const %[2]s alpha, const int add) {
  for (int b = 0; b < (nrow + %[3]d - 1) / %[3]d; ++b; @outer) {
    for (int t = 0; t < %[3]d; ++t; @inner) {
      const int r = b * %[3]d + t;
      if (r < nrow) {
        %[2]s sum = 0;
        for (int k = 0; k < maxRow; ++k) {
          const int c = col[k * nrow + r];
          if (c >= 0) sum += val[k * nrow + r] * x[c];
        }
        y[r] = add ? y[r] + alpha * sum : sum;
      }
    }
  }
}
`

const oklDIA = `
@kernel void %[1]s(const int nrow, const int ncol, const int ndiag,
                   const int *offset, const %[2]s *val, const %[2]s *x,
                   %[2]s *y, const %[2]s alpha, const int add) {
  for (int b = 0; b < (nrow + %[3]d - 1) / %[3]d; ++b; @outer) {
    for (int t = 0; t < %[3]d; ++t; @inner) {
      const int r = b * %[3]d + t;
      if (r < nrow) {
        %[2]s sum = 0;
        for (int d = 0; d < ndiag; ++d) {
          const int c = r + offset[d];
          if (c >= 0 && c < ncol) sum += val[d * nrow + r] * x[c];
        }
        y[r] = add ? y[r] + alpha * sum : sum;
      }
    }
  }
}
`

func oklSource[T container.Float](kind, template string) (name, source string) {
	ctype := "double"
	if container.SizeOf[T]() == 4 {
		ctype = "float"
	}
	name = fmt.Sprintf("spmv_%s_%s", kind, ctype)
	return name, fmt.Sprintf(template, name, ctype, oklBlock)
}

// runNative launches the OKL version of a kernel when the device compiles
// them. It reports false when the caller must fall back to Exec, including
// when any memory argument is empty.
func runNative[T container.Float](dev device.Device, kind, template string, nrow int, args ...any) (bool, error) {
	runner, ok := dev.(device.NativeRunner)
	if !ok || nrow == 0 {
		return false, nil
	}
	for _, a := range args {
		if a == nil {
			return false, nil
		}
	}
	name, source := oklSource[T](kind, template)
	outer := (nrow + oklBlock - 1) / oklBlock
	return true, runner.RunNative(name, source, outer, oklBlock, args...)
}
