package vector

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/notargets/spmat/container"
)

var ErrDimension = errors.New("vector: dimension mismatch")

func checkPair[T container.Float](x, y *Vector[T]) error {
	if x.Device() != y.Device() {
		return fmt.Errorf("%w: vectors on %s and %s devices", ErrDimension, x.Device().Mode(), y.Device().Mode())
	}
	if x.Size() != y.Size() {
		return fmt.Errorf("%w: %d and %d", ErrDimension, x.Size(), y.Size())
	}
	return nil
}

// Dot returns xᵀy. It waits for the result.
func Dot[T container.Float](x, y *Vector[T]) (T, error) {
	var result T
	if err := checkPair(x, y); err != nil {
		return result, err
	}
	if x.Size() == 0 {
		return result, nil
	}
	dev := x.Device()
	err := dev.Exec(func(v [][]byte) {
		result = dot(container.View[T](v[0]), container.View[T](v[1]))
	}, x.buf.Mem(), y.buf.Mem())
	if err != nil {
		return result, err
	}
	return result, dev.Finish()
}

// Norm returns the Euclidean norm of x.
func Norm[T container.Float](x *Vector[T]) (T, error) {
	var result T
	if x.Size() == 0 {
		return result, nil
	}
	dev := x.Device()
	err := dev.Exec(func(v [][]byte) {
		result = nrm2(container.View[T](v[0]))
	}, x.buf.Mem())
	if err != nil {
		return result, err
	}
	return result, dev.Finish()
}

// AddScale computes y += alpha*x on the device.
func AddScale[T container.Float](y *Vector[T], alpha T, x *Vector[T]) error {
	if err := checkPair(x, y); err != nil {
		return err
	}
	if x.Size() == 0 {
		return nil
	}
	return x.Device().Exec(func(v [][]byte) {
		axpy(alpha, container.View[T](v[0]), container.View[T](v[1]))
	}, x.buf.Mem(), y.buf.Mem())
}

func dot[T container.Float](x, y []T) T {
	switch xs := any(x).(type) {
	case []float64:
		ys := any(y).([]float64)
		return T(blas64.Dot(blas64.Vector{N: len(xs), Inc: 1, Data: xs}, blas64.Vector{N: len(ys), Inc: 1, Data: ys}))
	case []float32:
		ys := any(y).([]float32)
		return T(blas32.Dot(blas32.Vector{N: len(xs), Inc: 1, Data: xs}, blas32.Vector{N: len(ys), Inc: 1, Data: ys}))
	}
	var s T
	for i := range x {
		s += x[i] * y[i]
	}
	return s
}

func nrm2[T container.Float](x []T) T {
	switch xs := any(x).(type) {
	case []float64:
		return T(blas64.Nrm2(blas64.Vector{N: len(xs), Inc: 1, Data: xs}))
	case []float32:
		return T(blas32.Nrm2(blas32.Vector{N: len(xs), Inc: 1, Data: xs}))
	}
	var s float64
	for _, v := range x {
		s += float64(v) * float64(v)
	}
	return T(math.Sqrt(s))
}

func axpy[T container.Float](alpha T, x, y []T) {
	switch xs := any(x).(type) {
	case []float64:
		ys := any(y).([]float64)
		blas64.Axpy(float64(alpha), blas64.Vector{N: len(xs), Inc: 1, Data: xs}, blas64.Vector{N: len(ys), Inc: 1, Data: ys})
		return
	case []float32:
		ys := any(y).([]float32)
		blas32.Axpy(float32(alpha), blas32.Vector{N: len(xs), Inc: 1, Data: xs}, blas32.Vector{N: len(ys), Inc: 1, Data: ys})
		return
	}
	for i := range x {
		y[i] += alpha * x[i]
	}
}
