package vector

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/spmat/device"
)

// FromVecDense uploads a gonum vector to dev.
func FromVecDense(dev device.Device, v *mat.VecDense) (*Vector[float64], error) {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return FromSlice(dev, data)
}

// ToVecDense downloads v into a gonum vector.
func ToVecDense(v *Vector[float64]) (*mat.VecDense, error) {
	data, err := v.Data()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &mat.VecDense{}, nil
	}
	return mat.NewVecDense(len(data), data), nil
}
