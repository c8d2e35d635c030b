package matrix

import (
	"errors"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/spmat/device"
)

func TestInterop_FromSparse(t *testing.T) {
	dev := device.NewQueue(device.Config{})
	dense := mat.NewDense(3, 4, []float64{
		1, 0, 0, 2,
		0, 0, 3, 0,
		4, 5, 0, 6,
	})

	dok := sparse.NewDOK(3, 4)
	csr := sparse.NewCSR(3, 4, []int{0, 2, 3, 6}, []int{0, 3, 2, 0, 1, 3}, []float64{1, 2, 3, 4, 5, 6})
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			if v := dense.At(i, j); v != 0 {
				dok.Set(i, j, v)
			}
		}
	}

	for name, a := range map[string]mat.Matrix{"dense": dense, "dok": dok, "csr": csr} {
		m, err := FromSparse(dev, a)
		require.NoError(t, err, name)
		assert.Equal(t, 6, m.NNZ(), name)
		row, col, _, err := m.Triplets()
		require.NoError(t, err)
		assert.Equal(t, []int32{0, 0, 1, 2, 2, 2}, row, name)
		assert.Equal(t, []int32{0, 3, 2, 0, 1, 3}, col, name)
		back, err := ToDense(m)
		require.NoError(t, err)
		assert.True(t, mat.Equal(dense, back), name)
		m.Clear()
	}
	closeDevice(t, dev)
}

func TestInterop_ToSparse(t *testing.T) {
	dev := device.NewHost(device.Config{})
	src := sample(t, dev)
	want, err := ToDense(src)
	require.NoError(t, err)

	coo, err := ToSparseCOO(src)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, coo))

	csr := NewCSR[float64](dev)
	require.NoError(t, csr.ConvertFrom(src))
	sc, err := ToSparseCSR(csr)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, sc))

	dia := NewDIA[float64](dev)
	require.NoError(t, dia.ConvertFrom(src))
	_, err = ToSparseDIA(dia)
	assert.True(t, errors.Is(err, ErrConversionUnsupported))

	require.NoError(t, dia.SetDiagonals(3, 3, []int32{0}, []float64{1, 2, 3}))
	sd, err := ToSparseDIA(dia)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDiagDense(3, []float64{1, 2, 3}), sd))

	src.Clear()
	csr.Clear()
	dia.Clear()
	closeDevice(t, dev)
}
