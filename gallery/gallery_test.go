package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/matrix"
	"github.com/notargets/spmat/vector"
)

func TestLaplace(t *testing.T) {
	dev := device.NewHost(device.Config{})
	m, err := Laplace1D[float64](dev, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, m.NNZ())
	dense, err := matrix.ToDense(m)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 2, -1, 0}, dense.RawRowView(1))
	m.Clear()

	m2, err := Laplace2D[float64](dev, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 9, m2.Nrow())
	assert.Equal(t, 9+2*2*3*2, m2.NNZ())
	// Constant vectors lie in the null space of the interior rows.
	in, err := vector.FromSlice(dev, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	out := vector.New[float64](dev)
	require.NoError(t, m2.Apply(in, out))
	got, err := out.Data()
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[4])
	assert.Equal(t, 2.0, got[0])
	assert.Equal(t, 12.0, floats.Sum(got))

	in.Clear()
	out.Clear()
	m2.Clear()
	require.NoError(t, dev.Close())
}

func TestBanded_IsDIARepresentable(t *testing.T) {
	dev := device.NewQueue(device.Config{})
	m, err := Banded[float64](dev, 50, 3)
	require.NoError(t, err)
	assert.NoError(t, m.Check())
	dia := matrix.NewDIA[float64](dev)
	require.NoError(t, dia.ConvertFrom(m))
	assert.Equal(t, 7, dia.NumDiag())
	m.Clear()
	dia.Clear()
	require.NoError(t, dev.Close())
}

func TestRandom(t *testing.T) {
	dev := device.NewHost(device.Config{})
	a, err := Random[float64](dev, 20, 30, 0.2, 7)
	require.NoError(t, err)
	b, err := Random[float64](dev, 20, 30, 0.2, 7)
	require.NoError(t, err)
	ra, ca, va, err := a.Triplets()
	require.NoError(t, err)
	rb, cb, vb, err := b.Triplets()
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
	assert.Equal(t, ca, cb)
	assert.Equal(t, va, vb)
	assert.NoError(t, a.Check())
	for _, v := range va {
		assert.NotZero(t, v)
	}

	_, err = Random[float64](dev, 2, 2, 1.5, 1)
	assert.Error(t, err)
	a.Clear()
	b.Clear()
	require.NoError(t, dev.Close())
}
