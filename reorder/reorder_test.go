package reorder

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/gallery"
	"github.com/notargets/spmat/matrix"
	"github.com/notargets/spmat/vector"
)

func isPermutation(p []int32) bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || int(v) >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// shuffledGrid returns a 2D Laplacian with its unknowns randomly renumbered.
func shuffledGrid(t *testing.T, dev device.Device, nx int) *matrix.COO[float64] {
	t.Helper()
	m, err := gallery.Laplace2D[float64](dev, nx, nx)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 2))
	perm := make([]int32, nx*nx)
	for i, v := range rng.Perm(nx * nx) {
		perm[i] = int32(v)
	}
	p, err := vector.FromSlice(dev, perm)
	require.NoError(t, err)
	require.NoError(t, m.Permute(p))
	p.Clear()
	return m
}

func TestGraphOf(t *testing.T) {
	dev := device.NewHost(device.Config{})
	m := matrix.NewCOO[float64](dev)
	// Unsymmetric pattern with a duplicate and a diagonal entry.
	require.NoError(t, m.SetTriplets(3, 3, []int32{0, 0, 0, 2}, []int32{1, 1, 0, 1}, []float64{1, 2, 3, 4}))
	g, err := GraphOf(m)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 3, 4}, g.Xadj)
	assert.Equal(t, []int32{1, 0, 2, 1}, g.Adjncy)
	assert.Equal(t, 2, g.Degree(1))
	m.Clear()

	rect := matrix.NewCOO[float64](dev)
	require.NoError(t, rect.AllocateCOO(0, 2, 3))
	_, err = GraphOf(rect)
	assert.Error(t, err)
	rect.Clear()
	require.NoError(t, dev.Close())
}

func TestRCM_ReducesBandwidth(t *testing.T) {
	const nx = 10
	dev := device.NewQueue(device.Config{})
	m := shuffledGrid(t, dev, nx)
	g, err := GraphOf(m)
	require.NoError(t, err)
	before := Bandwidth(g, nil)

	p := RCM(g)
	require.True(t, isPermutation(p))
	after := Bandwidth(g, p)
	assert.Less(t, after, before)
	assert.LessOrEqual(t, after, 2*nx)

	// Applying the permutation to the matrix gives the same bandwidth.
	pv, err := vector.FromSlice(dev, p)
	require.NoError(t, err)
	require.NoError(t, m.Permute(pv))
	g2, err := GraphOf(m)
	require.NoError(t, err)
	assert.Equal(t, after, Bandwidth(g2, nil))

	pv.Clear()
	m.Clear()
	require.NoError(t, dev.Close())
}

func TestRCM_Disconnected(t *testing.T) {
	g := &Graph{Xadj: []int32{0, 1, 2, 2, 3, 4}, Adjncy: []int32{1, 0, 4, 3}}
	p := RCM(g)
	assert.True(t, isPermutation(p))
	assert.Equal(t, 1, Bandwidth(g, p))
}

func TestPartition(t *testing.T) {
	const nx = 10
	dev := device.NewHost(device.Config{})
	m := shuffledGrid(t, dev, nx)
	g, err := GraphOf(m)
	require.NoError(t, err)

	p, part, err := Partition(g, DefaultPartitionConfig(4))
	require.NoError(t, err)
	assert.True(t, isPermutation(p))
	sizes := make(map[int32]int)
	for _, q := range part {
		sizes[q]++
	}
	assert.Len(t, sizes, 4)
	for _, s := range sizes {
		assert.InDelta(t, 25, s, 3)
	}
	// Rows of one part are numbered contiguously.
	start := make([]int, 5)
	for q := int32(0); q < 4; q++ {
		start[q+1] = start[q] + sizes[q]
	}
	for v, q := range part {
		assert.True(t, int(p[v]) >= start[q] && int(p[v]) < start[q+1], "vertex %d", v)
	}
	// A partition following the grid cuts far fewer edges than a random one.
	assert.Less(t, EdgeCut(g, part), 90)

	_, _, err = Partition(g, DefaultPartitionConfig(0))
	assert.Error(t, err)
	m.Clear()
	require.NoError(t, dev.Close())
}
