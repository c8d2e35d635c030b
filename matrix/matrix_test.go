package matrix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/vector"
)

func testDevices() []device.Device {
	return []device.Device{
		device.NewHost(device.Config{Threads: 4}),
		device.NewQueue(device.Config{Threads: 4}),
	}
}

// closeDevice fails the test if anything is still allocated on dev.
func closeDevice(t *testing.T, dev device.Device) {
	t.Helper()
	n, bytes := dev.Live()
	assert.Equal(t, 0, n, "%d bytes still allocated on %s", bytes, dev.Mode())
	require.NoError(t, dev.Close())
}

// sample is a 5x5 matrix with one long row, listed out of order.
func sample(t *testing.T, dev device.Device) *COO[float64] {
	t.Helper()
	var (
		row = []int32{2, 0, 4, 1, 0, 2, 3, 1, 2, 4, 0, 1, 2, 3, 4, 2}
		col = []int32{4, 0, 0, 2, 1, 1, 3, 0, 2, 3, 4, 1, 3, 2, 4, 0}
		val = []float64{0.25, 4, 3, -1, -1, -1, 4, -1, 4, -1, 2, 4, -1, -1, 4, 0.5}
	)
	m := NewCOO[float64](dev)
	require.NoError(t, m.SetTriplets(5, 5, row, col, val))
	return m
}

func newVector(t *testing.T, dev device.Device, data ...float64) *vector.Vector[float64] {
	t.Helper()
	v, err := vector.FromSlice(dev, data)
	require.NoError(t, err)
	return v
}

func vectorData(t *testing.T, v *vector.Vector[float64]) []float64 {
	t.Helper()
	data, err := v.Data()
	require.NoError(t, err)
	return data
}

// inFormat converts the sample into f, staging through CSR for HYB.
func inFormat(t *testing.T, f Format, src *COO[float64]) Matrix[float64] {
	t.Helper()
	dst, err := New[float64](f, src.Device())
	require.NoError(t, err)
	if f == FormatHYB {
		csr := NewCSR[float64](src.Device())
		require.NoError(t, csr.ConvertFrom(src))
		require.NoError(t, dst.ConvertFrom(csr))
		csr.Clear()
		return dst
	}
	require.NoError(t, dst.ConvertFrom(src))
	return dst
}

// dump downloads the encoding of m for bitwise comparison.
func dump(t *testing.T, m Matrix[float64]) any {
	t.Helper()
	d, err := EncodingOf(m)
	require.NoError(t, err)
	return d
}

func TestMatrix_AllocateClear(t *testing.T) {
	for _, dev := range testDevices() {
		t.Run(dev.Mode(), func(t *testing.T) {
			allocs := map[Format]func(Matrix[float64]) error{
				FormatCOO: func(m Matrix[float64]) error { return m.(*COO[float64]).AllocateCOO(7, 4, 5) },
				FormatCSR: func(m Matrix[float64]) error { return m.(*CSR[float64]).AllocateCSR(7, 4, 5) },
				FormatDIA: func(m Matrix[float64]) error { return m.(*DIA[float64]).AllocateDIA(12, 4, 5, 3) },
				FormatELL: func(m Matrix[float64]) error { return m.(*ELL[float64]).AllocateELL(8, 4, 5, 2) },
				FormatHYB: func(m Matrix[float64]) error { return m.(*HYB[float64]).AllocateHYB(8, 3, 4, 5, 2) },
			}
			for _, f := range Formats {
				fresh, err := New[float64](f, dev)
				require.NoError(t, err)
				m, err := New[float64](f, dev)
				require.NoError(t, err)
				require.NoError(t, allocs[f](m))
				assert.Equal(t, f, m.Format())
				assert.Equal(t, 4, m.Nrow())
				assert.Equal(t, 5, m.Ncol())
				assert.NoError(t, m.Check(), f.String())

				m.Clear()
				m.Clear()
				assert.Equal(t, fresh.Info(), m.Info())
				assert.Equal(t, dump(t, fresh), dump(t, m))
				n, _ := dev.Live()
				assert.Equal(t, 0, n)
			}
			// Reallocation must not expose previous values.
			m := sample(t, dev)
			require.NoError(t, m.AllocateCOO(16, 5, 5))
			_, _, val, err := m.Triplets()
			require.NoError(t, err)
			assert.Equal(t, make([]float64, 16), val)
			m.Clear()

			assert.True(t, errors.Is(NewDIA[float64](dev).AllocateDIA(5, 4, 4, 2), ErrShapeMismatch))
			assert.True(t, errors.Is(NewELL[float64](dev).AllocateELL(5, 4, 4, 2), ErrShapeMismatch))
			assert.Panics(t, func() { _ = NewCOO[float64](dev).AllocateCOO(-1, 2, 2) })
			closeDevice(t, dev)
		})
	}
	assert.Panics(t, func() { NewCSR[float64](nil) })
}

func TestMatrix_AllocationFailure(t *testing.T) {
	dev := device.NewQueue(device.Config{MemoryLimit: 64})
	m := NewCOO[float64](dev)
	err := m.AllocateCOO(100, 10, 10)
	assert.True(t, errors.Is(err, ErrAllocation))
	assert.Equal(t, 0, m.NNZ())
	assert.Equal(t, 0, m.Nrow())
	closeDevice(t, dev)
}

func TestMatrix_ApplyIdentity(t *testing.T) {
	for _, dev := range testDevices() {
		t.Run(dev.Mode(), func(t *testing.T) {
			m := NewCOO[float64](dev)
			require.NoError(t, m.SetTriplets(3, 3, []int32{0, 1, 2}, []int32{0, 1, 2}, []float64{1, 1, 1}))

			in := newVector(t, dev, 5, 6, 7)
			out := vector.New[float64](dev)
			require.NoError(t, m.Apply(in, out))
			assert.Equal(t, []float64{5, 6, 7}, vectorData(t, out))

			ones := newVector(t, dev, 1, 1, 1)
			acc := newVector(t, dev, 10, 10, 10)
			require.NoError(t, m.ApplyAdd(ones, 2, acc))
			assert.Equal(t, []float64{12, 12, 12}, vectorData(t, acc))

			assert.True(t, errors.Is(m.Apply(in, in), ErrAliasedVectors))
			short := newVector(t, dev, 1, 2)
			assert.True(t, errors.Is(m.Apply(short, out), ErrShapeMismatch))
			assert.True(t, errors.Is(m.ApplyAdd(in, 1, short), ErrShapeMismatch))

			for _, v := range []*vector.Vector[float64]{in, out, ones, acc, short} {
				v.Clear()
			}
			m.Clear()
			closeDevice(t, dev)
		})
	}
}

func TestMatrix_ApplyDIA(t *testing.T) {
	for _, dev := range testDevices() {
		t.Run(dev.Mode(), func(t *testing.T) {
			m := NewDIA[float64](dev)
			require.NoError(t, m.SetDiagonals(3, 3, []int32{0}, []float64{2, 2, 2}))
			in := newVector(t, dev, 3, 4, 5)
			out := newVector(t, dev, 9, 9, 9)
			require.NoError(t, m.Apply(in, out))
			assert.Equal(t, []float64{6, 8, 10}, vectorData(t, out))

			// Out-of-range slots of the outer diagonals contribute nothing.
			require.NoError(t, m.SetDiagonals(3, 3, []int32{-1, 1}, []float64{7, 1, 1, 1, 1, 7}))
			require.NoError(t, m.Apply(in, out))
			assert.Equal(t, []float64{4, 8, 4}, vectorData(t, out))

			in.Clear()
			out.Clear()
			m.Clear()
			closeDevice(t, dev)
		})
	}
}

func TestMatrix_ApplyMatchesReference(t *testing.T) {
	for _, dev := range testDevices() {
		t.Run(dev.Mode(), func(t *testing.T) {
			src := sample(t, dev)
			csr := NewCSR[float64](dev)
			require.NoError(t, csr.ConvertFrom(src))
			ref, err := ToSparseCSR(csr)
			require.NoError(t, err)
			x := []float64{1, -2, 3, 0.5, 4}
			want := ReferenceApply(ref, x)

			in := newVector(t, dev, x...)
			for _, f := range Formats {
				m := inFormat(t, f, src)
				out := vector.New[float64](dev)
				require.NoError(t, m.Apply(in, out), f.String())
				assert.InDeltaSlice(t, want, vectorData(t, out), 1e-12, f.String())

				acc := newVector(t, dev, 1, 1, 1, 1, 1)
				require.NoError(t, m.ApplyAdd(in, -0.5, acc))
				for i := range want {
					assert.InDelta(t, 1-0.5*want[i], vectorData(t, acc)[i], 1e-12, f.String())
				}
				out.Clear()
				acc.Clear()
				m.Clear()
			}
			in.Clear()
			csr.Clear()
			src.Clear()
			closeDevice(t, dev)
		})
	}
}

func TestMatrix_HostRoundTrip(t *testing.T) {
	host := device.NewHost(device.Config{})
	queue := device.NewQueue(device.Config{})
	src := sample(t, host)
	for _, f := range Formats {
		hostM := inFormat(t, f, src)
		devM, err := New[float64](f, queue)
		require.NoError(t, err)
		require.NoError(t, devM.CopyFromHost(hostM))
		assert.Equal(t, hostM.NNZ(), devM.NNZ())

		back, err := New[float64](f, host)
		require.NoError(t, err)
		require.NoError(t, devM.CopyToHost(back))
		assert.Equal(t, dump(t, hostM), dump(t, back), f.String())

		// Transfers require a host counterpart of the same format.
		other, err := New[float64](f, queue)
		require.NoError(t, err)
		assert.True(t, errors.Is(devM.CopyFromHost(other), ErrDeviceMismatch))
		assert.True(t, errors.Is(devM.CopyToHost(other), ErrDeviceMismatch))
		if f != FormatCOO {
			assert.True(t, errors.Is(devM.CopyFromHost(src), ErrFormatMismatch))
		}

		for _, m := range []Matrix[float64]{hostM, devM, back, other} {
			m.Clear()
		}
	}
	src.Clear()
	closeDevice(t, host)
	closeDevice(t, queue)
}

func TestMatrix_Copy(t *testing.T) {
	for _, dev := range testDevices() {
		t.Run(dev.Mode(), func(t *testing.T) {
			src := sample(t, dev)
			for _, f := range Formats {
				a := inFormat(t, f, src)
				b, err := New[float64](f, dev)
				require.NoError(t, err)
				assert.True(t, errors.Is(b.CopyFrom(a), ErrShapeMismatch))
				require.NoError(t, a.CopyTo(b))
				assert.Equal(t, dump(t, a), dump(t, b), f.String())

				// The copy owns its storage.
				require.NoError(t, a.Scale(2))
				assert.NotEqual(t, dump(t, a), dump(t, b), f.String())
				require.NoError(t, b.CopyFrom(a))
				assert.Equal(t, dump(t, a), dump(t, b), f.String())

				if f != FormatCOO {
					assert.True(t, errors.Is(src.CopyFrom(a), ErrFormatMismatch))
				}
				a.Clear()
				b.Clear()
			}
			// A rejected HYB copy leaves the destination untouched.
			ha, hb := NewHYB[float64](dev), NewHYB[float64](dev)
			require.NoError(t, ha.AllocateHYB(2, 1, 2, 2, 1))
			require.NoError(t, hb.AllocateHYB(2, 2, 2, 2, 1))
			require.NoError(t, hb.ell.SetArrays(2, 2, 1, []int32{0, 1}, []float64{7, 9}))
			before := dump(t, ha)
			assert.True(t, errors.Is(ha.CopyFrom(hb), ErrShapeMismatch))
			assert.Equal(t, before, dump(t, ha))
			ha.Clear()
			hb.Clear()

			other := device.NewHost(device.Config{})
			c := NewCOO[float64](other)
			assert.True(t, errors.Is(src.CopyTo(c), ErrDeviceMismatch))
			closeDevice(t, other)
			src.Clear()
			closeDevice(t, dev)
		})
	}
}

func TestMatrix_Check(t *testing.T) {
	dev := device.NewHost(device.Config{})
	coo := NewCOO[float64](dev)
	assert.True(t, errors.Is(coo.SetTriplets(2, 2, []int32{0, 2}, []int32{0, 0}, []float64{1, 1}), ErrInvalidStructure))
	assert.True(t, errors.Is(coo.SetTriplets(2, 2, []int32{0}, []int32{0, 1}, []float64{1}), ErrInvalidStructure))
	csr := NewCSR[float64](dev)
	assert.True(t, errors.Is(csr.SetArrays(2, 2, []int32{0, 2, 1}, []int32{0, 1}, []float64{1, 1}), ErrInvalidStructure))
	dia := NewDIA[float64](dev)
	assert.True(t, errors.Is(dia.SetDiagonals(2, 2, []int32{1, 1}, []float64{1, 1, 1, 1}), ErrInvalidStructure))
	ell := NewELL[float64](dev)
	assert.True(t, errors.Is(ell.SetArrays(2, 2, 1, []int32{0, 2}, []float64{1, 1}), ErrInvalidStructure))
	require.NoError(t, ell.SetArrays(2, 2, 1, []int32{-1, 1}, []float64{0, 1}))
	assert.NoError(t, ell.Check())
	ell.Clear()
	closeDevice(t, dev)
}

func TestMatrix_Sort(t *testing.T) {
	dev := device.NewQueue(device.Config{})
	m := NewCOO[float64](dev)
	require.NoError(t, m.SetTriplets(3, 3,
		[]int32{2, 0, 2, 0, 2},
		[]int32{1, 2, 0, 0, 1},
		[]float64{1, 2, 3, 4, 5}))
	require.NoError(t, m.Sort())
	row, col, val, err := m.Triplets()
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 0, 2, 2, 2}, row)
	assert.Equal(t, []int32{0, 2, 0, 1, 1}, col)
	assert.Equal(t, []float64{4, 2, 3, 1, 5}, val)
	m.Clear()
	closeDevice(t, dev)
}

func TestMatrix_Scale(t *testing.T) {
	dev := device.NewQueue(device.Config{})
	m := NewCOO[float32](dev)
	require.NoError(t, m.SetTriplets(2, 2, []int32{0, 1}, []int32{1, 0}, []float32{1.5, -2}))
	require.NoError(t, m.Scale(2))
	_, _, val, err := m.Triplets()
	require.NoError(t, err)
	assert.Equal(t, []float32{3, -4}, val)
	m.Clear()
	closeDevice(t, dev)
}

func TestMatrix_AllocateEntriesWithoutShape(t *testing.T) {
	for _, dev := range testDevices() {
		t.Run(dev.Mode(), func(t *testing.T) {
			coo := NewCOO[float64](dev)
			require.NoError(t, coo.AllocateCOO(2, 2, 2))
			before := dump(t, coo)
			assert.True(t, errors.Is(coo.AllocateCOO(1, 0, 0), ErrShapeMismatch))
			assert.True(t, errors.Is(coo.AllocateCOO(1, 3, 0), ErrShapeMismatch))
			assert.Equal(t, before, dump(t, coo))

			csr := NewCSR[float64](dev)
			assert.True(t, errors.Is(csr.AllocateCSR(1, 0, 0), ErrShapeMismatch))
			assert.True(t, errors.Is(csr.AllocateCSR(2, 0, 4), ErrShapeMismatch))
			hyb := NewHYB[float64](dev)
			assert.True(t, errors.Is(hyb.AllocateHYB(0, 1, 0, 0, 0), ErrShapeMismatch))
			assert.True(t, errors.Is(hyb.AllocateHYB(0, 1, 2, 0, 0), ErrShapeMismatch))

			// Empty shapes without entries still allocate, and apply.
			require.NoError(t, coo.AllocateCOO(0, 0, 0))
			require.NoError(t, csr.AllocateCSR(0, 0, 0))
			in, out := vector.New[float64](dev), vector.New[float64](dev)
			assert.NoError(t, coo.Apply(in, out))
			assert.NoError(t, csr.ConvertFrom(coo))
			assert.Equal(t, 0, out.Size())

			coo.Clear()
			csr.Clear()
			hyb.Clear()
			closeDevice(t, dev)
		})
	}
}

func TestMatrix_AllocateCSRRowOffsets(t *testing.T) {
	dev := device.NewHost(device.Config{})
	csr := NewCSR[float64](dev)
	require.NoError(t, csr.AllocateCSR(7, 4, 5))
	ptr, col, val, err := csr.Arrays()
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 3, 5, 7}, ptr)
	assert.Equal(t, make([]int32, 7), col)
	assert.Equal(t, make([]float64, 7), val)
	require.NoError(t, csr.Check())

	coo := NewCOO[float64](dev)
	require.NoError(t, coo.ConvertFrom(csr))
	row, _, _, err := coo.Triplets()
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 1, 2, 2, 3, 3}, row)
	coo.Clear()
	csr.Clear()
	closeDevice(t, dev)
}

func TestPermute_HYBFailureLeavesMatrixIntact(t *testing.T) {
	host := device.NewHost(device.Config{})
	src := sample(t, host)
	hostHYB := inFormat(t, FormatHYB, src).(*HYB[float64])
	require.Greater(t, hostHYB.COONnz(), 0)

	// Room for the HYB arrays and the permutation, nothing more.
	limit := int64(hostHYB.ELLNnz()*(4+8) + hostHYB.COONnz()*(4+4+8) + 5*4)
	dev := device.NewHost(device.Config{MemoryLimit: limit})
	m := NewHYB[float64](dev)
	require.NoError(t, m.CopyFromHost(hostHYB))
	p, err := vector.FromSlice(dev, []int32{3, 0, 4, 1, 2})
	require.NoError(t, err)

	require.NoError(t, m.Permute(p))
	permuted := dump(t, m)
	// The inverse needs a temporary upload, which the limit refuses.
	err = m.PermuteBackward(p)
	assert.True(t, errors.Is(err, ErrAllocation), "%v", err)
	assert.Equal(t, permuted, dump(t, m))

	p.Clear()
	m.Clear()
	hostHYB.Clear()
	src.Clear()
	closeDevice(t, dev)
	closeDevice(t, host)
}
