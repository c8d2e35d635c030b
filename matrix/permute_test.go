package matrix_test

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

func TestPermute_RandomRoundTrip(t *testing.T) {
	devs := []device.Device{
		device.NewHost(device.Config{Threads: 2}),
		device.NewQueue(device.Config{Threads: 2}),
	}
	for _, dev := range devs {
		t.Run(dev.Mode(), func(t *testing.T) {
			for seed := uint64(1); seed <= 25; seed++ {
				rng := rand.New(rand.NewPCG(seed, 7))
				n := 1 + rng.IntN(40)
				src, err := gallery.Random[float64](dev, n, n, 0.15, seed)
				require.NoError(t, err)
				perm := make([]int32, n)
				for i, v := range rng.Perm(n) {
					perm[i] = int32(v)
				}
				p, err := vector.FromSlice(dev, perm)
				require.NoError(t, err)

				csr := matrix.NewCSR[float64](dev)
				require.NoError(t, csr.ConvertFrom(src))
				for _, f := range []matrix.Format{matrix.FormatCOO, matrix.FormatCSR, matrix.FormatELL, matrix.FormatHYB} {
					m, err := matrix.New[float64](f, dev)
					require.NoError(t, err)
					require.NoError(t, m.ConvertFrom(csr), "seed %d %s", seed, f)
					before, err := matrix.EncodingOf(m)
					require.NoError(t, err)

					require.NoError(t, m.Permute(p), "seed %d %s", seed, f)
					assert.NoError(t, m.Check(), "seed %d %s", seed, f)
					assert.Equal(t, csr.NNZ(), m.NNZ())
					require.NoError(t, m.PermuteBackward(p), "seed %d %s", seed, f)
					after, err := matrix.EncodingOf(m)
					require.NoError(t, err)
					assert.Equal(t, before, after, "seed %d %s", seed, f)
					m.Clear()
				}
				csr.Clear()
				p.Clear()
				src.Clear()
			}
			n, _ := dev.Live()
			assert.Equal(t, 0, n)
			require.NoError(t, dev.Close())
		})
	}
}
