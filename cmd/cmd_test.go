package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/spmat/InputParameters"
	"github.com/notargets/spmat/device"
	"github.com/notargets/spmat/matrix"
)

func TestStagePath(t *testing.T) {
	assert.Equal(t, []matrix.Format{matrix.FormatCSR}, stagePath(matrix.FormatCSR, matrix.FormatCOO))
	assert.Equal(t, []matrix.Format{matrix.FormatCSR, matrix.FormatHYB}, stagePath(matrix.FormatHYB, matrix.FormatDIA))
	assert.Equal(t, []matrix.Format{matrix.FormatCOO, matrix.FormatDIA}, stagePath(matrix.FormatDIA, matrix.FormatHYB))
	// Every pair is reachable.
	for _, src := range matrix.Formats {
		for _, dst := range matrix.Formats {
			if src == dst {
				continue
			}
			path := stagePath(dst, src)
			require.NotEmpty(t, path, "%s -> %s", src, dst)
			assert.Equal(t, dst, path[len(path)-1])
		}
	}
	assert.Equal(t, "DIA -> CSR -> HYB", formatPath(matrix.FormatDIA, stagePath(matrix.FormatHYB, matrix.FormatDIA)))
}

func TestBuildAndStage(t *testing.T) {
	host := device.NewHost(device.Config{Threads: 2})
	defer host.Close()
	dev := device.NewQueue(device.Config{Threads: 2})
	defer dev.Close()

	bp := &InputParameters.BenchParameters{}
	require.NoError(t, bp.Parse([]byte("Stencil: laplace2d\nSize: 6\nReorder: rcm\n")))
	bp.FillLimit = matrix.DefaultDIAFillLimit
	src, err := buildHostMatrix(host, bp)
	require.NoError(t, err)
	defer src.Clear()
	assert.Equal(t, 36, src.Nrow())
	assert.Equal(t, 36+4*30, src.NNZ())

	for _, f := range matrix.Formats {
		m, err := convertStaged(f, dev, src, bp.FillLimit)
		require.NoError(t, err, f.String())
		assert.Equal(t, f, m.Format())
		assert.Equal(t, dev, m.Device())
		assert.NoError(t, m.Check())
		m.Clear()
	}
	_, err = buildHostMatrix(host, &InputParameters.BenchParameters{Stencil: "spiral", Size: 4})
	assert.Error(t, err)
}
