package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchParameters_Parse(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
Device:
  Mode: queue
  Threads: 4
  MemoryLimit: 1048576
Formats: [CSR, DIA]
Stencil: banded # laplace1d, laplace2d, banded or random
Size: 100
Bandwidth: 3
Iterations: 5
Scalar: 0.5
Reorder: rcm
`)
	var input BenchParameters
	require.NoError(t, input.Parse(fileInput))
	assert.Equal(t, "queue", input.Device.Mode)
	assert.Equal(t, 4, input.Device.Threads)
	assert.Equal(t, int64(1048576), input.Device.MemoryLimit)
	assert.Equal(t, []string{"CSR", "DIA"}, input.Formats)
	assert.Equal(t, 3, input.Bandwidth)
	assert.Equal(t, 0.5, input.Scalar)
	assert.Equal(t, int32(4), input.Partitions)
	input.Print()

	var empty BenchParameters
	require.NoError(t, empty.Parse([]byte("Title: defaults\n")))
	assert.Len(t, empty.Formats, 5)
	assert.Equal(t, "laplace2d", empty.Stencil)
	assert.Equal(t, 10, empty.Iterations)
	assert.Equal(t, 1.0, empty.Scalar)
}
