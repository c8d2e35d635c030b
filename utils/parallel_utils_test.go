package utils

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Bucket sizes
		getHisto := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for np := 0; np < pm.ParallelDegree; np++ {
				histo[pm.GetBucketDimension(np)]++
			}
			return
		}
		getTotal := func(histo map[int]int) (total int) {
			for key, count := range histo {
				total += key * count
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
		for n := 64; n < 2000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Inverse probe finds the bucket in at most one step
		for maxIndex := 10; maxIndex < 500; maxIndex++ {
			pm := NewPartitionMap(5, maxIndex)
			for k := 0; k < maxIndex; k++ {
				tryCount, bn, min, max := pm.getBucketWithTryCount(k)
				mmin, mmax := pm.GetBucketRange(bn)
				assert.True(t, k >= min && k < max && min == mmin && max == mmax && tryCount <= 1)
			}
			bn, _, _ := pm.GetBucket(maxIndex)
			assert.Equal(t, -1, bn)
		}
	}
}

func TestParallelFor(t *testing.T) {
	for _, n := range []int{0, 1, 7, 1000, 4097} {
		var (
			hits  = make([]int32, n)
			calls int32
		)
		ParallelFor(8, n, 100, func(kMin, kMax int) {
			atomic.AddInt32(&calls, 1)
			for k := kMin; k < kMax; k++ {
				atomic.AddInt32(&hits[k], 1)
			}
		})
		for k := range hits {
			assert.Equal(t, int32(1), hits[k])
		}
		assert.LessOrEqual(t, int(calls), 8)
	}
}

func TestPartitionMap_RunSkipsEmptyBuckets(t *testing.T) {
	pm := NewPartitionMap(8, 3)
	assert.Equal(t, 3, pm.GetBucketDimension(-1))
	var (
		calls int32
		hits  = make([]int32, 3)
	)
	pm.Run(func(bn, kMin, kMax int) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 1, kMax-kMin, "bucket %d", bn)
		for k := kMin; k < kMax; k++ {
			atomic.AddInt32(&hits[k], 1)
		}
	})
	assert.Equal(t, int32(3), calls)
	assert.Equal(t, []int32{1, 1, 1}, hits)
}
