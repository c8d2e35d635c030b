package reorder

import "github.com/notargets/spmat/utils"

// contiguous assigns position p[v] of every vertex to the bucket of a
// balanced split of [0, n).
func contiguous(p []int32, nparts int) []int32 {
	pm := utils.NewPartitionMap(nparts, len(p))
	part := make([]int32, len(p))
	for v, k := range p {
		bn, _, _ := pm.GetBucket(int(k))
		part[v] = int32(bn)
	}
	return part
}
