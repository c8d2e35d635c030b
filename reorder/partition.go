package reorder

import (
	"fmt"
	"log"
	"math"
)

// PartitionConfig controls k-way partitioning.
type PartitionConfig struct {
	NumPartitions   int32
	ImbalanceFactor float32 // e.g., 1.05 for 5% imbalance
	Objective       string  // "cut" or "vol"
}

func DefaultPartitionConfig(nparts int32) *PartitionConfig {
	return &PartitionConfig{
		NumPartitions:   nparts,
		ImbalanceFactor: 1.05,
		Objective:       "cut",
	}
}

// Partition assigns every vertex of g to one of cfg.NumPartitions parts and
// returns the permutation that numbers the rows of each part contiguously,
// along with the assignment.
func Partition(g *Graph, cfg *PartitionConfig) (p, part []int32, err error) {
	if cfg.NumPartitions < 1 {
		return nil, nil, fmt.Errorf("reorder: %d partitions", cfg.NumPartitions)
	}
	n := g.NumVertices()
	log.Printf("Partitioning graph with %d vertices into %d parts", n, cfg.NumPartitions)
	var objval int32
	if cfg.NumPartitions == 1 || n <= int(cfg.NumPartitions) {
		part = contiguous(RCM(g), int(cfg.NumPartitions))
	} else if part, objval, err = partitionGraph(g, cfg); err != nil {
		return nil, nil, err
	}
	analyzePartition(g, part, int(cfg.NumPartitions), objval)
	return PermutationOf(part, int(cfg.NumPartitions)), part, nil
}

// PermutationOf orders rows by part, keeping the original order inside
// each part.
func PermutationOf(part []int32, nparts int) []int32 {
	next := make([]int32, nparts+1)
	for _, q := range part {
		next[q+1]++
	}
	for q := 0; q < nparts; q++ {
		next[q+1] += next[q]
	}
	p := make([]int32, len(part))
	for v, q := range part {
		p[v] = next[q]
		next[q]++
	}
	return p
}

// EdgeCut counts edges joining different parts.
func EdgeCut(g *Graph, part []int32) int {
	cut := 0
	for v := 0; v < g.NumVertices(); v++ {
		for _, u := range g.Neighbors(v) {
			if int(u) > v && part[u] != part[v] {
				cut++
			}
		}
	}
	return cut
}

func analyzePartition(g *Graph, part []int32, nparts int, objval int32) {
	sizes := make([]int, nparts)
	for _, q := range part {
		sizes[q]++
	}
	var (
		minSize = math.MaxInt
		maxSize = 0
		avg     = float64(len(part)) / float64(nparts)
	)
	for _, s := range sizes {
		minSize = min(minSize, s)
		maxSize = max(maxSize, s)
	}
	imbalance := 0.0
	if avg > 0 {
		imbalance = float64(maxSize)/avg - 1.0
	}
	log.Printf("Partition Analysis:")
	log.Printf("  Objective value: %d", objval)
	log.Printf("  Cut edges: %d", EdgeCut(g, part))
	log.Printf("  Load imbalance: %.2f%%", imbalance*100)
	log.Printf("  Load range: [%d, %d], avg: %.1f", minSize, maxSize, avg)
}
