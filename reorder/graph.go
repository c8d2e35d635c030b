// Package reorder computes symmetric row/column permutations for sparse
// matrices: bandwidth reduction and graph partitioning.
package reorder

import (
	"fmt"
	"sort"

	"github.com/notargets/spmat/container"
	"github.com/notargets/spmat/matrix"
)

// Graph is the adjacency structure of a square matrix in METIS layout: the
// neighbors of vertex v are Adjncy[Xadj[v]:Xadj[v+1]].
type Graph struct {
	Xadj, Adjncy []int32
}

func (g *Graph) NumVertices() int { return len(g.Xadj) - 1 }

func (g *Graph) Neighbors(v int) []int32 { return g.Adjncy[g.Xadj[v]:g.Xadj[v+1]] }

func (g *Graph) Degree(v int) int { return int(g.Xadj[v+1] - g.Xadj[v]) }

// GraphOf builds the symmetrized structure of m without self loops.
// Neighbor lists are sorted and free of duplicates.
func GraphOf[T container.Float](m *matrix.COO[T]) (*Graph, error) {
	if m.Nrow() != m.Ncol() {
		return nil, fmt.Errorf("reorder: graph of a %dx%d matrix", m.Nrow(), m.Ncol())
	}
	row, col, _, err := m.Triplets()
	if err != nil {
		return nil, err
	}
	n := m.Nrow()
	adj := make([][]int32, n)
	for i := range row {
		r, c := row[i], col[i]
		if r == c {
			continue
		}
		adj[r] = append(adj[r], c)
		adj[c] = append(adj[c], r)
	}
	g := &Graph{Xadj: make([]int32, n+1)}
	for v, nbrs := range adj {
		sort.Slice(nbrs, func(i, j int) bool { return nbrs[i] < nbrs[j] })
		for k, u := range nbrs {
			if k > 0 && u == nbrs[k-1] {
				continue
			}
			g.Adjncy = append(g.Adjncy, u)
		}
		g.Xadj[v+1] = int32(len(g.Adjncy))
	}
	return g, nil
}

// Bandwidth is the largest |p[u]-p[v]| over the edges of g. A nil p is the
// identity.
func Bandwidth(g *Graph, p []int32) int {
	bw := 0
	for v := 0; v < g.NumVertices(); v++ {
		for _, u := range g.Neighbors(v) {
			a, b := int32(v), u
			if p != nil {
				a, b = p[a], p[b]
			}
			if d := int(a - b); d > bw {
				bw = d
			} else if -d > bw {
				bw = -d
			}
		}
	}
	return bw
}

// fromOrder turns a visiting order into a permutation with p[order[k]] = k.
func fromOrder(order []int32) []int32 {
	p := make([]int32, len(order))
	for k, v := range order {
		p[v] = int32(k)
	}
	return p
}
