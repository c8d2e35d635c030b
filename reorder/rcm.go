package reorder

import "sort"

// RCM returns the reverse Cuthill-McKee permutation of g, p[old] = new.
// Each connected component starts from an unvisited vertex of minimum degree.
func RCM(g *Graph) []int32 {
	var (
		n       = g.NumVertices()
		visited = make([]bool, n)
		order   = make([]int32, 0, n)
		byDeg   = make([]int32, n)
	)
	for v := range byDeg {
		byDeg[v] = int32(v)
	}
	sort.SliceStable(byDeg, func(i, j int) bool { return g.Degree(int(byDeg[i])) < g.Degree(int(byDeg[j])) })

	for _, start := range byDeg {
		if visited[start] {
			continue
		}
		visited[start] = true
		head := len(order)
		order = append(order, start)
		for ; head < len(order); head++ {
			var next []int32
			for _, u := range g.Neighbors(int(order[head])) {
				if !visited[u] {
					visited[u] = true
					next = append(next, u)
				}
			}
			sort.SliceStable(next, func(i, j int) bool { return g.Degree(int(next[i])) < g.Degree(int(next[j])) })
			order = append(order, next...)
		}
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return fromOrder(order)
}
