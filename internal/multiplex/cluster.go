package multiplex

import (
	"math"
	"sort"
)

// ClusterParams control how filter result points are grouped into
// clusters along retention time and m/z.
type ClusterParams struct {
	// Points closer than RTTypical in retention time and MzTypical in
	// m/z belong to the same cluster.
	RTTypical float64
	MzTypical float64
	// Clusters spanning less than RTMinimum seconds are discarded.
	RTMinimum float64
}

// Cluster is a group of filter result points, identified by their
// indices in ascending order.
type Cluster struct {
	Points []int
}

type gridCell struct {
	rt, mz int
}

// ClusterPoints partitions points into clusters. Two points are linked
// when their retention time and m/z distances are both within the
// typical scales. The partition does not depend on the input order;
// clusters are returned sorted by their smallest member index.
func ClusterPoints(points []FilterResultPoint, params ClusterParams) []Cluster {
	uf := newUnionFind(len(points))

	// hash points to grid cells so only neighboring cells need to be
	// compared
	grid := make(map[gridCell][]int)
	for i, p := range points {
		c := gridCell{
			rt: int(math.Floor(p.RetentionTime / params.RTTypical)),
			mz: int(math.Floor(p.Mz / params.MzTypical)),
		}
		grid[c] = append(grid[c], i)
	}
	for c, members := range grid {
		for drt := -1; drt <= 1; drt++ {
			for dmz := -1; dmz <= 1; dmz++ {
				other := gridCell{rt: c.rt + drt, mz: c.mz + dmz}
				for _, i := range members {
					for _, j := range grid[other] {
						if j <= i {
							continue
						}
						if math.Abs(points[i].RetentionTime-points[j].RetentionTime) <= params.RTTypical &&
							math.Abs(points[i].Mz-points[j].Mz) <= params.MzTypical {
							uf.union(i, j)
						}
					}
				}
			}
		}
	}

	byRoot := make(map[int][]int)
	for i := range points {
		r := uf.find(i)
		byRoot[r] = append(byRoot[r], i)
	}
	var clusters []Cluster
	for _, members := range byRoot {
		sort.Ints(members)
		rtMin, rtMax := math.Inf(1), math.Inf(-1)
		for _, i := range members {
			rt := points[i].RetentionTime
			rtMin = math.Min(rtMin, rt)
			rtMax = math.Max(rtMax, rt)
		}
		if rtMax-rtMin < params.RTMinimum {
			continue
		}
		clusters = append(clusters, Cluster{Points: members})
	}
	sort.Slice(clusters, func(a, b int) bool {
		return clusters[a].Points[0] < clusters[b].Points[0]
	})
	return clusters
}

// unionFind is a disjoint set forest with path compression. The
// representative of a set is always its smallest element, which makes
// the resulting partition independent of union order.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(i, j int) {
	ri, rj := uf.find(i), uf.find(j)
	if ri == rj {
		return
	}
	if ri < rj {
		uf.parent[rj] = ri
	} else {
		uf.parent[ri] = rj
	}
}
