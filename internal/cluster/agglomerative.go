package cluster

import (
	"fmt"
	"math"
)

type linkage int

const (
	linkageAverage linkage = iota
	linkageWard
)

// agglomerative is the hierarchical strategy: every point starts as its own
// cluster and the two closest clusters merge until exactly k remain. Cluster
// distances follow the Lance-Williams update for the configured linkage, so
// the full dendrogram is never materialized.
type agglomerative struct {
	linkage linkage
}

func (a *agglomerative) Name() string {
	if a.linkage == linkageWard {
		return StrategyAgglomerativeWard
	}
	return StrategyAgglomerativeAverage
}

func (a *agglomerative) Partition(points [][]float64, k int) (*Result, error) {
	n := len(points)
	if k <= 0 {
		return nil, fmt.Errorf("agglomerative: cluster count must be positive, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("agglomerative: %d points for %d clusters: %w",
			n, k, ErrInsufficientData)
	}

	// Pairwise dissimilarities. Ward operates on squared Euclidean
	// distances, average linkage on plain ones.
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := squaredDistance(points[i], points[j])
			if a.linkage == linkageAverage {
				d = math.Sqrt(d)
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}

	// nearest[i] caches i's closest active cluster; ties resolve to the
	// lowest index so merges are deterministic.
	nearest := make([]int, n)
	for i := 0; i < n; i++ {
		nearest[i] = a.scanNearest(dist, active, i, n)
	}

	// parent lets us read final labels without tracking member lists
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}

	for remaining := n; remaining > k; remaining-- {
		// Find the globally closest pair via the cached neighbors
		bi, bd := -1, math.MaxFloat64
		for i := 0; i < n; i++ {
			if !active[i] || nearest[i] < 0 {
				continue
			}
			if d := dist[i][nearest[i]]; d < bd {
				bi, bd = i, d
			}
		}
		bj := nearest[bi]
		if bj < bi {
			bi, bj = bj, bi
		}

		// Merge bj into bi with the Lance-Williams update
		ni, nj := float64(size[bi]), float64(size[bj])
		for m := 0; m < n; m++ {
			if !active[m] || m == bi || m == bj {
				continue
			}
			var d float64
			switch a.linkage {
			case linkageWard:
				nm := float64(size[m])
				d = ((nm+ni)*dist[m][bi] + (nm+nj)*dist[m][bj] - nm*bd) / (nm + ni + nj)
			default:
				d = (ni*dist[m][bi] + nj*dist[m][bj]) / (ni + nj)
			}
			dist[m][bi] = d
			dist[bi][m] = d
		}
		active[bj] = false
		size[bi] += size[bj]
		parent[bj] = bi

		// Refresh cached neighbors invalidated by the merge
		nearest[bi] = a.scanNearest(dist, active, bi, n)
		for m := 0; m < n; m++ {
			if !active[m] || m == bi {
				continue
			}
			if nearest[m] == bi || nearest[m] == bj {
				nearest[m] = a.scanNearest(dist, active, m, n)
			} else if dist[m][bi] < dist[m][nearest[m]] {
				nearest[m] = bi
			}
		}
	}

	// Compress parent chains and relabel contiguously in root order
	labels := make([]int, n)
	rootLabel := make(map[int]int, k)
	next := 0
	for i := 0; i < n; i++ {
		root := i
		for parent[root] != root {
			root = parent[root]
		}
		l, ok := rootLabel[root]
		if !ok {
			l = next
			rootLabel[root] = l
			next++
		}
		labels[i] = l
	}

	return &Result{Labels: labels, Converged: true}, nil
}

func (a *agglomerative) scanNearest(dist [][]float64, active []bool, i, n int) int {
	best, bd := -1, math.MaxFloat64
	for j := 0; j < n; j++ {
		if j == i || !active[j] {
			continue
		}
		if dist[i][j] < bd {
			best, bd = j, dist[i][j]
		}
	}
	return best
}
