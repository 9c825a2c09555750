// Package quality scores a clustering with the standard internal validation
// metrics: silhouette, Calinski-Harabasz, and Davies-Bouldin. Scores are
// advisory and never block a run, but they are persisted so operators can
// compare strategies and cluster counts before deployment.
package quality

import (
	"fmt"
	"math"
	"runtime"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
)

// Report holds one metric set. Silhouette lies in [-1, 1]; higher is better.
// Calinski-Harabasz is unbounded; higher is better. Davies-Bouldin is
// non-negative; lower is better.
type Report struct {
	Silhouette       float64 `json:"silhouette"`
	CalinskiHarabasz float64 `json:"calinski_harabasz"`
	DaviesBouldin    float64 `json:"davies_bouldin"`
}

// Evaluator scores partitions of one fixed point set. Pairwise distance rows
// are memoized in a bounded LRU cache, so evaluating each cohort and then the
// merged run-level partition does not recompute shared distances.
type Evaluator struct {
	points [][]float64
	rows   *lru.Cache
}

// NewEvaluator builds an Evaluator over points, caching at most cacheRows
// distance rows.
func NewEvaluator(points [][]float64, cacheRows int) (*Evaluator, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("quality: no points")
	}
	if cacheRows <= 0 {
		cacheRows = len(points)
	}
	rows, err := lru.New(cacheRows)
	if err != nil {
		return nil, fmt.Errorf("quality: distance cache: %w", err)
	}
	return &Evaluator{points: points, rows: rows}, nil
}

// Evaluate scores the partition of subset described by labels, where
// labels[i] is the cluster of point subset[i]. A nil subset means all points.
// It returns ErrDegenerateClustering when the cluster count is 1 or equals
// the number of points.
func (e *Evaluator) Evaluate(labels []int, subset []int) (*Report, error) {
	if subset == nil {
		subset = make([]int, len(e.points))
		for i := range subset {
			subset[i] = i
		}
	}
	if len(labels) != len(subset) {
		return nil, fmt.Errorf("quality: %d labels for %d points", len(labels), len(subset))
	}

	k := 0
	for _, l := range labels {
		if l < 0 {
			return nil, fmt.Errorf("quality: negative label %d", l)
		}
		if l+1 > k {
			k = l + 1
		}
	}
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	for c, n := range counts {
		if n == 0 {
			return nil, fmt.Errorf("quality: empty cluster %d", c)
		}
	}
	if k <= 1 || k >= len(subset) {
		return nil, fmt.Errorf("quality: %d clusters over %d points: %w",
			k, len(subset), ErrDegenerateClustering)
	}

	sil, err := e.silhouette(labels, subset, counts)
	if err != nil {
		return nil, err
	}
	centroids, spreads := centroidStats(e.points, labels, subset, counts)

	return &Report{
		Silhouette:       sil,
		CalinskiHarabasz: calinskiHarabasz(e.points, labels, subset, counts, centroids),
		DaviesBouldin:    daviesBouldin(centroids, spreads),
	}, nil
}

// silhouette is the mean over all points of (b-a)/max(a,b), a being the mean
// intra-cluster distance and b the mean distance to the nearest other
// cluster. Singleton members score zero. Rows are computed in parallel.
func (e *Evaluator) silhouette(labels []int, subset []int, counts []int) (float64, error) {
	scores := make([]float64, len(subset))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	chunk := (len(subset) + runtime.NumCPU() - 1) / runtime.NumCPU()
	for start := 0; start < len(subset); start += chunk {
		start := start
		end := min(start+chunk, len(subset))
		g.Go(func() error {
			sums := make([]float64, len(counts))
			for i := start; i < end; i++ {
				row := e.row(subset[i])
				for c := range sums {
					sums[c] = 0
				}
				for j, sj := range subset {
					if j == i {
						continue
					}
					sums[labels[j]] += row[sj]
				}

				own := labels[i]
				if counts[own] == 1 {
					scores[i] = 0
					continue
				}
				a := sums[own] / float64(counts[own]-1)
				b := math.MaxFloat64
				for c, s := range sums {
					if c == own {
						continue
					}
					if m := s / float64(counts[c]); m < b {
						b = m
					}
				}
				if m := math.Max(a, b); m > 0 {
					scores[i] = (b - a) / m
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total float64
	for _, s := range scores {
		total += s
	}
	return total / float64(len(scores)), nil
}

// row returns the Euclidean distances from point i to every point, memoized.
// lru.Cache is safe for concurrent use.
func (e *Evaluator) row(i int) []float64 {
	if v, ok := e.rows.Get(i); ok {
		return v.([]float64)
	}
	row := make([]float64, len(e.points))
	for j := range e.points {
		if j != i {
			row[j] = math.Sqrt(squaredDistance(e.points[i], e.points[j]))
		}
	}
	e.rows.Add(i, row)
	return row
}

func centroidStats(points [][]float64, labels []int, subset []int, counts []int) (centroids [][]float64, spreads []float64) {
	dims := len(points[subset[0]])
	centroids = make([][]float64, len(counts))
	for c := range centroids {
		centroids[c] = make([]float64, dims)
	}
	for i, si := range subset {
		for d, v := range points[si] {
			centroids[labels[i]][d] += v
		}
	}
	for c := range centroids {
		for d := range centroids[c] {
			centroids[c][d] /= float64(counts[c])
		}
	}

	spreads = make([]float64, len(counts))
	for i, si := range subset {
		spreads[labels[i]] += math.Sqrt(squaredDistance(points[si], centroids[labels[i]]))
	}
	for c := range spreads {
		spreads[c] /= float64(counts[c])
	}
	return centroids, spreads
}

// calinskiHarabasz is the between/within dispersion ratio scaled by counts:
// (B / (k-1)) / (W / (n-k)).
func calinskiHarabasz(points [][]float64, labels []int, subset []int, counts []int, centroids [][]float64) float64 {
	dims := len(points[subset[0]])
	global := make([]float64, dims)
	for _, si := range subset {
		for d, v := range points[si] {
			global[d] += v
		}
	}
	for d := range global {
		global[d] /= float64(len(subset))
	}

	var between float64
	for c, ctr := range centroids {
		between += float64(counts[c]) * squaredDistance(ctr, global)
	}
	var within float64
	for i, si := range subset {
		within += squaredDistance(points[si], centroids[labels[i]])
	}
	if within == 0 {
		return math.Inf(1)
	}
	n, k := float64(len(subset)), float64(len(counts))
	return (between / (k - 1)) / (within / (n - k))
}

// daviesBouldin averages, over clusters, the worst pairwise similarity
// (spread_i + spread_j) / centroid_distance(i, j). Clusters with coincident
// centroids are maximally similar, so such a pair drives the index to +Inf.
func daviesBouldin(centroids [][]float64, spreads []float64) float64 {
	k := len(centroids)
	var total float64
	for i := 0; i < k; i++ {
		worst := 0.0
		for j := 0; j < k; j++ {
			if j == i {
				continue
			}
			d := math.Sqrt(squaredDistance(centroids[i], centroids[j]))
			if d == 0 {
				worst = math.Inf(1)
				break
			}
			if s := (spreads[i] + spreads[j]) / d; s > worst {
				worst = s
			}
		}
		total += worst
	}
	return total / float64(k)
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
