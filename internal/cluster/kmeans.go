package cluster

import (
	"fmt"
	"math"
	"math/rand"
)

// kMeans is the centroid-based strategy: k-means++ initialization, Lloyd
// iterations, multiple seeded restarts, best inertia kept.
type kMeans struct {
	cfg Config
}

func newKMeans(cfg Config) *kMeans {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	if cfg.Restarts <= 0 {
		cfg.Restarts = DefaultConfig().Restarts
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultConfig().Tolerance
	}
	return &kMeans{cfg: cfg}
}

func (k *kMeans) Name() string { return StrategyKMeans }

func (k *kMeans) Partition(points [][]float64, c int) (*Result, error) {
	if c <= 0 {
		return nil, fmt.Errorf("kmeans: cluster count must be positive, got %d", c)
	}
	if len(points) < c {
		return nil, fmt.Errorf("kmeans: %d points for %d clusters: %w",
			len(points), c, ErrInsufficientData)
	}

	var best *Result
	for r := 0; r < k.cfg.Restarts; r++ {
		rng := rand.New(rand.NewSource(k.cfg.Seed + int64(r)))
		res := k.run(points, c, rng)
		if !res.Converged {
			continue
		}
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	if best == nil {
		return nil, fmt.Errorf("kmeans: no restart converged within %d iterations: %w",
			k.cfg.MaxIterations, ErrDiverged)
	}
	return best, nil
}

func (k *kMeans) run(points [][]float64, c int, rng *rand.Rand) *Result {
	dims := len(points[0])
	centroids := k.seedCentroids(points, c, rng)

	assignments := make([]int, len(points))
	for i := range assignments {
		assignments[i] = -1
	}

	converged := false
	for iter := 0; iter < k.cfg.MaxIterations; iter++ {
		changed := false
		for i, p := range points {
			nearest := nearestCentroid(p, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed = true
			}
		}

		// Update centroids; re-seed any cluster left empty with the point
		// farthest from its centroid so k clusters always survive.
		counts := make([]int, c)
		sums := make([][]float64, c)
		for j := range sums {
			sums[j] = make([]float64, dims)
		}
		for i, a := range assignments {
			counts[a]++
			for d, v := range points[i] {
				sums[a][d] += v
			}
		}

		maxMove := 0.0
		for j := range centroids {
			if counts[j] == 0 {
				far := farthestPoint(points, assignments, centroids)
				assignments[far] = j
				copy(centroids[j], points[far])
				changed = true
				continue
			}
			for d := range centroids[j] {
				next := sums[j][d] / float64(counts[j])
				if move := math.Abs(next - centroids[j][d]); move > maxMove {
					maxMove = move
				}
				centroids[j][d] = next
			}
		}

		if !changed || maxMove < k.cfg.Tolerance {
			converged = true
			break
		}
	}

	return &Result{
		Labels:    assignments,
		Inertia:   inertia(points, assignments, centroids),
		Converged: converged,
	}
}

// seedCentroids implements k-means++: the first centroid is uniform, each
// subsequent one is drawn with probability proportional to its squared
// distance to the nearest existing centroid.
func (k *kMeans) seedCentroids(points [][]float64, c int, rng *rand.Rand) [][]float64 {
	dims := len(points[0])
	centroids := make([][]float64, c)
	centroids[0] = make([]float64, dims)
	copy(centroids[0], points[rng.Intn(len(points))])

	distances := make([]float64, len(points))
	for i := 1; i < c; i++ {
		var total float64
		for j, p := range points {
			minDist := math.MaxFloat64
			for _, ctr := range centroids[:i] {
				if d := squaredDistance(p, ctr); d < minDist {
					minDist = d
				}
			}
			distances[j] = minDist
			total += minDist
		}

		chosen := 0
		if total > 0 {
			target := rng.Float64() * total
			var sum float64
			for j, d := range distances {
				sum += d
				if sum >= target {
					chosen = j
					break
				}
			}
		} else {
			chosen = rng.Intn(len(points))
		}

		centroids[i] = make([]float64, dims)
		copy(centroids[i], points[chosen])
	}
	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	minDist := math.MaxFloat64
	nearest := 0
	for j, ctr := range centroids {
		if d := squaredDistance(p, ctr); d < minDist {
			minDist = d
			nearest = j
		}
	}
	return nearest
}

func farthestPoint(points [][]float64, assignments []int, centroids [][]float64) int {
	worst, worstDist := 0, -1.0
	for i, p := range points {
		if d := squaredDistance(p, centroids[assignments[i]]); d > worstDist {
			worst, worstDist = i, d
		}
	}
	return worst
}

func inertia(points [][]float64, assignments []int, centroids [][]float64) float64 {
	var sum float64
	for i, p := range points {
		sum += squaredDistance(p, centroids[assignments[i]])
	}
	return sum
}
