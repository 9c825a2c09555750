// Package cluster partitions reduced store vectors into a requested number of
// labeled groups. Two interchangeable strategies are provided: seeded k-means
// and agglomerative clustering with a selectable linkage rule.
package cluster

import "fmt"

// Strategy names accepted by New.
const (
	StrategyKMeans               = "kmeans"
	StrategyAgglomerativeAverage = "agglomerative-average"
	StrategyAgglomerativeWard    = "agglomerative-ward"
)

// Result is an initial partition of the input rows.
type Result struct {
	// Labels holds one cluster label per input row, in [0, K).
	Labels []int

	// Inertia is the within-cluster sum of squared distances of the chosen
	// partition. Zero for strategies that do not optimize it directly.
	Inertia float64

	// Converged reports whether the strategy reached its stopping criterion
	// inside the iteration bound.
	Converged bool
}

// Strategy partitions points into k labeled groups.
type Strategy interface {
	// Partition assigns every row of points a label in [0, k). It returns
	// ErrInsufficientData when len(points) < k and ErrDiverged when the
	// iteration bound is exhausted without convergence.
	Partition(points [][]float64, k int) (*Result, error)

	// Name identifies the strategy in logs and reports.
	Name() string
}

// Config selects and tunes a strategy.
type Config struct {
	Strategy      string
	Seed          int64
	MaxIterations int     // per k-means restart
	Restarts      int     // k-means restarts, best inertia wins
	Tolerance     float64 // k-means centroid-movement convergence threshold
}

// DefaultConfig returns the default strategy configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:      StrategyKMeans,
		MaxIterations: 300,
		Restarts:      4,
		Tolerance:     1e-6,
	}
}

// New builds the strategy named by cfg.Strategy.
func New(cfg Config) (Strategy, error) {
	switch cfg.Strategy {
	case StrategyKMeans:
		return newKMeans(cfg), nil
	case StrategyAgglomerativeAverage:
		return &agglomerative{linkage: linkageAverage}, nil
	case StrategyAgglomerativeWard:
		return &agglomerative{linkage: linkageWard}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}

// squaredDistance computes the squared Euclidean distance between two vectors
func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
