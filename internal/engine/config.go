package engine

import (
	"fmt"
	"runtime"

	"github.com/storewise/cohort/internal/cluster"
)

// Config is the engine's full configuration surface. It replaces the global
// constants the original pipeline was driven by; the engine takes it at
// construction time and nothing reads ambient state.
type Config struct {
	// TargetClusterSize drives the desired cluster count C = round(N / T).
	TargetClusterSize int

	// MinClusterSize and MaxClusterSize bound final cluster sizes. At most
	// one cluster per cohort may fall below MinClusterSize.
	MinClusterSize int
	MaxClusterSize int

	// Components is the PCA dimensionality; it must not exceed
	// min(N-1, feature count).
	Components int

	// Strategy selects the base clusterer: cluster.StrategyKMeans,
	// cluster.StrategyAgglomerativeAverage, or
	// cluster.StrategyAgglomerativeWard.
	Strategy string

	// Balance toggles the size balancer. Without it, initial labels pass
	// through untouched.
	Balance bool

	// PartitionByBand splits stores into temperature cohorts before
	// clustering. Requires every store to carry a band.
	PartitionByBand bool

	// Seed fixes all randomized steps so repeated runs on identical
	// inputs reproduce the same assignment table.
	Seed int64

	// MaxParallelCohorts bounds cohort workers. Zero means NumCPU.
	MaxParallelCohorts int

	// TopFeatures bounds how many contributing features each cluster
	// profile reports.
	TopFeatures int

	// MaxIterations and Restarts tune the k-means strategy.
	MaxIterations int
	Restarts      int

	// RecomputeBatch is the balancer's centroid-recomputation batch size.
	RecomputeBatch int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TargetClusterSize:  50,
		MinClusterSize:     50,
		MaxClusterSize:     50,
		Components:         16,
		Strategy:           cluster.StrategyKMeans,
		Balance:            true,
		Seed:               1,
		MaxParallelCohorts: runtime.NumCPU(),
		TopFeatures:        5,
		MaxIterations:      300,
		Restarts:           4,
		RecomputeBatch:     25,
	}
}

func validateConfig(cfg Config) error {
	if cfg.TargetClusterSize <= 0 {
		return fmt.Errorf("target cluster size must be positive, got %d", cfg.TargetClusterSize)
	}
	if cfg.MinClusterSize <= 0 || cfg.MaxClusterSize < cfg.MinClusterSize {
		return fmt.Errorf("invalid cluster size band [%d, %d]", cfg.MinClusterSize, cfg.MaxClusterSize)
	}
	if cfg.TargetClusterSize < cfg.MinClusterSize || cfg.TargetClusterSize > cfg.MaxClusterSize {
		return fmt.Errorf("target cluster size %d outside band [%d, %d]",
			cfg.TargetClusterSize, cfg.MinClusterSize, cfg.MaxClusterSize)
	}
	if cfg.Components <= 0 {
		return fmt.Errorf("component count must be positive, got %d", cfg.Components)
	}
	switch cfg.Strategy {
	case cluster.StrategyKMeans, cluster.StrategyAgglomerativeAverage, cluster.StrategyAgglomerativeWard:
	default:
		return fmt.Errorf("unknown clustering strategy %q", cfg.Strategy)
	}
	return nil
}
