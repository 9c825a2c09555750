// Package engine orchestrates the clustering pipeline: dimensionality
// reduction, optional temperature partitioning, base clustering, size
// balancing, quality evaluation, and profiling. It consumes one immutable
// feature-matrix snapshot and recomputes the full partition from scratch;
// no cluster identity carries across runs.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/storewise/cohort/internal/balance"
	"github.com/storewise/cohort/internal/cluster"
	"github.com/storewise/cohort/internal/matrix"
	"github.com/storewise/cohort/internal/profile"
	"github.com/storewise/cohort/internal/quality"
	"github.com/storewise/cohort/internal/reduce"
)

// Engine runs the clustering pipeline with a fixed configuration.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
}

// New builds an Engine, validating the configuration.
func New(cfg Config) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Engine{
		cfg:    cfg,
		logger: log.With().Str("component", "engine").Logger(),
	}, nil
}

// cohortOutcome is one cohort's pipeline result. labels is cohort-local and
// contiguous; nil when the cohort failed.
type cohortOutcome struct {
	report CohortReport
	labels []int
}

// Run executes one full clustering run over m. The returned Result covers
// every store in a successful cohort exactly once; stores in failed cohorts
// are omitted so downstream consumers never see a partial cohort. A non-nil
// error means nothing usable was produced.
func (e *Engine) Run(ctx context.Context, m *matrix.Matrix) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With().Str("run_id", runID).Logger()

	logger.Info().
		Int("stores", m.Rows()).
		Int("features", m.Cols()).
		Str("strategy", e.cfg.Strategy).
		Bool("partitioned", e.cfg.PartitionByBand).
		Msg("starting clustering run")

	red, err := reducePCA(m, e.cfg.Components)
	if err != nil {
		RunsTotal.WithLabelValues(e.cfg.Strategy, "failed").Inc()
		return nil, err
	}

	var cohorts []*cohortGroup
	var merges []CohortMerge
	if e.cfg.PartitionByBand {
		cohorts, merges, err = partitionByBand(m, e.cfg.MinClusterSize, logger)
		if err != nil {
			RunsTotal.WithLabelValues(e.cfg.Strategy, "failed").Inc()
			return nil, err
		}
	} else {
		cohorts = []*cohortGroup{singleCohort(m)}
	}

	evaluator, err := quality.NewEvaluator(red.Reduced, len(red.Reduced))
	if err != nil {
		RunsTotal.WithLabelValues(e.cfg.Strategy, "failed").Inc()
		return nil, err
	}

	outcomes := make([]*cohortOutcome, len(cohorts))
	g, gctx := errgroup.WithContext(ctx)
	limit := e.cfg.MaxParallelCohorts
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for ci, c := range cohorts {
		ci, c := ci, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[ci] = e.runCohort(logger, c, int64(ci), red.Reduced, evaluator)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		RunsTotal.WithLabelValues(e.cfg.Strategy, "failed").Inc()
		return nil, err
	}

	return e.assemble(logger, m, red, evaluator, cohorts, outcomes, merges, runID, start)
}

// runCohort clusters, balances, and evaluates one cohort. Failures are
// captured in the cohort report rather than returned: one cohort failing must
// not abort its siblings.
func (e *Engine) runCohort(logger zerolog.Logger, c *cohortGroup, ci int64, reduced [][]float64, evaluator *quality.Evaluator) *cohortOutcome {
	out := &cohortOutcome{report: CohortReport{
		Band:   c.Band(),
		Bands:  c.Bands,
		Stores: len(c.Indices),
	}}
	fail := func(stage string, err error) *cohortOutcome {
		logger.Error().Err(err).Str("cohort", c.Band()).Str("stage", stage).Msg("cohort pipeline failed")
		CohortFailures.WithLabelValues(stage).Inc()
		out.report.Failed = true
		out.report.Error = NewCohortError(c.Band(), stage, err).Error()
		out.labels = nil
		return out
	}

	points := make([][]float64, len(c.Indices))
	for i, idx := range c.Indices {
		points[i] = reduced[idx]
	}

	k := int(math.Round(float64(len(points)) / float64(e.cfg.TargetClusterSize)))
	if k < 1 {
		k = 1
	}
	if k > len(points) {
		k = len(points)
	}

	labels, inertia, err := e.partition(logger, points, k, e.cfg.Seed+ci)
	if err != nil {
		return fail("cluster", err)
	}
	out.report.Inertia = inertia

	if e.cfg.Balance {
		balancer, err := balance.New(balance.Config{
			TargetSize:     e.cfg.TargetClusterSize,
			MinSize:        e.cfg.MinClusterSize,
			MaxSize:        e.cfg.MaxClusterSize,
			RecomputeBatch: e.cfg.RecomputeBatch,
		})
		if err != nil {
			return fail("balance", err)
		}
		bres, err := balancer.Balance(points, labels)
		if err != nil {
			return fail("balance", err)
		}
		labels = bres.Labels
		out.report.Sizes = bres.Sizes
		out.report.Undersized = bres.Undersized
		out.report.Moves = bres.Moves
		out.report.Removed = bres.Removed
		out.report.Created = bres.Created
	} else {
		out.report.Sizes = clusterSizes(labels)
		for id, n := range out.report.Sizes {
			if n < e.cfg.MinClusterSize {
				out.report.Undersized = append(out.report.Undersized, id)
			}
		}
	}
	out.report.Clusters = len(out.report.Sizes)

	// Undefined metrics mean the partition cannot be validated; the
	// cohort is marked invalid rather than scored with a placeholder.
	rep, err := evaluator.Evaluate(labels, c.Indices)
	if err != nil {
		return fail("evaluate", err)
	}
	out.report.Metrics = rep
	out.labels = labels

	logger.Info().
		Str("cohort", c.Band()).
		Int("stores", len(c.Indices)).
		Int("clusters", out.report.Clusters).
		Int("moves", out.report.Moves).
		Float64("silhouette", rep.Silhouette).
		Msg("cohort complete")
	return out
}

// partition runs the configured strategy, retrying once with a fresh seed
// when it diverges. logger is the run-scoped logger so retries correlate
// with their run.
func (e *Engine) partition(logger zerolog.Logger, points [][]float64, k int, seed int64) ([]int, float64, error) {
	run := func(seed int64) (*cluster.Result, error) {
		strat, err := cluster.New(cluster.Config{
			Strategy:      e.cfg.Strategy,
			Seed:          seed,
			MaxIterations: e.cfg.MaxIterations,
			Restarts:      e.cfg.Restarts,
		})
		if err != nil {
			return nil, err
		}
		return strat.Partition(points, k)
	}

	res, err := run(seed)
	if cluster.IsDiverged(err) {
		logger.Warn().Int64("seed", seed).Msg("clustering diverged, retrying with new seed")
		res, err = run(seed + 1)
	}
	if err != nil {
		return nil, 0, err
	}
	return res.Labels, res.Inertia, nil
}

// assemble offsets cohort labels into globally unique contiguous ids, merges
// the assignment table, and computes run-level metrics and profiles.
func (e *Engine) assemble(logger zerolog.Logger, m *matrix.Matrix, red *reduceResult, evaluator *quality.Evaluator, cohorts []*cohortGroup, outcomes []*cohortOutcome, merges []CohortMerge, runID string, start time.Time) (*Result, error) {
	globalLabels := make([]int, m.Rows())
	for i := range globalLabels {
		globalLabels[i] = -1
	}

	report := Report{
		RunID:             runID,
		StartedAt:         start.UTC(),
		Strategy:          e.cfg.Strategy,
		Seed:              e.cfg.Seed,
		Components:        e.cfg.Components,
		ExplainedVariance: red.ExplainedVariance,
		Partitioned:       e.cfg.PartitionByBand,
		Balanced:          e.cfg.Balance,
		Merges:            merges,
	}

	offset := 0
	var okIndices []int
	for ci, out := range outcomes {
		report.Cohorts = append(report.Cohorts, out.report)
		if out.report.Failed {
			report.PartialFailure = true
			report.FailedBands = append(report.FailedBands, out.report.Band)
			continue
		}
		for i, idx := range cohorts[ci].Indices {
			globalLabels[idx] = offset + out.labels[i]
		}
		okIndices = append(okIndices, cohorts[ci].Indices...)
		offset += out.report.Clusters
		report.StoresMoved += out.report.Moves
	}
	report.Clusters = offset

	if offset == 0 {
		RunsTotal.WithLabelValues(e.cfg.Strategy, "failed").Inc()
		return nil, ErrAllCohortsFailed
	}

	// Run-level metrics over the merged partition, so the quality cost of
	// cohort-disjoint clustering shows up in the headline numbers. The
	// evaluator's distance cache was warmed by the per-cohort passes.
	if len(okIndices) > 0 {
		okLabels := make([]int, len(okIndices))
		for i, idx := range okIndices {
			okLabels[i] = globalLabels[idx]
		}
		overall, err := evaluator.Evaluate(okLabels, okIndices)
		if err != nil && !quality.IsDegenerate(err) {
			return nil, err
		}
		report.Overall = overall
	}

	profiles, err := profile.Build(m, red.Reduced, globalLabels, e.cfg.TopFeatures)
	if err != nil {
		RunsTotal.WithLabelValues(e.cfg.Strategy, "failed").Inc()
		return nil, err
	}

	var assignments []Assignment
	for i, s := range m.Stores {
		if globalLabels[i] >= 0 {
			assignments = append(assignments, Assignment{StoreID: s.ID, Cluster: globalLabels[i]})
		}
	}

	report.ElapsedMillis = time.Since(start).Milliseconds()
	outcome := "ok"
	if report.PartialFailure {
		outcome = "partial"
	}
	RunsTotal.WithLabelValues(e.cfg.Strategy, outcome).Inc()
	RunDuration.WithLabelValues(e.cfg.Strategy).Observe(time.Since(start).Seconds())
	StoresMoved.Observe(float64(report.StoresMoved))
	if report.Overall != nil {
		RunSilhouette.WithLabelValues(e.cfg.Strategy).Set(report.Overall.Silhouette)
	}

	logger.Info().
		Int("clusters", report.Clusters).
		Int("assigned", len(assignments)).
		Int("moved", report.StoresMoved).
		Bool("partial_failure", report.PartialFailure).
		Dur("elapsed", time.Since(start)).
		Msg("clustering run complete")

	return &Result{
		Assignments: assignments,
		Profiles:    profiles,
		Report:      report,
	}, nil
}

func clusterSizes(labels []int) []int {
	k := 0
	for _, l := range labels {
		if l+1 > k {
			k = l + 1
		}
	}
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	return sizes
}

// reduceResult narrows the reducer output to what the engine carries around.
type reduceResult struct {
	Reduced           [][]float64
	ExplainedVariance []float64
}

func reducePCA(m *matrix.Matrix, components int) (*reduceResult, error) {
	res, err := reduce.PCA(m.Vectors(), components)
	if err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	return &reduceResult{Reduced: res.Reduced, ExplainedVariance: res.ExplainedVariance}, nil
}
