package engine

import (
	"time"

	"github.com/storewise/cohort/internal/profile"
	"github.com/storewise/cohort/internal/quality"
)

// Assignment is one row of the assignment table, the sole output downstream
// rule engines consume.
type Assignment struct {
	StoreID string `json:"store_id"`
	Cluster int    `json:"cluster"`
}

// CohortMerge records a too-small temperature cohort folded into a neighbor.
type CohortMerge struct {
	From   string `json:"from"`
	Into   string `json:"into"`
	Stores int    `json:"stores"`
}

// CohortReport summarizes one cohort's pipeline.
type CohortReport struct {
	Band       string          `json:"band,omitempty"`
	Bands      []string        `json:"bands,omitempty"`
	Stores     int             `json:"stores"`
	Clusters   int             `json:"clusters"`
	Sizes      []int           `json:"sizes"`
	Undersized []int           `json:"undersized,omitempty"`
	Moves      int             `json:"moves"`
	Removed    int             `json:"removed"`
	Created    int             `json:"created"`
	Inertia    float64         `json:"inertia,omitempty"`
	Metrics    *quality.Report `json:"metrics,omitempty"`
	Failed     bool            `json:"failed,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Report is the run-level quality report. Metrics are advisory and never
// block a run, but operators compare them across strategies and cluster
// counts before deployment, so everything needed for that comparison is here.
type Report struct {
	RunID             string          `json:"run_id"`
	StartedAt         time.Time       `json:"started_at"`
	ElapsedMillis     int64           `json:"elapsed_ms"`
	Strategy          string          `json:"strategy"`
	Seed              int64           `json:"seed"`
	Components        int             `json:"components"`
	ExplainedVariance []float64       `json:"explained_variance"`
	Partitioned       bool            `json:"partitioned"`
	Balanced          bool            `json:"balanced"`
	Cohorts           []CohortReport  `json:"cohorts"`
	Merges            []CohortMerge   `json:"merges,omitempty"`
	Overall           *quality.Report `json:"overall,omitempty"`
	Clusters          int             `json:"clusters"`
	StoresMoved       int             `json:"stores_moved"`
	PartialFailure    bool            `json:"partial_failure,omitempty"`
	FailedBands       []string        `json:"failed_bands,omitempty"`
}

// Result is everything one run produces. Assignments cover only stores in
// cohorts that succeeded; downstream consumption of a failed cohort is
// blocked by omission.
type Result struct {
	Assignments []Assignment      `json:"assignments"`
	Profiles    []profile.Profile `json:"profiles"`
	Report      Report            `json:"report"`
}
