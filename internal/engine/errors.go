package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingBands is returned when band partitioning is enabled but
	// some stores carry no temperature classification
	ErrMissingBands = errors.New("band partitioning enabled but stores lack bands")

	// ErrAllCohortsFailed is returned when no cohort produced a usable
	// partition
	ErrAllCohortsFailed = errors.New("all cohorts failed")
)

// CohortError wraps a failure inside one temperature cohort's pipeline
type CohortError struct {
	Band string // cohort band, empty when partitioning is disabled
	Op   string // pipeline stage that failed
	Err  error
}

func (e *CohortError) Error() string {
	if e.Band != "" {
		return fmt.Sprintf("cohort %s: %s: %v", e.Band, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CohortError) Unwrap() error {
	return e.Err
}

// NewCohortError creates a new CohortError
func NewCohortError(band, op string, err error) error {
	return &CohortError{Band: band, Op: op, Err: err}
}
