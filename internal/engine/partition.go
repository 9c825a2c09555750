package engine

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/storewise/cohort/internal/matrix"
)

// cohortGroup is one temperature cohort: a disjoint set of store indices that
// will be clustered and balanced independently. Bands holds every band folded
// into the cohort; the first is the primary label.
type cohortGroup struct {
	Bands   []string
	Indices []int // global store indices, ascending
}

// Band returns the cohort's primary band label.
func (c *cohortGroup) Band() string {
	if len(c.Bands) == 0 {
		return ""
	}
	return c.Bands[0]
}

// partitionByBand groups stores into cohorts by temperature band. Band labels
// are ordinal, so lexicographic order is temperature order. A cohort smaller
// than minViable merges into its adjacent cohort (the smaller neighbor,
// warmer side on ties) until every cohort is viable or only one remains; each
// merge is logged and recorded for the quality report.
func partitionByBand(m *matrix.Matrix, minViable int, logger zerolog.Logger) ([]*cohortGroup, []CohortMerge, error) {
	all, _ := m.HasBands()
	if !all {
		return nil, nil, ErrMissingBands
	}

	byBand := make(map[string]*cohortGroup)
	var bands []string
	for i, s := range m.Stores {
		g, ok := byBand[s.Band]
		if !ok {
			g = &cohortGroup{Bands: []string{s.Band}}
			byBand[s.Band] = g
			bands = append(bands, s.Band)
		}
		g.Indices = append(g.Indices, i)
	}
	sort.Strings(bands)

	cohorts := make([]*cohortGroup, len(bands))
	for i, b := range bands {
		cohorts[i] = byBand[b]
	}

	var merges []CohortMerge
	for len(cohorts) > 1 {
		at := -1
		for i, c := range cohorts {
			if len(c.Indices) < minViable {
				at = i
				break
			}
		}
		if at < 0 {
			break
		}

		into := at + 1
		if at == len(cohorts)-1 {
			into = at - 1
		} else if at > 0 && len(cohorts[at-1].Indices) < len(cohorts[at+1].Indices) {
			into = at - 1
		}

		src, dst := cohorts[at], cohorts[into]
		logger.Warn().
			Str("cohort", src.Band()).
			Str("into", dst.Band()).
			Int("stores", len(src.Indices)).
			Int("min_viable", minViable).
			Msg("merging undersized temperature cohort")
		CohortMerges.Inc()
		merges = append(merges, CohortMerge{
			From:   src.Band(),
			Into:   dst.Band(),
			Stores: len(src.Indices),
		})

		dst.Bands = append(dst.Bands, src.Bands...)
		dst.Indices = append(dst.Indices, src.Indices...)
		sort.Ints(dst.Indices)
		sort.Strings(dst.Bands)
		cohorts = append(cohorts[:at], cohorts[at+1:]...)
	}

	return cohorts, merges, nil
}

// singleCohort wraps the whole matrix as one cohort for unpartitioned runs.
func singleCohort(m *matrix.Matrix) *cohortGroup {
	indices := make([]int, m.Rows())
	for i := range indices {
		indices[i] = i
	}
	return &cohortGroup{Indices: indices}
}
