// Package profile summarizes each cluster for downstream explainability:
// member counts, mean vectors, and the original features that contribute most
// to the cluster's fingerprint. Profiles are purely descriptive and feed no
// decisions.
package profile

import (
	"fmt"
	"sort"

	"github.com/storewise/cohort/internal/matrix"
)

// FeatureWeight is one feature's aggregate normalized contribution across a
// cluster's members.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Profile describes one cluster.
type Profile struct {
	Cluster     int             `json:"cluster"`
	Size        int             `json:"size"`
	TopFeatures []FeatureWeight `json:"top_features"`
	MeanReduced []float64       `json:"mean_reduced"`
}

// Build computes a profile per cluster. labels assigns each store of m a
// contiguous cluster id, with -1 marking stores left unassigned by a failed
// cohort; reduced holds the matching PCA coordinates. topN bounds how many
// features each profile reports.
func Build(m *matrix.Matrix, reduced [][]float64, labels []int, topN int) ([]Profile, error) {
	if len(labels) != m.Rows() || len(reduced) != m.Rows() {
		return nil, fmt.Errorf("profile: %d stores but %d labels and %d reduced rows",
			m.Rows(), len(labels), len(reduced))
	}
	if topN <= 0 {
		topN = 5
	}

	k := 0
	for _, l := range labels {
		if l+1 > k {
			k = l + 1
		}
	}

	profiles := make([]Profile, k)
	featureSums := make([][]float64, k)
	for c := range profiles {
		profiles[c].Cluster = c
		featureSums[c] = make([]float64, m.Cols())
		if len(reduced) > 0 {
			profiles[c].MeanReduced = make([]float64, len(reduced[0]))
		}
	}

	for i, s := range m.Stores {
		c := labels[i]
		if c < 0 {
			continue
		}
		profiles[c].Size++
		for j, v := range s.Features {
			featureSums[c][j] += v
		}
		for d, v := range reduced[i] {
			profiles[c].MeanReduced[d] += v
		}
	}

	for c := range profiles {
		if profiles[c].Size == 0 {
			return nil, fmt.Errorf("profile: cluster %d is empty", c)
		}
		n := float64(profiles[c].Size)
		for d := range profiles[c].MeanReduced {
			profiles[c].MeanReduced[d] /= n
		}
		profiles[c].TopFeatures = topFeatures(m.Columns, featureSums[c], n, topN)
	}

	return profiles, nil
}

func topFeatures(columns []string, sums []float64, n float64, topN int) []FeatureWeight {
	weights := make([]FeatureWeight, len(columns))
	for j, col := range columns {
		weights[j] = FeatureWeight{Feature: col, Weight: sums[j] / n}
	}
	// Highest mean contribution first; ties keep column order
	sort.SliceStable(weights, func(i, j int) bool {
		return weights[i].Weight > weights[j].Weight
	})
	if topN > len(weights) {
		topN = len(weights)
	}
	return weights[:topN]
}
